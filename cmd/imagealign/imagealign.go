package main

import(
	"flag"
	"fmt"
	"image"
	"log"
	"math/rand"

	"github.com/abworrall/imagealign/pkg/align"
	"github.com/abworrall/imagealign/pkg/ecolor"
	"github.com/abworrall/imagealign/pkg/emath"
	"github.com/abworrall/imagealign/pkg/estack"
	"github.com/abworrall/imagealign/pkg/sample"
	"github.com/abworrall/imagealign/pkg/warp"
)

// Usage:
//   imagealign [flags]                  # synthetic: random target, random template, perturbed start
//   imagealign [flags] target.tif       # template is -rect of the target, start is -init
//   imagealign [flags] -template t.png target.tif

var(
	fVerbosity int
	fConfig string
	fWarp string
	fIterations int
	fEpsilon float64
	fWorkers int
	fBorder string
	fSampler string
	fLuminance string

	fTemplate string
	fRect string
	fInit string
	fSeed int64
	fPerturb float64
	fRotate float64

	fOutput string
	fWriteHDR bool
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fConfig, "config", "", "YAML file with the alignment config")
	flag.StringVar(&fWarp, "warp", "", "kind of warp: translation, euclidean, similarity, affine, homography")
	flag.IntVar(&fIterations, "iters", 0, "max iterations (0 means use config)")
	flag.Float64Var(&fEpsilon, "eps", 0, "stop once |delta| is below this (0 means use config)")
	flag.IntVar(&fWorkers, "workers", 0, "row bands to accumulate in parallel (0 means use config)")
	flag.StringVar(&fBorder, "border", "", "reflect101, replicate, or constant")
	flag.StringVar(&fSampler, "sampler", "", "bilinear or nearest")
	flag.StringVar(&fLuminance, "luminance", "rec601", "how to turn color into intensity: rec601, lab, hdr-y")

	flag.StringVar(&fTemplate, "template", "", "image file to use as the template")
	flag.StringVar(&fRect, "rect", "", "x,y,w,h of the template, within the target")
	flag.StringVar(&fInit, "init", "", "comma separated starting warp parameters")
	flag.Int64Var(&fSeed, "seed", 1, "random seed, for the synthetic mode")
	flag.Float64Var(&fPerturb, "perturb", 5, "stddev (pixels) of the synthetic mode's starting error")
	flag.Float64Var(&fRotate, "rotate", 0, "synthetic mode rotates the template by this many degrees (not for translation warps)")

	flag.StringVar(&fOutput, "out", "imagealign", "prefix for output files")
	flag.BoolVar(&fWriteHDR, "hdr", false, "also write the final error image as a .hdr")
	flag.Parse()

	log.Printf("imagealign starting\n")
}

func loadConfig() align.Config {
	cfg := align.NewConfig()
	if fConfig != "" {
		var err error
		if cfg, err = align.LoadConfig(fConfig); err != nil {
			log.Fatal(err)
		}
	}

	if fVerbosity > 0   { cfg.Verbosity = fVerbosity }
	if fWarp != ""      { cfg.Warp = fWarp }
	if fIterations > 0  { cfg.MaxIterations = fIterations }
	if fEpsilon > 0     { cfg.Epsilon = fEpsilon }
	if fWorkers > 0     { cfg.Workers = fWorkers }
	if fBorder != ""    { cfg.Border = fBorder }
	if fSampler != ""   { cfg.Sampler = fSampler }

	if err := cfg.FinalizeConfig(); err != nil {
		log.Fatal(err)
	}
	return cfg
}

// synthetic builds a blurred noise target, and cuts a template out of it
// at a random spot, rotated about its centre by -rotate degrees. It
// returns the true warp, and a perturbed copy of it to start from.
func synthetic(kind warp.Kind, rng *rand.Rand) (tmpl, target *emath.FloatGrid, truth, start warp.Warp) {
	target = emath.NewFloatGrid(640, 480)
	for i := range target.Values() {
		target.Values()[i] = rng.Float64() * 255
	}
	target = target.BoxBlur(2, emath.BorderReflect101)

	tw, th := target.Dx() / 10, target.Dy() / 10
	m := emath.Identity().Translate(float64(rng.Intn(target.Dx() - tw)), float64(rng.Intn(target.Dy() - th)))
	if fRotate != 0 {
		if kind == warp.Translation {
			log.Printf("translation warps can't rotate, ignoring -rotate\n")
		} else {
			m = m.Mult(emath.RotateAbout(fRotate, float64(tw)/2, float64(th)/2))
		}
	}
	truth = warp.FromAff3(kind, m)
	tmpl = sample.WarpGrid(target, truth, tw, th)

	start = warp.Clone(truth)
	delta := make([]float64, start.NParameters())
	delta[0], delta[1] = rng.NormFloat64() * fPerturb, rng.NormFloat64() * fPerturb
	warp.AddParameters(start, delta)

	return
}

func fromFiles(kind warp.Kind, lum ecolor.Luminance, args []string) (tmpl *emath.FloatGrid, target estack.Frame, start warp.Warp) {
	if len(args) != 1 {
		log.Fatal("need exactly one target image")
	}
	target, err := estack.LoadFrame(args[0])
	if err != nil {
		log.Fatal(err)
	}
	tgrid := target.Intensity(lum)

	var rect image.Rectangle
	if fRect != "" {
		if rect, err = estack.ParseRect(fRect); err != nil {
			log.Fatal(err)
		}
		rect = rect.Sub(target.OrigImage.Bounds().Min)
	}

	switch {
	case fTemplate != "":
		tf, err := estack.LoadFrame(fTemplate)
		if err != nil {
			log.Fatal(err)
		}
		tmpl = tf.Intensity(lum)
	case !rect.Empty():
		if !rect.In(tgrid.Bounds()) {
			log.Fatalf("rect %s is not inside the target %s\n", rect, tgrid.Bounds())
		}
		tmpl = tgrid.SubGrid(rect)
	default:
		log.Fatal("need -template or -rect")
	}

	start = estack.TranslationTo(kind, rect.Min)
	if fInit != "" {
		p, err := estack.ParseFloats(fInit)
		if err != nil {
			log.Fatal(err)
		} else if len(p) != kind.NParameters() {
			log.Fatalf("-init has %d params, %s warps need %d\n", len(p), kind, kind.NParameters())
		}
		start.SetParameters(p)
	}

	return
}

func main() {
	cfg := loadConfig()
	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	kind, _ := cfg.WarpKind()
	lum, err := ecolor.ParseLuminance(fLuminance)
	if err != nil {
		log.Fatal(err)
	}

	var tmpl, target *emath.FloatGrid
	var display image.Image
	var truth, w warp.Warp

	if flag.NArg() == 0 {
		tmpl, target, truth, w = synthetic(kind, rand.New(rand.NewSource(fSeed)))
		display = target.ToImage()
		log.Printf("synthetic: truth %s, start %s\n", truth, w)
	} else {
		var frame estack.Frame
		tmpl, frame, w = fromFiles(kind, lum, flag.Args())
		target = frame.Intensity(lum)
		display = frame.OrigImage
	}

	fa, err := align.NewForwardAdditive(cfg)
	if err != nil {
		log.Fatal(err)
	}
	fa.Prepare(tmpl, target)

	res, err := fa.Run(w)
	if err != nil {
		log.Printf("alignment failed: %v\n", err)
	}

	fmt.Printf("%s\n", res)
	fmt.Printf("warp:  %s\n", w)
	fmt.Printf("stats: %s\n", fa.ErrorStats())
	fmt.Printf("matrix:\n%s", w.Matrix())
	if sw, ok := w.(*warp.SimilarityWarp); ok {
		fmt.Printf("canonical (tx, ty, theta, scale): %v\n", sw.CanonicalParameters())
	}
	if truth != nil {
		fmt.Printf("truth: %s, off by %.3f pixels\n", truth, w.Apply(emath.Vec2{}).Dist(truth.Apply(emath.Vec2{})))
	}

	size := image.Point{tmpl.Dx(), tmpl.Dy()}
	outlines := []estack.Outline{{Warp: w, Color: estack.ColorEstimate}}
	if truth != nil {
		outlines = append([]estack.Outline{{Warp: truth, Color: estack.ColorTruth}}, outlines...)
	}

	overlay := estack.DrawOutlines(display, size, res.String(), outlines...)
	if err := estack.WritePNG(overlay, fOutput+"-overlay.png"); err != nil {
		log.Fatal(err)
	}
	if err := estack.WritePNG(estack.AlignedPreview(display, w, size), fOutput+"-aligned.png"); err != nil {
		log.Fatal(err)
	}
	if err := fa.ErrorImage().ToImg(fa.ErrorStats().String(), fOutput+"-error.png"); err != nil {
		log.Fatal(err)
	}
	if err := fa.WarpedTarget().ToImg("warped target", fOutput+"-warped.png"); err != nil {
		log.Fatal(err)
	}
	if fWriteHDR {
		if err := fa.ErrorImage().WriteHDR(fOutput+"-error.hdr"); err != nil {
			log.Fatal(err)
		}
	}

	log.Printf("wrote %s-*.png\n", fOutput)
}
