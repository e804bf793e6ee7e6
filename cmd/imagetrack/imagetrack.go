package main

import(
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/abworrall/imagealign/pkg/estack"
)

// Usage: imagetrack -rect 500,500,40,40 frames/ [config.yaml]

var(
	Log *log.Logger

	fVerbosity int
	fWarp string
	fRect string
	fNoUpdate bool
	fLostThreshold float64
	fOutputDir string
	fWorkers int
	fLuminance string
	fOrderBy string
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fWarp, "warp", "", "kind of warp: translation, euclidean, similarity, affine, homography")
	flag.StringVar(&fRect, "rect", "", "x,y,w,h of the region to track, in the first frame")
	flag.BoolVar(&fNoUpdate, "noupdate", false, "always align against the first frame's template")
	flag.Float64Var(&fLostThreshold, "lost", 0, "frames with mean abs error above this are lost (0 means use config)")
	flag.StringVar(&fOutputDir, "out", "", "if set, write a PNG per frame with the tracked region outlined")
	flag.IntVar(&fWorkers, "workers", 0, "row bands to accumulate in parallel (0 means use config)")
	flag.StringVar(&fLuminance, "luminance", "", "how to turn color into intensity: rec601, lab, hdr-y")
	flag.StringVar(&fOrderBy, "orderby", "", "exif or name")
	flag.Parse()

	Log = log.New(os.Stdout,"", log.Ldate|log.Ltime)
	log.Printf("imagetrack starting\n")
}

func main() {
	s := estack.NewSequence()
	if err := s.Load(flag.Args()...); err != nil {
		Log.Fatal(err)
	}

	// Override the config file with command line args, if relevant
	if fVerbosity > 0 { s.Align.Verbosity = fVerbosity }
	if fWarp != "" { s.Align.Warp = fWarp }
	if fWorkers > 0 { s.Align.Workers = fWorkers }
	if fLostThreshold > 0 { s.LostThreshold = fLostThreshold }
	if fOutputDir != "" { s.OutputDir = fOutputDir }
	if fLuminance != "" { s.Luminance = fLuminance }
	if fOrderBy != "" { s.OrderBy = fOrderBy }
	if fNoUpdate { s.UpdateTemplate = false }
	if fRect != "" {
		r, err := estack.ParseRect(fRect)
		if err != nil {
			Log.Fatal(err)
		}
		s.Template = r
	}

	if err := s.FinalizeConfig(); err != nil {
		Log.Fatal(err)
	}
	s.Sort()

	log.Printf("Images loaded: %s", s)
	if s.Align.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", s.Config.AsYaml())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := s.Track(ctx)
	if err != nil && len(results) == 0 {
		Log.Fatalf("Track failed, err: %v\n", err)
	} else if err != nil {
		log.Printf("Track stopped early after %d frames: %v\n", len(results), err)
	}

	size := s.TemplateSize()
	origin := s.Frames[0].OrigImage.Bounds().Min
	nLost := 0
	for _, tr := range results {
		c := tr.Centre(size, origin)
		fmt.Printf("%s  centre:(%.2f,%.2f)\n", tr, c[0], c[1])
		if tr.Lost { nLost++ }
	}
	log.Printf("%d frames tracked, %d lost\n", len(results), nLost)

	if fOutputDir != "" {
		if err := s.WriteTrackImages(results); err != nil {
			Log.Fatal(err)
		}
		log.Printf("track images written to '%s'\n", s.OutputDir)
	}
}
