package estack

import(
	"context"
	"fmt"
	"image"
	"log"

	"github.com/abworrall/imagealign/pkg/align"
	"github.com/abworrall/imagealign/pkg/emath"
	"github.com/abworrall/imagealign/pkg/sample"
	"github.com/abworrall/imagealign/pkg/warp"
)

// A TrackResult is where we think the template is, in one frame
type TrackResult struct {
	Frame     string
	Warp      warp.Warp    // maps template coords into this frame's coords
	Result    align.Result
	Stats     align.Stats
	Lost      bool         // alignment failed, or the error was too big; Warp is the last good one
	Err       error
}

func (tr TrackResult)String() string {
	str := fmt.Sprintf("%-20s %s", tr.Frame, tr.Warp)
	if tr.Result.Iterations > 0 {
		str += fmt.Sprintf(" iters:%d %s", tr.Result.Iterations, tr.Stats)
	}
	if tr.Lost {
		str += " LOST"
	}
	if tr.Err != nil {
		str += fmt.Sprintf(" (%v)", tr.Err)
	}
	return str
}

// TranslationTo is the identity warp of the given kind, moved to p
func TranslationTo(kind warp.Kind, p image.Point) warp.Warp {
	return warp.FromAff3(kind, emath.Identity().Translate(float64(p.X), float64(p.Y)))
}

// Track finds the template region of the first frame in every later
// frame. Each frame's estimate seeds the next one. Per-frame alignment
// failures don't stop the run; they come back as Lost results.
func (s *Sequence)Track(ctx context.Context) ([]TrackResult, error) {
	if len(s.Frames) == 0 {
		return nil, fmt.Errorf("track: no frames")
	}

	kind, err := s.Align.WarpKind()
	if err != nil {
		return nil, fmt.Errorf("track: %v", err)
	}
	lum := s.GetLuminance()

	first := &s.Frames[0]
	origin := first.OrigImage.Bounds().Min
	rect := s.Template.Sub(origin) // image coords -> grid coords
	if rect.Empty() || !rect.In(first.Intensity(lum).Bounds()) {
		return nil, fmt.Errorf("track: template %s not inside first frame %s", s.Template, first.OrigImage.Bounds())
	}

	tmpl := first.Intensity(lum).SubGrid(rect)
	w := TranslationTo(kind, rect.Min)

	fa, err := align.NewForwardAdditive(s.Align)
	if err != nil {
		return nil, fmt.Errorf("track: %v", err)
	}

	results := []TrackResult{{Frame: first.Filename(), Warp: warp.Clone(w), Result: align.Result{Converged: true}}}

	for i:=1; i<len(s.Frames); i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		f := &s.Frames[i]
		target := f.Intensity(lum)
		lastGood := w.Parameters()
		if override, exists := s.InitialWarp(f.Filename()); exists {
			w.SetParameters(override.Parameters())
		}

		fa.Prepare(tmpl, target)
		res, err := fa.Run(w)
		tr := TrackResult{Frame: f.Filename(), Result: res, Stats: fa.ErrorStats(), Err: err}

		if err != nil || (s.LostThreshold > 0 && tr.Stats.Mean > s.LostThreshold) {
			tr.Lost = true
			w.SetParameters(lastGood)
		} else if s.UpdateTemplate {
			tmpl = sample.WarpGrid(target, w, tmpl.Dx(), tmpl.Dy())
		}

		tr.Warp = warp.Clone(w)
		results = append(results, tr)

		if s.Align.Verbosity > 0 {
			log.Printf("Track: %s\n", tr)
		}
	}

	return results, nil
}

// TemplateSize is the size of the tracked region
func (s *Sequence)TemplateSize() image.Point { return s.Template.Size() }

// Centre is where the middle of the template lands, in image coords
func (tr TrackResult)Centre(size, origin image.Point) emath.Vec2 {
	c := tr.Warp.Apply(emath.Vec2{float64(size.X) / 2, float64(size.Y) / 2})
	return c.Add(emath.Vec2{float64(origin.X), float64(origin.Y)})
}
