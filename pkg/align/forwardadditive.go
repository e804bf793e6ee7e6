// Package align estimates the warp that best aligns a template with a
// region of a target image, by minimizing the sum of squared intensity
// differences.
//
// The estimator is the classic Lucas-Kanade algorithm, which Baker and
// Matthews call forwards-additive: the parameters are estimated in the
// forward direction (template to target), and updated by adding on an
// increment each iteration.
package align

import(
	"errors"
	"fmt"
	"log"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/abworrall/imagealign/pkg/emath"
	"github.com/abworrall/imagealign/pkg/warp"
)

// ErrDegenerate is returned when the Gauss-Newton system can't be
// solved, e.g. a textureless template. The warp is left untouched.
var ErrDegenerate = errors.New("degenerate alignment system")

// The Sobel kernel weights sum to 8 either side; this makes it a derivative
const gradientScale = 0.125

// A Resampler reads a grid at a fractional location, in the pixel
// centre convention of pkg/sample.
type Resampler interface {
	At(g *emath.FloatGrid, p emath.Vec2) float64
}

// ForwardAdditive holds the per-session state for aligning one
// template with one target. Prepare it once, then call Align as many
// times as you like. Not safe for concurrent use.
type ForwardAdditive struct {
	Config
	resampler    Resampler

	template     *emath.FloatGrid
	target       *emath.FloatGrid
	gradX, gradY *emath.FloatGrid

	// Scratch space, template sized, overwritten by each Align
	warped       *emath.FloatGrid
	warpedGradX  *emath.FloatGrid
	warpedGradY  *emath.FloatGrid
	errImg       *emath.FloatGrid

	prepared     bool
	iter         int
	lastErr      float64
	lastInc      []float64
}

func NewForwardAdditive(cfg Config) (*ForwardAdditive, error) {
	if err := cfg.FinalizeConfig(); err != nil {
		return nil, fmt.Errorf("new aligner: %v", err)
	}

	return &ForwardAdditive{
		Config:  cfg,
		lastErr: math.Inf(1),
	}, nil
}

// Prepare takes copies of the template and target, and computes the
// target gradients. It resets the iteration count. The sampler and the
// gradients both use the Border in the config as it is now.
func (fa *ForwardAdditive)Prepare(tmpl, target *emath.FloatGrid) {
	if tmpl.Empty() || target.Empty() {
		panic("ForwardAdditive.Prepare: empty template or target")
	}
	s, err := fa.GetSampler()
	if err != nil {
		panic(fmt.Sprintf("ForwardAdditive.Prepare: %v", err))
	}
	fa.resampler = s

	fa.template = tmpl.Copy()
	fa.target = target.Copy()
	fa.gradX, fa.gradY = fa.target.Sobel(gradientScale, s.Border)

	fa.warped = fa.template.NewFromThis()
	fa.warpedGradX = fa.template.NewFromThis()
	fa.warpedGradY = fa.template.NewFromThis()
	fa.errImg = fa.template.NewFromThis()

	fa.prepared = true
	fa.iter = 0
	fa.lastErr = math.Inf(1)
	fa.lastInc = nil

	if fa.Verbosity > 0 {
		log.Printf("Align prepare: template %s, target %s\n", fa.template.Stats(), fa.target.Stats())
	}
}

func (fa *ForwardAdditive)Iteration() int     { return fa.iter }
func (fa *ForwardAdditive)LastError() float64 { return fa.lastErr }

// LastIncrement is the parameter update applied by the last Align. It
// is all zeros if that Align didn't move the warp.
func (fa *ForwardAdditive)LastIncrement() []float64 { return append([]float64(nil), fa.lastInc...) }

// ErrorImage holds template - warped target, from the last Align
func (fa *ForwardAdditive)ErrorImage() *emath.FloatGrid { return fa.errImg }

// WarpedTarget is the target resampled into the template frame by the last Align
func (fa *ForwardAdditive)WarpedTarget() *emath.FloatGrid { return fa.warped }

func (fa *ForwardAdditive)ErrorStats() Stats { return ErrorStats(fa.errImg) }

// A partial holds the sums accumulated over a band of template rows.
// Only the upper triangle of h is filled in.
type partial struct {
	h       [warp.MaxParameters][warp.MaxParameters]float64
	b       [warp.MaxParameters]float64
	errSum  float64
	nonZero bool
}

func (p *partial)add(q *partial) {
	for i:=0; i<warp.MaxParameters; i++ {
		p.b[i] += q.b[i]
		for j:=i; j<warp.MaxParameters; j++ {
			p.h[i][j] += q.h[i][j]
		}
	}
	p.errSum += q.errSum
	p.nonZero = p.nonZero || q.nonZero
}

// accumulate does the per-pixel work for template rows [y0,y1). Warp
// methods are only read from, so bands can run concurrently.
func (fa *ForwardAdditive)accumulate(w warp.Warp, y0, y1 int, acc *partial) error {
	n := w.NParameters()
	r := fa.resampler
	var sd [warp.MaxParameters]float64

	for y:=y0; y<y1; y++ {
		tRow := fa.template.Row(y)
		wRow, gxRow, gyRow := fa.warped.Row(y), fa.warpedGradX.Row(y), fa.warpedGradY.Row(y)
		eRow := fa.errImg.Row(y)

		for x := range tRow {
			c := emath.Vec2{float64(x) + 0.5, float64(y) + 0.5}
			p := w.Apply(c)

			v  := r.At(fa.target, p)
			gx := r.At(fa.gradX, p)
			gy := r.At(fa.gradY, p)
			e  := tRow[x] - v

			wRow[x], gxRow[x], gyRow[x], eRow[x] = v, gx, gy, e

			if !emath.IsFinite(e, gx, gy) {
				return fmt.Errorf("non-finite value at template (%d,%d), target %s: %w", x, y, p, ErrDegenerate)
			}
			if e != 0 { acc.nonZero = true }
			acc.errSum += e

			j := w.Jacobian(c)
			for i:=0; i<n; i++ {
				sd[i] = gx*j.D[0][i] + gy*j.D[1][i]
			}
			for i:=0; i<n; i++ {
				acc.b[i] += sd[i] * e
				for k:=i; k<n; k++ {
					acc.h[i][k] += sd[i] * sd[k]
				}
			}
		}
	}

	return nil
}

// accumulateAll splits the template into row bands, one per worker
func (fa *ForwardAdditive)accumulateAll(w warp.Warp) (partial, error) {
	height := fa.template.Dy()
	nBands := fa.Workers
	if nBands > height { nBands = height }
	if nBands <= 1 {
		var acc partial
		err := fa.accumulate(w, 0, height, &acc)
		return acc, err
	}

	partials := make([]partial, nBands)
	rowsPerBand := (height + nBands - 1) / nBands

	var g errgroup.Group
	g.SetLimit(fa.Workers)
	for i:=0; i<nBands; i++ {
		y0 := i * rowsPerBand
		y1 := y0 + rowsPerBand
		if y1 > height { y1 = height }
		if y0 >= y1 { continue }
		i := i
		g.Go(func() error { return fa.accumulate(w, y0, y1, &partials[i]) })
	}
	if err := g.Wait(); err != nil {
		return partial{}, err
	}

	// Sum in band order, so the result doesn't depend on scheduling
	var acc partial
	for i := range partials {
		acc.add(&partials[i])
	}
	return acc, nil
}

// Align performs a single Gauss-Newton step. It refines w in place,
// and returns the mean of the error image (template - warped target)
// computed at the parameters w had on entry.
func (fa *ForwardAdditive)Align(w warp.Warp) (float64, error) {
	if !fa.prepared {
		panic("ForwardAdditive.Align called before Prepare")
	}

	n := w.NParameters()
	fa.iter++
	fa.lastInc = make([]float64, n)

	acc, err := fa.accumulateAll(w)
	if err != nil {
		fa.lastErr = math.NaN()
		return fa.lastErr, fmt.Errorf("align iteration %d: %w", fa.iter, err)
	}

	fa.lastErr = acc.errSum / float64(fa.template.Dx() * fa.template.Dy())

	// A perfect fit: leave everything alone
	if !acc.nonZero {
		return 0, nil
	}

	h := make([]float64, n*n)
	for i:=0; i<n; i++ {
		for k:=i; k<n; k++ {
			h[i*n+k] = acc.h[i][k]
			h[k*n+i] = acc.h[i][k]
		}
	}

	delta := make([]float64, n)
	if err := emath.SolveSPD(n, h, acc.b[:n], delta, fa.MaxConditionNumber); err != nil {
		return fa.lastErr, fmt.Errorf("align iteration %d: %w: %w", fa.iter, ErrDegenerate, err)
	}

	warp.AddParameters(w, delta)
	fa.lastInc = delta

	if fa.Verbosity > 1 {
		log.Printf(" -- iter %3d: err %10.4f, |delta| %10.6f, %s\n", fa.iter, fa.lastErr, emath.Norm(delta), w)
	}

	return fa.lastErr, nil
}

// A Result summarizes a multi-iteration run
type Result struct {
	Iterations    int     // performed by this run
	Error         float64 // the mean error from the final iteration
	IncrementNorm float64 // |delta| of the final iteration
	Converged     bool    // stopped because |delta| < eps
}

func (r Result)String() string {
	return fmt.Sprintf("Result[iters:%d, err:%.4f, |delta|:%.6f, converged:%v]", r.Iterations, r.Error, r.IncrementNorm, r.Converged)
}

// AlignUntil calls Align until the norm of the increment drops below
// eps, or maxIterations have been done. It stops early on the first
// error.
func (fa *ForwardAdditive)AlignUntil(w warp.Warp, maxIterations int, eps float64) (Result, error) {
	res := Result{}

	for i:=0; i<maxIterations; i++ {
		e, err := fa.Align(w)
		res.Iterations++
		res.Error = e
		if err != nil {
			return res, err
		}

		res.IncrementNorm = emath.Norm(fa.lastInc)
		if res.IncrementNorm < eps {
			res.Converged = true
			break
		}
	}

	if fa.Verbosity > 0 {
		log.Printf("Align: %s, %s\n", res, w)
	}

	return res, nil
}

// Run is AlignUntil with the limits from the config
func (fa *ForwardAdditive)Run(w warp.Warp) (Result, error) {
	return fa.AlignUntil(w, fa.MaxIterations, fa.Epsilon)
}
