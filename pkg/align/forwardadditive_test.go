package align

import(
	"errors"
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/abworrall/imagealign/pkg/emath"
	"github.com/abworrall/imagealign/pkg/sample"
	"github.com/abworrall/imagealign/pkg/warp"
)

// randomTarget is uniform noise in [0,255), box blurred to give it
// gradients that extend over a few pixels.
func randomTarget(seed int64, w, h, blurRadius int) *emath.FloatGrid {
	rng := rand.New(rand.NewSource(seed))
	g := emath.NewFloatGrid(w, h)
	for i := range g.Values() {
		g.Values()[i] = rng.Float64() * 255
	}
	return g.BoxBlur(blurRadius, emath.BorderReflect101)
}

func newAligner(t *testing.T, cfg Config) *ForwardAdditive {
	t.Helper()
	fa, err := NewForwardAdditive(cfg)
	if err != nil {
		t.Fatalf("NewForwardAdditive: %v", err)
	}
	return fa
}

func approx(got, want, rel float64) bool {
	return math.Abs(got - want) <= rel * math.Abs(want)
}

// cornersMatch checks that two warps send the template corners to the same place
func cornersMatch(t *testing.T, got, want warp.Warp, w, h int, tol float64) {
	t.Helper()
	for _, c := range []emath.Vec2{{0, 0}, {float64(w), 0}, {0, float64(h)}, {float64(w), float64(h)}} {
		if d := got.Apply(c).Dist(want.Apply(c)); d > tol {
			t.Errorf("corner %s: %s vs %s (off by %.4f)", c, got.Apply(c), want.Apply(c), d)
		}
	}
}

func TestTranslationConverges(t *testing.T) {
	tests := []struct{
		name       string
		blur       int
		size       int
		start      float64
	}{
		{"near", 2, 10, 18},
		{"far",  4, 20, 15},
	}

	for _, test := range tests {
		target := randomTarget(1, 100, 100, test.blur)
		tmpl := target.SubGrid(image.Rect(20, 20, 20+test.size, 20+test.size))

		w := warp.NewTranslation(test.start, test.start)
		fa := newAligner(t, NewConfig())
		fa.Prepare(tmpl, target)

		res, err := fa.AlignUntil(w, 100, 0.001)
		if err != nil {
			t.Fatalf("%s: AlignUntil: %v", test.name, err)
		}
		if fa.Iteration() >= 100 || !res.Converged {
			t.Errorf("%s: did not converge: %s", test.name, res)
		}
		p := w.Parameters()
		if !approx(p[0], 20, 0.01) || !approx(p[1], 20, 0.01) {
			t.Errorf("%s: got %s, want (20,20)", test.name, w)
		}
	}
}

func TestEuclideanConverges(t *testing.T) {
	target := randomTarget(2, 100, 100, 2)
	truth := warp.NewEuclidean(30, 25, 0.3)
	tmpl := sample.WarpGrid(target, truth, 20, 20)

	w := warp.NewEuclidean(31, 24.2, 0.34)
	fa := newAligner(t, NewConfig())
	fa.Prepare(tmpl, target)

	if _, err := fa.AlignUntil(w, 100, 0.001); err != nil {
		t.Fatalf("AlignUntil: %v", err)
	}
	if fa.Iteration() >= 100 {
		t.Errorf("took %d iterations", fa.Iteration())
	}

	got, want := w.Parameters(), truth.Parameters()
	for i := range want {
		if !approx(got[i], want[i], 0.01) {
			t.Errorf("param %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestSimilarityConverges(t *testing.T) {
	target := randomTarget(3, 100, 100, 2)
	truth := warp.NewSimilarity(29.11, 20.72, 0.66, 1.094)
	tmpl := sample.WarpGrid(target, truth, 20, 20)

	w := warp.NewSimilarity(29.6, 20.2, 0.69, 1.11)
	fa := newAligner(t, NewConfig())
	fa.Prepare(tmpl, target)

	if _, err := fa.AlignUntil(w, 100, 0.001); err != nil {
		t.Fatalf("AlignUntil: %v", err)
	}
	cornersMatch(t, w, truth, 20, 20, 0.05)
}

func TestAffineAndHomographyConverge(t *testing.T) {
	target := randomTarget(4, 120, 120, 3)

	tests := []struct{
		truth  warp.Warp
		start warp.Warp
	}{
		{
			warp.NewAffine([]float64{40, 35, 0.05, 0.1, -0.08, 0.02}),
			warp.NewAffine([]float64{41, 34.5, 0.04, 0.1, -0.07, 0.01}),
		},
		{
			warp.NewHomography([]float64{40, 35, 0.05, 0.05, -0.05, 0.02, 0.0005, -0.0005}),
			warp.NewHomography([]float64{40.7, 35.5, 0.05, 0.05, -0.05, 0.02, 0.0004, -0.0004}),
		},
	}

	for _, test := range tests {
		tmpl := sample.WarpGrid(target, test.truth, 30, 30)
		fa := newAligner(t, NewConfig())
		fa.Prepare(tmpl, target)
		if _, err := fa.AlignUntil(test.start, 100, 0.0001); err != nil {
			t.Fatalf("%s: AlignUntil: %v", test.truth.Kind(), err)
		}
		cornersMatch(t, test.start, test.truth, 30, 30, 0.1)
	}
}

func TestZeroErrorIsAFixedPoint(t *testing.T) {
	target := randomTarget(5, 60, 60, 2)
	tmpl := target.SubGrid(image.Rect(20, 20, 30, 30))

	w := warp.NewTranslation(20, 20)
	fa := newAligner(t, NewConfig())
	fa.Prepare(tmpl, target)

	e, err := fa.Align(w)
	if err != nil || e != 0 {
		t.Fatalf("Align = %f, %v; want 0, nil", e, err)
	}
	if p := w.Parameters(); p[0] != 20 || p[1] != 20 {
		t.Errorf("warp moved to %s", w)
	}
	for _, d := range fa.LastIncrement() {
		if d != 0 {
			t.Errorf("increment %v, want zeros", fa.LastIncrement())
		}
	}
	if fa.Iteration() != 1 {
		t.Errorf("iteration = %d", fa.Iteration())
	}
}

func TestDegenerateLeavesWarpAlone(t *testing.T) {
	target := emath.NewFloatGrid(50, 50)
	target.Fill(100)
	tmpl := emath.NewFloatGrid(10, 10)
	tmpl.Fill(50)

	w := warp.NewEuclidean(10, 10, 0.1)
	fa := newAligner(t, NewConfig())
	fa.Prepare(tmpl, target)

	e, err := fa.Align(w)
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("got err %v, want ErrDegenerate", err)
	}
	if !errors.Is(err, emath.ErrSingular) {
		t.Errorf("err %v should also wrap ErrSingular", err)
	}
	if e != -50 {
		t.Errorf("mean error = %f, want -50", e)
	}
	if p := w.Parameters(); p[0] != 10 || p[1] != 10 || p[2] != 0.1 {
		t.Errorf("warp changed to %s", w)
	}

	// AlignUntil stops at the first failure
	res, err := fa.AlignUntil(w, 10, 0.001)
	if err == nil || res.Iterations != 1 {
		t.Errorf("AlignUntil = %s, %v", res, err)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	target := randomTarget(6, 100, 100, 2)
	tmpl := target.SubGrid(image.Rect(30, 30, 60, 57))

	run := func(workers int) ([]float64, float64) {
		cfg := NewConfig()
		cfg.Workers = workers
		fa := newAligner(t, cfg)
		fa.Prepare(tmpl, target)
		w := warp.NewAffine([]float64{28, 31, 0.01, 0, 0, -0.01})
		e, err := fa.Align(w)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		return fa.LastIncrement(), e
	}

	seqInc, seqErr := run(1)
	for _, workers := range []int{2, 4, 7, 64} {
		parInc, parErr := run(workers)
		if !approx(parErr, seqErr, 1e-9) {
			t.Errorf("workers=%d: error %g vs %g", workers, parErr, seqErr)
		}
		for i := range seqInc {
			if math.Abs(parInc[i] - seqInc[i]) > 1e-9 * (1 + math.Abs(seqInc[i])) {
				t.Errorf("workers=%d: delta[%d] %g vs %g", workers, i, parInc[i], seqInc[i])
			}
		}
	}
}

func TestNearestSamplerConverges(t *testing.T) {
	target := randomTarget(7, 100, 100, 2)
	tmpl := target.SubGrid(image.Rect(20, 20, 40, 40))

	cfg := NewConfig()
	cfg.Sampler = "nearest"
	fa := newAligner(t, cfg)
	fa.Prepare(tmpl, target)

	w := warp.NewTranslation(21, 19)
	if _, err := fa.Run(w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cornersMatch(t, w, warp.NewTranslation(20, 20), 20, 20, 0.5)
}

func TestPreconditionsPanic(t *testing.T) {
	mustPanic := func(name string, f func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s: did not panic", name)
			}
		}()
		f()
	}

	mustPanic("align before prepare", func() {
		fa := newAligner(t, NewConfig())
		fa.Align(warp.NewTranslation(0, 0))
	})
	mustPanic("bad border", func() {
		fa := newAligner(t, NewConfig())
		fa.Border = "wraparound"
		fa.Prepare(emath.NewFloatGrid(4, 4), emath.NewFloatGrid(10, 10))
	})
	mustPanic("empty template", func() {
		fa := newAligner(t, NewConfig())
		fa.Prepare(emath.NewFloatGrid(0, 0), emath.NewFloatGrid(10, 10))
	})
}

func TestPrepareResets(t *testing.T) {
	target := randomTarget(8, 60, 60, 2)
	tmpl := target.SubGrid(image.Rect(10, 10, 20, 20))

	fa := newAligner(t, NewConfig())
	fa.Prepare(tmpl, target)
	fa.Align(warp.NewTranslation(11, 9))
	if fa.Iteration() != 1 {
		t.Fatalf("iteration = %d", fa.Iteration())
	}

	fa.Prepare(tmpl, target)
	if fa.Iteration() != 0 || !math.IsInf(fa.LastError(), 1) || len(fa.LastIncrement()) != 0 {
		t.Errorf("Prepare didn't reset: iter %d, err %f, inc %v", fa.Iteration(), fa.LastError(), fa.LastIncrement())
	}

	// Template is a copy, changing the caller's grid is invisible
	tmpl.Fill(0)
	w := warp.NewTranslation(10, 10)
	if e, _ := fa.Align(w); e != 0 {
		t.Errorf("aligner saw a change to the caller's template (err %f)", e)
	}
}

func TestPrepareUsesCurrentBorder(t *testing.T) {
	target := randomTarget(9, 40, 40, 2)
	tmpl := target.SubGrid(image.Rect(10, 10, 20, 20))

	fa := newAligner(t, NewConfig())
	fa.Border = "constant"
	fa.Prepare(tmpl, target)

	if s, ok := fa.resampler.(sample.Sampler); !ok || s.Border != emath.BorderConstant {
		t.Errorf("resampler %#v, want a constant border sampler", fa.resampler)
	}

	wantX, wantY := target.Sobel(gradientScale, emath.BorderConstant)
	for i, v := range wantX.Values() {
		if fa.gradX.Values()[i] != v || fa.gradY.Values()[i] != wantY.Values()[i] {
			t.Fatalf("gradient %d differs from a constant border Sobel", i)
		}
	}

	// reflect101 would make gx zero down the left edge
	if fa.gradX.Get(0, 20) == 0 {
		t.Errorf("gradX(0,20) is zero, looks like the default border was used")
	}
}

func TestErrorImageAndWarpedTarget(t *testing.T) {
	target := randomTarget(10, 60, 60, 2)
	tmpl := target.SubGrid(image.Rect(20, 20, 35, 32))

	fa := newAligner(t, NewConfig())
	fa.Prepare(tmpl, target)
	e, err := fa.Align(warp.NewTranslation(21.5, 19))
	if err != nil {
		t.Fatal(err)
	}

	if m := fa.ErrorImage().Mean(); math.Abs(m - e) > 1e-9 {
		t.Errorf("Align returned %f, error image mean is %f", e, m)
	}
	if e != fa.LastError() {
		t.Errorf("LastError %f, want %f", fa.LastError(), e)
	}

	for y:=0; y<tmpl.Dy(); y++ {
		for x:=0; x<tmpl.Dx(); x++ {
			sum := fa.WarpedTarget().Get(x, y) + fa.ErrorImage().Get(x, y)
			if math.Abs(sum - tmpl.Get(x, y)) > 1e-9 {
				t.Fatalf("(%d,%d): warped + error = %f, template %f", x, y, sum, tmpl.Get(x, y))
			}
		}
	}
}
