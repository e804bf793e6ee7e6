package sample

import(
	"math"
	"testing"

	"github.com/abworrall/imagealign/pkg/emath"
	"github.com/abworrall/imagealign/pkg/warp"
)

func grid3x3() *emath.FloatGrid {
	return emath.NewFloatGridFrom(3, 3, []float64{
		0, 1, 2,
		3, 4, 5,
		6, 7, 8,
	})
}

func TestBilinearAtPixelCentres(t *testing.T) {
	g := grid3x3()
	s := NewSampler()
	for y:=0; y<3; y++ {
		for x:=0; x<3; x++ {
			if got := s.At(g, emath.Vec2{float64(x)+0.5, float64(y)+0.5}); got != g.Get(x,y) {
				t.Errorf("At centre of (%d,%d) = %f, want %f", x, y, got, g.Get(x,y))
			}
		}
	}
}

func TestBilinearInterpolates(t *testing.T) {
	g := grid3x3()
	s := NewSampler()
	tests := []struct{
		p    emath.Vec2
		want float64
	}{
		{emath.Vec2{1.0, 0.5}, 0.5},  // halfway between (0,0) and (1,0)
		{emath.Vec2{1.0, 1.0}, 2.0},  // middle of the top-left 2x2
		{emath.Vec2{2.5, 2.0}, 6.5},  // right edge, reflect101 folds x=3 back to x=1
	}
	for _, test := range tests {
		if got := s.At(g, test.p); math.Abs(got - test.want) > 1e-12 {
			t.Errorf("At%s = %f, want %f", test.p, got, test.want)
		}
	}
}

func TestBorders(t *testing.T) {
	g := grid3x3()
	p := emath.Vec2{-0.5, 0.5} // centre of pixel (-1,0)

	tests := []struct{
		b    emath.Border
		want float64
	}{
		{emath.BorderReflect101, 1},
		{emath.BorderReplicate,  0},
		{emath.BorderConstant,   0},
	}
	for _, test := range tests {
		s := Sampler{Method: Bilinear, Border: test.b}
		if got := s.At(g, p); got != test.want {
			t.Errorf("%s: At%s = %f, want %f", test.b, p, got, test.want)
		}
	}

	s := Sampler{Method: Bilinear, Border: emath.BorderConstant}
	if got := s.At(g, emath.Vec2{3.5, 3.5}); got != 0 {
		t.Errorf("constant border beyond corner = %f", got)
	}
}

func TestNearest(t *testing.T) {
	g := grid3x3()
	s := Sampler{Method: Nearest}
	if got := s.At(g, emath.Vec2{1.9, 1.2}); got != 4 {
		t.Errorf("nearest = %f, want 4", got)
	}
	if got := s.At(g, emath.Vec2{math.NaN(), 1}); got != 0 {
		t.Errorf("nearest at NaN = %f, want 0", got)
	}
}

func TestWarpGridTranslation(t *testing.T) {
	src := emath.NewFloatGrid(10, 10)
	for y:=0; y<10; y++ {
		for x:=0; x<10; x++ {
			src.Set(x, y, float64(10*y + x))
		}
	}

	dst := WarpGrid(src, warp.NewTranslation(3, 4), 4, 2)
	for y:=0; y<2; y++ {
		for x:=0; x<4; x++ {
			if got, want := dst.Get(x,y), src.Get(x+3, y+4); got != want {
				t.Errorf("dst(%d,%d) = %f, want %f", x, y, got, want)
			}
		}
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range []Method{Bilinear, Nearest} {
		if got, err := ParseMethod(m.String()); err != nil || got != m {
			t.Errorf("ParseMethod(%q) = %v, %v", m, got, err)
		}
	}
	if _, err := ParseMethod("bicubic"); err == nil {
		t.Errorf("ParseMethod(bicubic) should fail")
	}
}
