// Package sample reads FloatGrids at fractional locations.
//
// Locations are continuous image coordinates: pixel (x,y) covers the
// square [x,x+1)x[y,y+1), so its centre is at (x+0.5, y+0.5).
package sample

import(
	"fmt"
	"math"

	"github.com/abworrall/imagealign/pkg/emath"
)

// A PointMapper maps a point in the destination frame to a point in the
// source frame. Anything in pkg/warp is one.
type PointMapper interface {
	Apply(p emath.Vec2) emath.Vec2
}

type Method int

const(
	Bilinear Method = iota
	Nearest
)

func (m Method)String() string {
	switch m {
	case Bilinear: return "bilinear"
	case Nearest:  return "nearest"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "bilinear": return Bilinear, nil
	case "nearest":      return Nearest, nil
	}
	return Bilinear, fmt.Errorf("no sampling method named '%s'", s)
}

// Sampler interpolates grid values, using Border for locations off the grid.
type Sampler struct {
	Method Method
	Border emath.Border
}

func NewSampler() Sampler { return Sampler{Method: Bilinear, Border: emath.BorderReflect101} }

// beyond this, everything is off the grid anyway, and we don't want int overflows
const maxCoord = 1 << 30

// At returns the value of g at the continuous location p.
func (s Sampler)At(g *emath.FloatGrid, p emath.Vec2) float64 {
	x, y := p[0] - 0.5, p[1] - 0.5
	if !emath.IsFinite(x, y) {
		return 0
	}
	x = math.Max(-maxCoord, math.Min(maxCoord, x))
	y = math.Max(-maxCoord, math.Min(maxCoord, y))

	if s.Method == Nearest {
		return g.At(int(math.Round(x)), int(math.Round(y)), s.Border)
	}

	x0f, y0f := math.Floor(x), math.Floor(y)
	fx, fy := x - x0f, y - y0f
	x0, y0 := int(x0f), int(y0f)

	// Fast path, no need to check borders
	if x0 >= 0 && y0 >= 0 && x0+1 < g.Dx() && y0+1 < g.Dy() {
		r0 := g.Row(y0)
		r1 := g.Row(y0+1)
		top := r0[x0] + fx*(r0[x0+1] - r0[x0])
		bot := r1[x0] + fx*(r1[x0+1] - r1[x0])
		return top + fy*(bot - top)
	}

	v00 := g.At(x0,   y0,   s.Border)
	v10 := g.At(x0+1, y0,   s.Border)
	v01 := g.At(x0,   y0+1, s.Border)
	v11 := g.At(x0+1, y0+1, s.Border)
	top := v00 + fx*(v10 - v00)
	bot := v01 + fx*(v11 - v01)
	return top + fy*(bot - top)
}

// Resample fills dst: each dst pixel centre is mapped through m into src,
// and the value there is read.
func (s Sampler)Resample(src *emath.FloatGrid, m PointMapper, dst *emath.FloatGrid) {
	for y:=0; y<dst.Dy(); y++ {
		row := dst.Row(y)
		for x := range row {
			row[x] = s.At(src, m.Apply(emath.Vec2{float64(x) + 0.5, float64(y) + 0.5}))
		}
	}
}

// WarpGrid resamples src into a new w*h grid, using the default sampler.
func WarpGrid(src *emath.FloatGrid, m PointMapper, w, h int) *emath.FloatGrid {
	dst := emath.NewFloatGrid(w, h)
	NewSampler().Resample(src, m, dst)
	return dst
}
