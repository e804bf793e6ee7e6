package warp

import(
	"github.com/abworrall/imagealign/pkg/emath"
)

// AffineWarp has parameters (tx, ty, a, b, c, d), for the matrix
//
//   [1+a   b   tx]
//   [ c   1+d  ty]
type AffineWarp struct {
	p [6]float64
}

func NewAffine(p []float64) *AffineWarp {
	w := &AffineWarp{}
	w.SetParameters(p)
	return w
}

func (w *AffineWarp)Kind() Kind            { return Affine }
func (w *AffineWarp)NParameters() int      { return 6 }
func (w *AffineWarp)SetIdentity()          { w.p = [6]float64{} }
func (w *AffineWarp)Parameters() []float64 { return append([]float64(nil), w.p[:]...) }
func (w *AffineWarp)String() string        { return paramString(Affine, w.p[:]) }

func (w *AffineWarp)SetParameters(p []float64) {
	checkLen(Affine, len(p))
	copy(w.p[:], p)
}

func (w *AffineWarp)Apply(p emath.Vec2) emath.Vec2 {
	tx, ty, a, b, c, d := w.p[0], w.p[1], w.p[2], w.p[3], w.p[4], w.p[5]
	return emath.Vec2{
		(1+a)*p[0] + b*p[1] + tx,
		c*p[0] + (1+d)*p[1] + ty,
	}
}

func (w *AffineWarp)Jacobian(p emath.Vec2) Jacobian {
	x, y := p[0], p[1]
	j := Jacobian{N: 6}
	j.D[0] = [MaxParameters]float64{1, 0, x, y, 0, 0}
	j.D[1] = [MaxParameters]float64{0, 1, 0, 0, x, y}
	return j
}

func (w *AffineWarp)Matrix() emath.Mat3 {
	tx, ty, a, b, c, d := w.p[0], w.p[1], w.p[2], w.p[3], w.p[4], w.p[5]
	return emath.Mat3{1+a, b, tx,   c, 1+d, ty,   0, 0, 1}
}

// HomographyWarp is a full projective warp, with parameters
// (tx, ty, a, b, c, d, g, h) for the matrix
//
//   [1+a   b   tx]
//   [ c   1+d  ty]
//   [ g    h    1]
type HomographyWarp struct {
	p [8]float64
}

func NewHomography(p []float64) *HomographyWarp {
	w := &HomographyWarp{}
	w.SetParameters(p)
	return w
}

func (w *HomographyWarp)Kind() Kind            { return Homography }
func (w *HomographyWarp)NParameters() int      { return 8 }
func (w *HomographyWarp)SetIdentity()          { w.p = [8]float64{} }
func (w *HomographyWarp)Parameters() []float64 { return append([]float64(nil), w.p[:]...) }
func (w *HomographyWarp)String() string        { return paramString(Homography, w.p[:]) }

func (w *HomographyWarp)SetParameters(p []float64) {
	checkLen(Homography, len(p))
	copy(w.p[:], p)
}

// project returns the homogeneous coords of p
func (w *HomographyWarp)project(p emath.Vec2) (u, v, s float64) {
	tx, ty, a, b, c, d, g, h := w.p[0], w.p[1], w.p[2], w.p[3], w.p[4], w.p[5], w.p[6], w.p[7]
	u = (1+a)*p[0] + b*p[1] + tx
	v = c*p[0] + (1+d)*p[1] + ty
	s = g*p[0] + h*p[1] + 1
	return
}

func (w *HomographyWarp)Apply(p emath.Vec2) emath.Vec2 {
	u, v, s := w.project(p)
	return emath.Vec2{u / s, v / s}
}

func (w *HomographyWarp)Jacobian(p emath.Vec2) Jacobian {
	x, y := p[0], p[1]
	u, v, s := w.project(p)
	is := 1 / s
	du, dv := u*is*is, v*is*is

	j := Jacobian{N: 8}
	j.D[0] = [MaxParameters]float64{is, 0, x*is, y*is, 0, 0, -x*du, -y*du}
	j.D[1] = [MaxParameters]float64{0, is, 0, 0, x*is, y*is, -x*dv, -y*dv}
	return j
}

func (w *HomographyWarp)Matrix() emath.Mat3 {
	tx, ty, a, b, c, d, g, h := w.p[0], w.p[1], w.p[2], w.p[3], w.p[4], w.p[5], w.p[6], w.p[7]
	return emath.Mat3{1+a, b, tx,   c, 1+d, ty,   g, h, 1}
}
