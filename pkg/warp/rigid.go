package warp

import(
	"math"

	"github.com/abworrall/imagealign/pkg/emath"
)

// TranslationWarp: p' = p + (tx, ty)
type TranslationWarp struct {
	T emath.Vec2
}

func NewTranslation(tx, ty float64) *TranslationWarp { return &TranslationWarp{T: emath.Vec2{tx, ty}} }

func (w *TranslationWarp)Kind() Kind          { return Translation }
func (w *TranslationWarp)NParameters() int    { return 2 }
func (w *TranslationWarp)SetIdentity()        { w.T = emath.Vec2{} }
func (w *TranslationWarp)Parameters() []float64 { return []float64{w.T[0], w.T[1]} }
func (w *TranslationWarp)String() string      { return paramString(Translation, w.Parameters()) }

func (w *TranslationWarp)SetParameters(p []float64) {
	checkLen(Translation, len(p))
	w.T = emath.Vec2{p[0], p[1]}
}

func (w *TranslationWarp)Apply(p emath.Vec2) emath.Vec2 { return p.Add(w.T) }

func (w *TranslationWarp)Jacobian(p emath.Vec2) Jacobian {
	j := Jacobian{N: 2}
	j.D[0][0] = 1
	j.D[1][1] = 1
	return j
}

func (w *TranslationWarp)Matrix() emath.Mat3 {
	return emath.Mat3{1, 0, w.T[0],   0, 1, w.T[1],   0, 0, 1}
}

// EuclideanWarp is a rotation (radians) about the origin followed by a
// translation. Parameters are (tx, ty, theta).
type EuclideanWarp struct {
	tx, ty, theta float64
	cos, sin      float64
}

func NewEuclidean(tx, ty, theta float64) *EuclideanWarp {
	w := &EuclideanWarp{}
	w.SetParameters([]float64{tx, ty, theta})
	return w
}

func (w *EuclideanWarp)Kind() Kind            { return Euclidean }
func (w *EuclideanWarp)NParameters() int      { return 3 }
func (w *EuclideanWarp)SetIdentity()          { w.SetParameters([]float64{0, 0, 0}) }
func (w *EuclideanWarp)Parameters() []float64 { return []float64{w.tx, w.ty, w.theta} }
func (w *EuclideanWarp)String() string        { return paramString(Euclidean, w.Parameters()) }

func (w *EuclideanWarp)SetParameters(p []float64) {
	checkLen(Euclidean, len(p))
	w.tx, w.ty, w.theta = p[0], p[1], p[2]
	w.sin, w.cos = math.Sincos(w.theta)
}

func (w *EuclideanWarp)Apply(p emath.Vec2) emath.Vec2 {
	return emath.Vec2{
		w.cos*p[0] - w.sin*p[1] + w.tx,
		w.sin*p[0] + w.cos*p[1] + w.ty,
	}
}

func (w *EuclideanWarp)Jacobian(p emath.Vec2) Jacobian {
	x, y := p[0], p[1]
	j := Jacobian{N: 3}
	j.D[0][0], j.D[0][2] = 1, -w.sin*x - w.cos*y
	j.D[1][1], j.D[1][2] = 1,  w.cos*x - w.sin*y
	return j
}

func (w *EuclideanWarp)Matrix() emath.Mat3 {
	return emath.Mat3{w.cos, -w.sin, w.tx,   w.sin, w.cos, w.ty,   0, 0, 1}
}

// SimilarityWarp is a rotation+uniform scale, then a translation. To
// keep the warp linear in its parameters, they are (tx, ty, a, b) with
//
//   [1+a  -b  tx]
//   [ b  1+a  ty]
//
// The canonical form (tx, ty, theta, scale) is available too.
type SimilarityWarp struct {
	tx, ty, a, b float64
}

func NewSimilarity(tx, ty, theta, scale float64) *SimilarityWarp {
	w := &SimilarityWarp{}
	w.SetCanonicalParameters([]float64{tx, ty, theta, scale})
	return w
}

func (w *SimilarityWarp)Kind() Kind            { return Similarity }
func (w *SimilarityWarp)NParameters() int      { return 4 }
func (w *SimilarityWarp)SetIdentity()          { *w = SimilarityWarp{} }
func (w *SimilarityWarp)Parameters() []float64 { return []float64{w.tx, w.ty, w.a, w.b} }
func (w *SimilarityWarp)String() string        { return paramString(Similarity, w.Parameters()) }

func (w *SimilarityWarp)SetParameters(p []float64) {
	checkLen(Similarity, len(p))
	w.tx, w.ty, w.a, w.b = p[0], p[1], p[2], p[3]
}

// CanonicalParameters returns (tx, ty, theta, scale)
func (w *SimilarityWarp)CanonicalParameters() []float64 {
	return []float64{w.tx, w.ty, math.Atan2(w.b, 1+w.a), math.Hypot(1+w.a, w.b)}
}

func (w *SimilarityWarp)SetCanonicalParameters(p []float64) {
	checkLen(Similarity, len(p))
	sin, cos := math.Sincos(p[2])
	w.tx, w.ty = p[0], p[1]
	w.a = p[3]*cos - 1
	w.b = p[3]*sin
}

func (w *SimilarityWarp)Apply(p emath.Vec2) emath.Vec2 {
	return emath.Vec2{
		(1+w.a)*p[0] - w.b*p[1] + w.tx,
		w.b*p[0] + (1+w.a)*p[1] + w.ty,
	}
}

func (w *SimilarityWarp)Jacobian(p emath.Vec2) Jacobian {
	x, y := p[0], p[1]
	j := Jacobian{N: 4}
	j.D[0] = [MaxParameters]float64{1, 0, x, -y}
	j.D[1] = [MaxParameters]float64{0, 1, y,  x}
	return j
}

func (w *SimilarityWarp)Matrix() emath.Mat3 {
	return emath.Mat3{1+w.a, -w.b, w.tx,   w.b, 1+w.a, w.ty,   0, 0, 1}
}
