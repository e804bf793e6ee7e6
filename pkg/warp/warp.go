// Package warp has the parametric planar transforms that the aligner
// estimates. A warp maps a point in template coordinates to the
// corresponding point in the target image.
package warp

import(
	"fmt"
	"math"
	"strings"

	"github.com/abworrall/imagealign/pkg/emath"
)

// MaxParameters is the largest parameter count of any Kind (homography)
const MaxParameters = 8

type Kind int

const(
	Translation Kind = iota
	Euclidean
	Similarity
	Affine
	Homography
)

var kindNames = []string{"translation", "euclidean", "similarity", "affine", "homography"}
var kindParams = []int{2, 3, 4, 6, 8}

func (k Kind)String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind)NParameters() int { return kindParams[k] }

func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return Translation, fmt.Errorf("no warp kind named '%s' (want one of %s)", s, strings.Join(kindNames, ","))
}

// A Jacobian holds d(warped point)/d(parameters), a 2xN matrix. Only
// the first N columns mean anything. It is a value type so that the
// per-pixel loops don't allocate.
type Jacobian struct {
	N int
	D [2][MaxParameters]float64
}

// Warp is a parametric 2D point transform. The parameter vector is the
// only state; everything else is derived from it.
type Warp interface {
	Kind() Kind
	NParameters() int

	SetIdentity()
	Parameters() []float64     // a copy
	SetParameters(p []float64) // panics if len(p) != NParameters()

	Apply(p emath.Vec2) emath.Vec2
	Jacobian(p emath.Vec2) Jacobian
	Matrix() emath.Mat3

	String() string
}

func New(k Kind) Warp {
	switch k {
	case Translation: return NewTranslation(0, 0)
	case Euclidean:   return NewEuclidean(0, 0, 0)
	case Similarity:  return &SimilarityWarp{}
	case Affine:      return &AffineWarp{}
	case Homography:  return &HomographyWarp{}
	}
	panic(fmt.Sprintf("warp.New: unknown kind %d", int(k)))
}

// NewWithParameters is New followed by SetParameters
func NewWithParameters(k Kind, p []float64) Warp {
	w := New(k)
	w.SetParameters(p)
	return w
}

// Clone returns an independent warp with the same kind and parameters
func Clone(w Warp) Warp {
	return NewWithParameters(w.Kind(), w.Parameters())
}

// FromAff3 returns the warp of kind k closest to m. Translation keeps
// only the offset, and Euclidean only the rotation part of the linear
// block, so m should be something k can represent.
func FromAff3(k Kind, m emath.Aff3) Warp {
	tx, ty := m[2], m[5]
	switch k {
	case Translation: return NewTranslation(tx, ty)
	case Euclidean:   return NewEuclidean(tx, ty, math.Atan2(m[3], m[0]))
	case Similarity:  return NewWithParameters(k, []float64{tx, ty, m[0]-1, m[3]})
	case Affine:      return NewAffine([]float64{tx, ty, m[0]-1, m[1], m[3], m[4]-1})
	case Homography:  return NewHomography([]float64{tx, ty, m[0]-1, m[1], m[3], m[4]-1, 0, 0})
	}
	panic(fmt.Sprintf("warp.FromAff3: unknown kind %d", int(k)))
}

// AddParameters is the additive update, p = p + delta.
func AddParameters(w Warp, delta []float64) {
	p := w.Parameters()
	checkLen(w.Kind(), len(delta))
	for i := range p {
		p[i] += delta[i]
	}
	w.SetParameters(p)
}

func checkLen(k Kind, n int) {
	if n != k.NParameters() {
		panic(fmt.Sprintf("%s warp: got %d parameters, want %d", k, n, k.NParameters()))
	}
}

func paramString(k Kind, p []float64) string {
	strs := make([]string, len(p))
	for i, f := range p {
		strs[i] = fmt.Sprintf("%.4f", f)
	}
	return fmt.Sprintf("%s[%s]", k, strings.Join(strs, ", "))
}
