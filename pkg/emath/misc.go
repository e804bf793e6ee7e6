package emath

import "math"

// Some functions that only operate on basic types, that are useful

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
// `f` is assumed to be in the range [0,1]
func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055 * math.Pow(f, 1.0/2.4) - 0.055
}

// Norm is the euclidean length of the vector
func Norm(v []float64) float64 {
	sum := 0.0
	for _, f := range v { sum += f*f }
	return math.Sqrt(sum)
}

func IsFinite(vals ...float64) bool {
	for _, f := range vals {
		if math.IsNaN(f) || math.IsInf(f, 0) { return false }
	}
	return true
}
