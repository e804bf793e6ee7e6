package emath

import "fmt"

// A Border says what value a grid has outside of its bounds.
type Border int

const(
	BorderReflect101 Border = iota // gfedcb|abcdefgh|gfedcba
	BorderReplicate                // aaaaaa|abcdefgh|hhhhhhh
	BorderConstant                 // 000000|abcdefgh|0000000
)

func (b Border)String() string {
	switch b {
	case BorderReflect101: return "reflect101"
	case BorderReplicate:  return "replicate"
	case BorderConstant:   return "constant"
	}
	return fmt.Sprintf("Border(%d)", int(b))
}

func ParseBorder(s string) (Border, error) {
	switch s {
	case "", "reflect101": return BorderReflect101, nil
	case "replicate":      return BorderReplicate, nil
	case "constant":       return BorderConstant, nil
	}
	return BorderReflect101, fmt.Errorf("no border policy named '%s'", s)
}

// Index folds i into [0,n) according to the policy. The bool is false
// if there is no such pixel, i.e. the value is the constant zero.
func (b Border)Index(i, n int) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}

	switch b {
	case BorderReplicate:
		if i < 0 { return 0, true }
		return n-1, true

	case BorderReflect101:
		if n == 1 { return 0, true }
		period := 2 * (n-1)
		if i < 0 { i = -i }
		i %= period
		if i >= n { i = period - i }
		return i, true
	}

	return 0, false
}
