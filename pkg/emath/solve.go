package emath

import(
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var ErrSingular = errors.New("matrix is singular or ill-conditioned")

// SolveSPD solves h.x = rhs, where h is an n*n symmetric positive
// definite matrix in row-major order (only the upper triangle is
// read). The result goes into x, which must have room for n values. If
// maxCond > 0, matrices with a larger condition number are rejected.
func SolveSPD(n int, h, rhs, x []float64, maxCond float64) error {
	if len(h) < n*n || len(rhs) < n || len(x) < n {
		panic(fmt.Sprintf("SolveSPD: short slices for n=%d", n))
	}
	if !IsFinite(h[:n*n]...) || !IsFinite(rhs[:n]...) {
		return fmt.Errorf("non-finite input: %w", ErrSingular)
	}

	sym := mat.NewSymDense(n, append([]float64(nil), h[:n*n]...))

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return fmt.Errorf("not positive definite: %w", ErrSingular)
	}
	if cond := chol.Cond(); math.IsNaN(cond) || (maxCond > 0 && cond > maxCond) {
		return fmt.Errorf("condition number %g: %w", cond, ErrSingular)
	}

	dst := mat.NewVecDense(n, x[:n])
	if err := chol.SolveVecTo(dst, mat.NewVecDense(n, append([]float64(nil), rhs[:n]...))); err != nil {
		return fmt.Errorf("cholesky solve: %v: %w", err, ErrSingular)
	}
	if !IsFinite(x[:n]...) {
		return fmt.Errorf("non-finite solution: %w", ErrSingular)
	}

	return nil
}
