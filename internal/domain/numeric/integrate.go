// Package numeric holds the quadrature and root-finding routines used by the
// aggregation engine.
package numeric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// Defaults for Integrate.
const (
	DefaultTolerance = 1e-8
	DefaultMaxDepth  = 50

	// legendreNodes is the panel order; exact for polynomials up to degree 19.
	legendreNodes = 10
	// minDepth forces a few bisections so a narrow feature between the nodes
	// of the first panel cannot fake convergence.
	minDepth = 3
)

// Integrate computes the integral of f over [a, b] to absolute tolerance tol
// by adaptive bisection of Gauss-Legendre panels. It fails with
// ErrIntegrationFailure when a panel still misses its share of the tolerance
// at maxDepth, or when f produces a non-finite value.
func Integrate(f func(float64) float64, a, b, tol float64, maxDepth int) (float64, error) {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if a == b {
		return 0, nil
	}
	if a > b {
		v, err := Integrate(f, b, a, tol, maxDepth)
		return -v, err
	}

	whole := panel(f, a, b)
	v, err := adapt(f, a, b, whole, tol, 0, maxDepth)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite result on [%g, %g]", ErrIntegrationFailure, a, b)
	}
	return v, nil
}

func adapt(f func(float64) float64, a, b, whole, tol float64, depth, maxDepth int) (float64, error) {
	mid := a + (b-a)/2
	left := panel(f, a, mid)
	right := panel(f, mid, b)
	sum := left + right
	diff := math.Abs(sum - whole)

	if math.IsNaN(diff) {
		return 0, fmt.Errorf("%w: non-finite integrand on [%g, %g]", ErrIntegrationFailure, a, b)
	}
	if depth >= minDepth && diff <= tol {
		return sum, nil
	}
	if depth >= maxDepth {
		return 0, fmt.Errorf("%w: error %g exceeds %g on [%g, %g]", ErrIntegrationFailure, diff, tol, a, b)
	}

	l, err := adapt(f, a, mid, left, tol/2, depth+1, maxDepth)
	if err != nil {
		return 0, err
	}
	r, err := adapt(f, mid, b, right, tol/2, depth+1, maxDepth)
	if err != nil {
		return 0, err
	}
	return l + r, nil
}

func panel(f func(float64) float64, a, b float64) float64 {
	return quad.Fixed(f, a, b, legendreNodes, quad.Legendre{}, 0)
}
