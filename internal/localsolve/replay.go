// Package localsolve implements the local-solver driver: for each active
// run it replays the chosen solver against the portion of history
// already belonging to that run, answering the k-th query with the k-th
// stored evaluation, and captures whatever query the solver asks for
// beyond the stored prefix as the run's next point.
package localsolve

import "math"

const replayTolerance = 1e-8

// ReplayContext is per-driver-step state for a single run, passed by
// reference into the objective the solver calls. It is never shared
// across runs or kept alive between generator invocations.
type ReplayContext struct {
	Stored        [][]float64
	StoredF       []float64   // scalar mode
	StoredFvec    [][]float64 // vector mode
	TotalPtsInRun int

	ptInRun int

	// XNew is the solver's first query beyond the stored prefix, or nil
	// if no such query has been made yet (the "+Inf vector" sentinel
	// from the reference description).
	XNew []float64
	// SameAsLast is set if the first beyond-prefix query exactly repeats
	// the last stored point: some solver libraries signal convergence
	// this way rather than returning a distinct convergence code.
	SameAsLast bool

	Mismatch error
}

// NewScalarReplay builds a replay context for the scalar objective
// family.
func NewScalarReplay(stored [][]float64, storedF []float64) *ReplayContext {
	return &ReplayContext{Stored: stored, StoredF: storedF, TotalPtsInRun: len(stored)}
}

// NewVectorReplay builds a replay context for the vector-residual family.
func NewVectorReplay(stored [][]float64, storedFvec [][]float64) *ReplayContext {
	return &ReplayContext{Stored: stored, StoredFvec: storedFvec, TotalPtsInRun: len(stored)}
}

// query implements driver step 5: it classifies x as a replay of a
// stored step, the first beyond-prefix query, or a probe past that, and
// advances pt_in_run regardless of which.
func (c *ReplayContext) query(x []float64) (stored bool, idx int) {
	step := c.ptInRun
	c.ptInRun++

	if c.Mismatch != nil {
		return false, -1
	}

	switch {
	case step < c.TotalPtsInRun:
		if !approxEqual(x, c.Stored[step], replayTolerance) {
			c.Mismatch = &ReplayMismatchError{Step: step, Got: x, Want: c.Stored[step], ToleranceL: replayTolerance}
			return false, -1
		}
		return true, step
	case step == c.TotalPtsInRun:
		if c.TotalPtsInRun > 0 && approxEqual(x, c.Stored[c.TotalPtsInRun-1], replayTolerance) {
			c.SameAsLast = true
		}
		c.XNew = append([]float64(nil), x...)
		return false, -1
	default:
		return false, -1
	}
}

// ScalarObjective is the objective callback handed to a scalar solver.
func (c *ReplayContext) ScalarObjective(x []float64) float64 {
	stored, idx := c.query(x)
	if stored {
		return c.StoredF[idx]
	}
	return 0
}

// VectorObjective is the residual callback handed to a vector solver.
func (c *ReplayContext) VectorObjective(dst, x []float64) {
	stored, idx := c.query(x)
	if stored {
		copy(dst, c.StoredFvec[idx])
		return
	}
	for i := range dst {
		dst[i] = 0
	}
}

func approxEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}
