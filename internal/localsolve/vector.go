package localsolve

import (
	"golang.org/x/exp/rand"
)

// VectorSolver is the vector-residual trust-region family: it receives
// a residual callback of size m and proposes one new query at a time,
// replaying cached evaluations exactly like the scalar family.
type VectorSolver interface {
	Name() string
	Run(x0 []float64, m, budget int, residual func(dst, x []float64)) (xOpt []float64, exitCode int)
}

// TrustRegionLS is a Gauss-Newton/Levenberg-Marquardt-style trust-region
// least-squares solver. It has no library to wrap — none of the
// retrieved reference material carries a trust-region-least-squares
// implementation — so the step itself is hand-written directly on top
// of gonum/mat; everything else funnels through the same replay
// machinery as the scalar family. It builds its Jacobian one
// finite-difference probe at a time, since the replay driver grants at
// most one genuinely new evaluation per generator invocation: a full
// Jacobian accumulates across several invocations of the same run.
type TrustRegionLS struct {
	Delta0Mult float64
	Gatol      float64
	Fatol      float64
}

func NewTrustRegionLS(delta0Mult, gatol, fatol float64) *TrustRegionLS {
	return &TrustRegionLS{Delta0Mult: delta0Mult, Gatol: gatol, Fatol: fatol}
}

func (s *TrustRegionLS) Name() string { return "tr_ls" }

func (s *TrustRegionLS) Run(x0 []float64, m, budget int, residual func(dst, x []float64)) ([]float64, int) {
	n := len(x0)
	cycle := n + 1

	xs := make([][]float64, 0, budget)
	fs := make([][]float64, 0, budget)

	x := append([]float64(nil), x0...)
	fvec := make([]float64, m)
	residual(fvec, x)
	xs = append(xs, x)
	fs = append(fs, fvec)

	delta := initialDelta(x0, s.Delta0Mult)
	h := delta * 1e-2
	if h < 1e-8 {
		h = 1e-8
	}

	for len(xs) < budget {
		anchorIdx := ((len(xs) - 1) / cycle) * cycle
		posInCycle := (len(xs) - 1) % cycle
		anchor := xs[anchorIdx]
		anchorF := fs[anchorIdx]

		var next []float64
		if posInCycle < n {
			next = append([]float64(nil), anchor...)
			next[posInCycle] = clamp01(next[posInCycle] + h)
		} else if anchorIdx+cycle <= len(xs) {
			probes := xs[anchorIdx+1 : anchorIdx+cycle]
			probeF := fs[anchorIdx+1 : anchorIdx+cycle]
			jac := forwardJacobian(anchor, anchorF, probes, probeF)
			grad := jacTResidual(jac, anchorF)
			if normVec(grad) < s.Gatol || sumSquares(anchorF) < s.Fatol {
				return anchor, codeConverged
			}
			step := gaussNewtonStep(jac, anchorF, delta)
			next = clampUnitCube(addVec(anchor, step))
		} else {
			// Not enough probes collected yet for a full Jacobian within
			// this invocation's budget; keep probing.
			next = append([]float64(nil), anchor...)
			next[posInCycle%n] = clamp01(next[posInCycle%n] + h)
		}

		fNext := make([]float64, m)
		residual(fNext, next)
		xs = append(xs, next)
		fs = append(fs, fNext)
	}

	return xs[len(xs)-1], codeBudgetExhausted
}

// BoundedLBFGSVector stands in for the reference's "bounded
// limited-memory variable metric" vector method: a steepest-descent step
// of length delta on the scalar sum-of-squares objective, gradient
// estimated the same way as TrustRegionLS; no curvature history is kept
// between steps. It takes a random perturbation (seeded from
// golang.org/x/exp/rand, matching the sampling step in the CMA-ES
// reference) when the gradient vanishes but the residual has not.
type BoundedLBFGSVector struct {
	Delta0Mult float64
	Gatol      float64
	Fatol      float64
	rng        *rand.Rand
}

func NewBoundedLBFGSVector(delta0Mult, gatol, fatol float64, seed uint64) *BoundedLBFGSVector {
	return &BoundedLBFGSVector{
		Delta0Mult: delta0Mult,
		Gatol:      gatol,
		Fatol:      fatol,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (s *BoundedLBFGSVector) Name() string { return "blmvm_ls" }

func (s *BoundedLBFGSVector) Run(x0 []float64, m, budget int, residual func(dst, x []float64)) ([]float64, int) {
	n := len(x0)
	cycle := n + 1

	xs := make([][]float64, 0, budget)
	fs := make([][]float64, 0, budget)

	x := append([]float64(nil), x0...)
	fvec := make([]float64, m)
	residual(fvec, x)
	xs = append(xs, x)
	fs = append(fs, fvec)

	delta := initialDelta(x0, s.Delta0Mult)
	h := delta * 1e-2
	if h < 1e-8 {
		h = 1e-8
	}

	for len(xs) < budget {
		anchorIdx := ((len(xs) - 1) / cycle) * cycle
		posInCycle := (len(xs) - 1) % cycle
		anchor := xs[anchorIdx]
		anchorF := fs[anchorIdx]

		var next []float64
		if posInCycle < n {
			next = append([]float64(nil), anchor...)
			next[posInCycle] = clamp01(next[posInCycle] + h)
		} else if anchorIdx+cycle <= len(xs) {
			probes := xs[anchorIdx+1 : anchorIdx+cycle]
			probeF := fs[anchorIdx+1 : anchorIdx+cycle]
			jac := forwardJacobian(anchor, anchorF, probes, probeF)
			grad := jacTResidual(jac, anchorF)
			scale(grad, 2)

			if sumSquares(anchorF) < s.Fatol {
				return anchor, codeConverged
			}
			if normVec(grad) < s.Gatol {
				// Flat gradient but not yet converged: perturb randomly
				// to escape, rather than stalling the run forever.
				next = clampUnitCube(addVec(anchor, randomStep(s.rng, n, delta)))
			} else {
				step := steepestDescentStep(grad, delta)
				next = clampUnitCube(addVec(anchor, step))
			}
		} else {
			next = append([]float64(nil), anchor...)
			next[posInCycle%n] = clamp01(next[posInCycle%n] + h)
		}

		fNext := make([]float64, m)
		residual(fNext, next)
		xs = append(xs, next)
		fs = append(fs, fNext)
	}

	return xs[len(xs)-1], codeBudgetExhausted
}

func scale(v []float64, c float64) {
	for i := range v {
		v[i] *= c
	}
}

func steepestDescentStep(grad []float64, delta float64) []float64 {
	norm := normVec(grad)
	if norm == 0 {
		return make([]float64, len(grad))
	}
	step := make([]float64, len(grad))
	for i, g := range grad {
		step[i] = -g / norm * delta
	}
	return step
}

func randomStep(rng *rand.Rand, n int, delta float64) []float64 {
	step := make([]float64, n)
	for i := range step {
		step[i] = (rng.Float64()*2 - 1) * delta
	}
	return step
}
