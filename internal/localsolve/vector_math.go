package localsolve

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampUnitCube(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = clamp01(v)
	}
	return out
}

func addVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	copy(out, a)
	floats.Add(out, b)
	return out
}

func sumSquares(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return s
}

func normVec(v []float64) float64 {
	return floats.Norm(v, 2)
}

// initialDelta implements delta_0 = delta0Mult * min(1-x0, x0) componentwise,
// reduced to a single scalar trust-region radius via the smallest margin.
func initialDelta(x0 []float64, delta0Mult float64) float64 {
	best := math.Inf(1)
	for _, x := range x0 {
		m := math.Min(1-x, x)
		if m < best {
			best = m
		}
	}
	if math.IsInf(best, 1) || best <= 0 {
		best = 0.1
	}
	return delta0Mult * best
}

// forwardJacobian builds an m x n forward-difference Jacobian from an
// anchor point/residual and n probe points that each perturb exactly one
// dimension of the anchor.
func forwardJacobian(anchor []float64, anchorF []float64, probes [][]float64, probeF [][]float64) *mat.Dense {
	n := len(anchor)
	m := len(anchorF)
	jac := mat.NewDense(m, n, nil)
	for j := 0; j < n; j++ {
		h := probes[j][j] - anchor[j]
		for i := 0; i < m; i++ {
			if h == 0 {
				jac.Set(i, j, 0)
				continue
			}
			jac.Set(i, j, (probeF[j][i]-anchorF[i])/h)
		}
	}
	return jac
}

// jacTResidual computes J^T r.
func jacTResidual(jac *mat.Dense, r []float64) []float64 {
	_, n := jac.Dims()
	rv := mat.NewVecDense(len(r), r)
	out := mat.NewVecDense(n, nil)
	out.MulVec(jac.T(), rv)
	return out.RawVector().Data
}

// gaussNewtonStep solves a Levenberg-Marquardt-damped normal-equation
// step (J^T J + lambda I) p = -J^T r, with lambda chosen from the trust
// radius delta, then clips the step to have norm at most delta.
func gaussNewtonStep(jac *mat.Dense, r []float64, delta float64) []float64 {
	_, n := jac.Dims()

	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)

	lambda := 1.0
	if delta > 0 {
		lambda = 1.0 / delta
	}
	for i := 0; i < n; i++ {
		jtj.Set(i, i, jtj.At(i, i)+lambda)
	}

	jtr := jacTResidual(jac, r)
	neg := make([]float64, n)
	for i := range jtr {
		neg[i] = -jtr[i]
	}

	var p mat.VecDense
	rhs := mat.NewVecDense(n, neg)
	if err := p.SolveVec(&jtj, rhs); err != nil {
		return make([]float64, n)
	}

	step := p.RawVector().Data
	if norm := normVec(step); norm > delta && norm > 0 {
		scale := delta / norm
		for i := range step {
			step[i] *= scale
		}
	}
	return step
}
