package localsolve

import (
	"gonum.org/v1/gonum/optimize"
)

// Convergence codes follow the reference scalar-solver library's
// numbering: 5 means the evaluation budget ran out before convergence,
// 4 means the solver repeated its previous query (some libraries use
// this to signal "already at a minimum"), anything else positive means
// genuine convergence, and 0 means neither — a protocol violation.
const (
	codeBudgetExhausted = 5
	codeRepeatedPoint   = 4
	codeConverged       = 1
	codeNoConvergence   = 0
)

// ScalarSolver is a derivative-free (or history-finite-differenced)
// scalar local solver driven entirely through replayed/new evaluations.
type ScalarSolver interface {
	Name() string
	Run(x0 []float64, budget int, objective func(x []float64) float64) (xOpt []float64, exitCode int, err error)
}

// NelderMeadSolver adapts gonum's Nelder-Mead simplex method. It backs
// both the "nelder-mead" and "simplex" method names: the reference
// describes them as two parameterizations of the same derivative-free
// family, and gonum exposes a single implementation.
type NelderMeadSolver struct {
	name string
}

func NewNelderMeadSolver(name string) *NelderMeadSolver {
	return &NelderMeadSolver{name: name}
}

func (s *NelderMeadSolver) Name() string { return s.name }

func (s *NelderMeadSolver) Run(x0 []float64, budget int, objective func(x []float64) float64) ([]float64, int, error) {
	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{FuncEvaluations: budget}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil && result == nil {
		return nil, codeNoConvergence, err
	}
	return result.X, mapScalarStatus(result.Status), nil
}

// BoundedQuasiNewtonSolver stands in for the reference's MMA variant: a
// gradient-based method whose gradient is estimated by finite
// differences taken from the run's own cached history rather than extra
// live evaluations, so it never exceeds the evaluation budget the
// replay driver grants it.
type BoundedQuasiNewtonSolver struct{}

func (s *BoundedQuasiNewtonSolver) Name() string { return "mma" }

func (s *BoundedQuasiNewtonSolver) Run(x0 []float64, budget int, objective func(x []float64) float64) ([]float64, int, error) {
	hist := &historyGradient{}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			f := objective(x)
			hist.record(x, f)
			return f
		},
		Grad: func(grad, x []float64) {
			hist.estimate(grad, x)
		},
	}
	settings := &optimize.Settings{FuncEvaluations: budget}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if err != nil && result == nil {
		return nil, codeNoConvergence, err
	}
	return result.X, mapScalarStatus(result.Status), nil
}

// historyGradient estimates a gradient from the two most recently
// evaluated points via a secant approximation, entirely from calls
// already charged to the replay budget.
type historyGradient struct {
	havePrev     bool
	prevX        []float64
	prevF        float64
	lastX        []float64
	lastF        float64
	haveLast     bool
}

func (h *historyGradient) record(x []float64, f float64) {
	if h.haveLast {
		h.prevX = h.lastX
		h.prevF = h.lastF
		h.havePrev = true
	}
	h.lastX = append([]float64(nil), x...)
	h.lastF = f
	h.haveLast = true
}

func (h *historyGradient) estimate(grad, x []float64) {
	if !h.havePrev {
		for i := range grad {
			grad[i] = 0
		}
		return
	}
	for i := range grad {
		dx := h.lastX[i] - h.prevX[i]
		if dx == 0 {
			grad[i] = 0
			continue
		}
		grad[i] = (h.lastF - h.prevF) / dx
	}
}

func mapScalarStatus(status optimize.Status) int {
	switch status {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold, optimize.StepConvergence:
		return codeConverged
	case optimize.FunctionEvaluationLimit, optimize.IterationLimit, optimize.RuntimeLimit:
		return codeBudgetExhausted
	default:
		return codeNoConvergence
	}
}
