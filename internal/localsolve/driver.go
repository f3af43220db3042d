package localsolve

import (
	"github.com/aposmm-go/aposmm/internal/history"
	"github.com/aposmm-go/aposmm/internal/registry"
	"github.com/aposmm-go/aposmm/pkg/config"
	"github.com/aposmm-go/aposmm/pkg/logger"
)

// Driver replays each active run's chosen local solver against the
// portion of history already belonging to that run, one generator
// invocation at a time.
type Driver struct {
	scalarSolvers map[config.LocalMethod]ScalarSolver
	vectorSolvers map[config.LocalMethod]VectorSolver

	// VectorSolverWarnings counts vector-solver panics absorbed without
	// terminating the run: the run stays active and is retried on the
	// next invocation, but no new point is produced this time.
	VectorSolverWarnings int
}

// NewDriver builds a Driver with the solver family for p.LocaloptMethod
// pre-constructed from p's tolerances.
func NewDriver(p config.Params) *Driver {
	d := &Driver{
		scalarSolvers: map[config.LocalMethod]ScalarSolver{
			config.MethodNelderMead: NewNelderMeadSolver(string(config.MethodNelderMead)),
			config.MethodSimplex:    NewNelderMeadSolver(string(config.MethodSimplex)),
			config.MethodMMA:        &BoundedQuasiNewtonSolver{},
		},
		vectorSolvers: map[config.LocalMethod]VectorSolver{
			config.MethodTrustRegionLS: NewTrustRegionLS(p.Delta0Mult, p.Gatol, p.Fatol),
			config.MethodBoundedLBFGS:  NewBoundedLBFGSVector(p.Delta0Mult, p.Gatol, p.Fatol, uint64(p.Seed)),
		},
	}
	return d
}

// StepResult reports what a single driver Step did.
type StepResult struct {
	Skipped  bool
	NewRows  []history.Row
	Converged bool
	LocalMinRow int // valid only if Converged
}

// Step implements a single replay of run's chosen solver against the
// run's current history. bounds maps new queries out of the unit cube;
// reg tracks which runs are still active (updated on convergence).
func (d *Driver) Step(tbl *history.Table, run int, method config.LocalMethod, bounds config.Bounds, componentMode bool, m int, reg *registry.Registry) (StepResult, error) {
	members := tbl.RowsInRun(run)
	if len(members) == 0 {
		return StepResult{Skipped: true}, nil
	}

	rows := make([]history.Row, len(members))
	for i, idx := range members {
		rows[i] = tbl.Get(idx)
	}
	for _, r := range rows {
		if !r.Returned {
			return StepResult{Skipped: true}, nil
		}
	}

	x0 := rows[0].XOnCube
	budget := len(members) + 1

	if scalar, ok := d.scalarSolvers[method]; ok {
		return d.stepScalar(tbl, run, scalar, rows, members, x0, budget, bounds, componentMode, reg)
	}
	if vector, ok := d.vectorSolvers[method]; ok {
		return d.stepVector(tbl, run, vector, rows, members, x0, budget, bounds, componentMode, m, reg)
	}
	return StepResult{}, &UnknownMethodError{Method: string(method)}
}

func (d *Driver) stepScalar(tbl *history.Table, run int, solver ScalarSolver, rows []history.Row, members []int, x0 []float64, budget int, bounds config.Bounds, componentMode bool, reg *registry.Registry) (StepResult, error) {
	stored := make([][]float64, len(rows))
	storedF := make([]float64, len(rows))
	for i, r := range rows {
		stored[i] = r.XOnCube
		storedF[i] = r.F
	}
	ctx := NewScalarReplay(stored, storedF)

	xOpt, exitCode, err := solver.Run(x0, budget, ctx.ScalarObjective)
	if err != nil {
		// A solver-library failure is treated as "no new point this
		// invocation"; the run stays active and is retried later.
		logger.Warn("local solver failed, run stays active", "run", run, "solver", solver.Name(), "error", err)
		return StepResult{Skipped: true}, nil
	}
	if ctx.Mismatch != nil {
		if rm, ok := ctx.Mismatch.(*ReplayMismatchError); ok {
			rm.Run = run
		}
		return StepResult{}, ctx.Mismatch
	}
	if ctx.SameAsLast {
		exitCode = codeRepeatedPoint
		ctx.XNew = nil
	}

	return d.finish(tbl, run, members, ctx.XNew, xOpt, exitCode, bounds, componentMode, 1, reg)
}

func (d *Driver) stepVector(tbl *history.Table, run int, solver VectorSolver, rows []history.Row, members []int, x0 []float64, budget int, bounds config.Bounds, componentMode bool, m int, reg *registry.Registry) (result StepResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.VectorSolverWarnings++
			result, err = StepResult{Skipped: true}, nil
		}
	}()

	stored := make([][]float64, len(rows))
	storedFvec := make([][]float64, len(rows))
	for i, r := range rows {
		stored[i] = r.XOnCube
		storedFvec[i] = r.Fvec
	}
	ctx := NewVectorReplay(stored, storedFvec)

	xOpt, exitCode := solver.Run(x0, m, budget, ctx.VectorObjective)
	if ctx.Mismatch != nil {
		if rm, ok := ctx.Mismatch.(*ReplayMismatchError); ok {
			rm.Run = run
		}
		return StepResult{}, ctx.Mismatch
	}
	if ctx.SameAsLast {
		exitCode = codeRepeatedPoint
		ctx.XNew = nil
	}

	return d.finish(tbl, run, members, ctx.XNew, xOpt, exitCode, bounds, componentMode, m, reg)
}

// finish implements the post-solver-return branching: record
// convergence, reject protocol violations, or append the run's next
// point.
func (d *Driver) finish(tbl *history.Table, run int, members []int, xNew, xOpt []float64, exitCode int, bounds config.Bounds, componentMode bool, m int, reg *registry.Registry) (StepResult, error) {
	if xNew == nil {
		if exitCode <= 0 {
			return StepResult{}, &NotDeclaredOptimalError{Run: run, ExitCode: exitCode}
		}
		return d.recordConvergence(tbl, run, members, xOpt, reg)
	}

	if dup := findDuplicate(tbl, xNew); dup >= 0 {
		return StepResult{}, &DuplicatePointError{Run: run, Point: xNew, Duplicate: dup}
	}

	newRow := history.Row{
		X:        bounds.FromCube(xNew),
		XOnCube:  xNew,
		Priority: 1,
		LocalPt:  true,
		NumActiveRuns: 1,
	}
	col := tbl.NumRuns()
	if col <= run {
		// NewRunColumn must already have allocated run's column; this is
		// a defensive guard against a caller passing a run id the
		// history table doesn't know about yet.
		for tbl.NumRuns() <= run {
			tbl.NewRunColumn()
		}
		col = tbl.NumRuns()
	}
	newRow.IterPlus1InRunID = make([]int, col)
	newRow.IterPlus1InRunID[run] = len(members) + 1

	var newRows []history.Row
	if componentMode {
		idx := tbl.Append(history.ExpandComponents(newRow, m, tbl.NextPtID())...)
		newRows = make([]history.Row, len(idx))
		for i, j := range idx {
			newRows[i] = tbl.Get(j)
		}
	} else {
		idx := tbl.Append(newRow)
		newRows = []history.Row{tbl.Get(idx[0])}
	}

	return StepResult{NewRows: newRows}, nil
}

func (d *Driver) recordConvergence(tbl *history.Table, run int, members []int, optimum []float64, reg *registry.Registry) (StepResult, error) {
	rows := tbl.All()
	matches := []int{}
	for _, idx := range members {
		if approxEqual(rows[idx].XOnCube, optimum, replayTolerance) {
			matches = append(matches, idx)
		}
	}
	if len(matches) != 1 {
		return StepResult{}, &NonUniqueOptimumError{Run: run, Optimum: optimum, Matches: matches}
	}

	localMin := matches[0]
	tbl.Mutate(localMin, func(r *history.Row) {
		r.LocalMin = true
	})
	for _, idx := range members {
		tbl.Mutate(idx, func(r *history.Row) {
			if r.NumActiveRuns > 0 {
				r.NumActiveRuns--
			}
		})
	}
	if reg != nil {
		reg.Remove(run)
	}

	return StepResult{Converged: true, LocalMinRow: localMin}, nil
}

func findDuplicate(tbl *history.Table, x []float64) int {
	rows := tbl.All()
	for i, r := range rows {
		if approxEqual(r.XOnCube, x, replayTolerance) {
			return i
		}
	}
	return -1
}
