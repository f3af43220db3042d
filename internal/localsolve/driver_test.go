package localsolve

import (
	"testing"

	"github.com/aposmm-go/aposmm/internal/history"
	"github.com/aposmm-go/aposmm/internal/registry"
	"github.com/aposmm-go/aposmm/pkg/config"
)

// fakeScalarSolver scripts an exact query sequence against the replay
// objective, letting these tests drive the driver's branching without
// depending on any real solver library's internal iteration order.
type fakeScalarSolver struct {
	queries  [][]float64
	xOpt     []float64
	exitCode int
}

func (f *fakeScalarSolver) Name() string { return "fake" }

func (f *fakeScalarSolver) Run(x0 []float64, budget int, objective func(x []float64) float64) ([]float64, int, error) {
	for _, q := range f.queries {
		objective(q)
	}
	return f.xOpt, f.exitCode, nil
}

func newDriverWithFake(solver ScalarSolver) *Driver {
	return &Driver{
		scalarSolvers: map[config.LocalMethod]ScalarSolver{config.MethodNelderMead: solver},
		vectorSolvers: map[config.LocalMethod]VectorSolver{},
	}
}

func boundsUnit(n int) config.Bounds {
	lb := make([]float64, n)
	ub := make([]float64, n)
	for i := range ub {
		ub[i] = 1
	}
	return config.Bounds{Lb: lb, Ub: ub}
}

// setUpRun seeds a 2-row run (run column 0) with returned rows at the
// given XOnCube/F values, mirroring a run that has already had 2 points
// evaluated and is ready for its 3rd driver step (scenario S4).
func setUpRun(t *testing.T, stored [][]float64, storedF []float64) *history.Table {
	t.Helper()
	tbl := history.New()
	run := tbl.NewRunColumn()
	if run != 0 {
		t.Fatalf("expected first run column to be 0, got %d", run)
	}
	for i, x := range stored {
		idx := tbl.Append(history.Row{X: x, XOnCube: x, Returned: true, F: storedF[i]})[0]
		tbl.Mutate(idx, func(r *history.Row) { r.IterPlus1InRunID[0] = i + 1 })
	}
	return tbl
}

func TestStepCapturesNewPointBeyondStoredPrefix(t *testing.T) {
	stored := [][]float64{{0.1, 0.1}, {0.2, 0.2}}
	storedF := []float64{1, 0.5}
	tbl := setUpRun(t, stored, storedF)

	newPoint := []float64{0.3, 0.3}
	fake := &fakeScalarSolver{queries: [][]float64{stored[0], stored[1], newPoint}, xOpt: newPoint, exitCode: 0}
	d := newDriverWithFake(fake)

	result, err := d.Step(tbl, 0, config.MethodNelderMead, boundsUnit(2), false, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped || result.Converged {
		t.Fatalf("expected a new point, got %+v", result)
	}
	if len(result.NewRows) != 1 {
		t.Fatalf("expected exactly 1 new row, got %d", len(result.NewRows))
	}
	got := result.NewRows[0]
	if got.XOnCube[0] != 0.3 || got.XOnCube[1] != 0.3 {
		t.Fatalf("expected new row at %v, got %v", newPoint, got.XOnCube)
	}
	if !got.LocalPt {
		t.Fatalf("expected new row to be marked local_pt")
	}
	if got.IterPlus1InRunID[0] != 3 {
		t.Fatalf("expected iter_plus_1_in_run_id[0] == 3, got %d", got.IterPlus1InRunID[0])
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected history to grow to 3 rows, got %d", tbl.Len())
	}
}

func TestStepRejectsDuplicatePoint(t *testing.T) {
	stored := [][]float64{{0.1, 0.1}, {0.2, 0.2}}
	storedF := []float64{1, 0.5}
	tbl := setUpRun(t, stored, storedF)

	// The solver's next query duplicates the run's own first stored point.
	duplicate := []float64{0.1, 0.1}
	fake := &fakeScalarSolver{queries: [][]float64{stored[0], stored[1], duplicate}, xOpt: duplicate, exitCode: 0}
	d := newDriverWithFake(fake)

	_, err := d.Step(tbl, 0, config.MethodNelderMead, boundsUnit(2), false, 1, nil)
	dupErr, ok := err.(*DuplicatePointError)
	if !ok {
		t.Fatalf("expected *DuplicatePointError, got %v (%T)", err, err)
	}
	if dupErr.Duplicate != 0 {
		t.Fatalf("expected duplicate of row 0, got row %d", dupErr.Duplicate)
	}
}

func TestStepRecordsConvergenceAndDecrementsActiveRuns(t *testing.T) {
	stored := [][]float64{{0.1, 0.1}, {0.2, 0.2}}
	storedF := []float64{1, 0.5}
	tbl := setUpRun(t, stored, storedF)
	for _, idx := range []int{0, 1} {
		tbl.Mutate(idx, func(r *history.Row) { r.NumActiveRuns = 1 })
	}

	fake := &fakeScalarSolver{queries: [][]float64{stored[0], stored[1]}, xOpt: stored[1], exitCode: 1}
	d := newDriverWithFake(fake)

	reg, err := registry.Load(t.TempDir()+"/active_runs.txt", 1)
	if err != nil {
		t.Fatalf("unexpected registry error: %v", err)
	}
	reg.Add(0)

	result, err := d.Step(tbl, 0, config.MethodNelderMead, boundsUnit(2), false, 1, reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Converged || result.LocalMinRow != 1 {
		t.Fatalf("expected convergence at row 1, got %+v", result)
	}
	if !tbl.Get(1).LocalMin {
		t.Fatalf("expected row 1 marked local_min")
	}
	if tbl.Get(0).NumActiveRuns != 0 || tbl.Get(1).NumActiveRuns != 0 {
		t.Fatalf("expected num_active_runs decremented to 0 on both run rows")
	}
	if len(reg.Active()) != 0 {
		t.Fatalf("expected run removed from registry, got %v", reg.Active())
	}
}

func TestStepRecordsConvergenceWhenSolverRepeatsLastPoint(t *testing.T) {
	stored := [][]float64{{0.1, 0.1}, {0.2, 0.2}}
	storedF := []float64{1, 0.5}
	tbl := setUpRun(t, stored, storedF)
	for _, idx := range []int{0, 1} {
		tbl.Mutate(idx, func(r *history.Row) { r.NumActiveRuns = 1 })
	}

	// The solver signals "already at a minimum" by asking for the last
	// stored point a second time, rather than returning a positive exit
	// code directly.
	fake := &fakeScalarSolver{queries: [][]float64{stored[0], stored[1], stored[1]}, xOpt: stored[1], exitCode: 0}
	d := newDriverWithFake(fake)

	reg, err := registry.Load(t.TempDir()+"/active_runs.txt", 1)
	if err != nil {
		t.Fatalf("unexpected registry error: %v", err)
	}
	reg.Add(0)

	result, err := d.Step(tbl, 0, config.MethodNelderMead, boundsUnit(2), false, 1, reg)
	if err != nil {
		t.Fatalf("expected repeated-point convergence, got error: %v", err)
	}
	if !result.Converged || result.LocalMinRow != 1 {
		t.Fatalf("expected convergence at row 1, got %+v", result)
	}
	if len(reg.Active()) != 0 {
		t.Fatalf("expected run removed from registry, got %v", reg.Active())
	}
}

func TestStepRejectsNoNewPointWithoutConvergence(t *testing.T) {
	stored := [][]float64{{0.1, 0.1}, {0.2, 0.2}}
	storedF := []float64{1, 0.5}
	tbl := setUpRun(t, stored, storedF)

	fake := &fakeScalarSolver{queries: [][]float64{stored[0], stored[1]}, xOpt: stored[1], exitCode: 0}
	d := newDriverWithFake(fake)

	_, err := d.Step(tbl, 0, config.MethodNelderMead, boundsUnit(2), false, 1, nil)
	if _, ok := err.(*NotDeclaredOptimalError); !ok {
		t.Fatalf("expected *NotDeclaredOptimalError, got %v (%T)", err, err)
	}
}

func TestStepSkipsRunWithUnreturnedMember(t *testing.T) {
	tbl := history.New()
	tbl.NewRunColumn()
	idx := tbl.Append(history.Row{X: []float64{0.1}, XOnCube: []float64{0.1}, Returned: false})[0]
	tbl.Mutate(idx, func(r *history.Row) { r.IterPlus1InRunID[0] = 1 })

	d := newDriverWithFake(&fakeScalarSolver{})
	result, err := d.Step(tbl, 0, config.MethodNelderMead, boundsUnit(1), false, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("expected run with unreturned member to be skipped")
	}
}

func TestStepReportsUnknownMethod(t *testing.T) {
	stored := [][]float64{{0.1, 0.1}}
	storedF := []float64{1}
	tbl := setUpRun(t, stored, storedF)

	d := &Driver{scalarSolvers: map[config.LocalMethod]ScalarSolver{}, vectorSolvers: map[config.LocalMethod]VectorSolver{}}
	_, err := d.Step(tbl, 0, config.MethodMMA, boundsUnit(2), false, 1, nil)
	if _, ok := err.(*UnknownMethodError); !ok {
		t.Fatalf("expected *UnknownMethodError, got %v (%T)", err, err)
	}
}

func TestStepExpandsComponentsForNewPoint(t *testing.T) {
	stored := [][]float64{{0.1, 0.1}, {0.2, 0.2}}
	storedF := []float64{1, 0.5}
	tbl := setUpRun(t, stored, storedF)

	newPoint := []float64{0.3, 0.3}
	fake := &fakeScalarSolver{queries: [][]float64{stored[0], stored[1], newPoint}, xOpt: newPoint, exitCode: 0}
	d := newDriverWithFake(fake)

	result, err := d.Step(tbl, 0, config.MethodNelderMead, boundsUnit(2), true, 3, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.NewRows) != 3 {
		t.Fatalf("expected 3 component rows, got %d", len(result.NewRows))
	}
	ptID := result.NewRows[0].PtID
	for c, r := range result.NewRows {
		if r.ObjComponent != c {
			t.Fatalf("component %d: expected obj_component %d, got %d", c, c, r.ObjComponent)
		}
		if r.PtID != ptID {
			t.Fatalf("expected all components to share pt_id %d, got %d", ptID, r.PtID)
		}
	}
}
