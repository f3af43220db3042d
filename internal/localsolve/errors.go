package localsolve

import "fmt"

// UnknownMethodError indicates an unrecognized localopt_method value.
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return "unknown local-optimization method: " + e.Method
}

// ReplayMismatchError indicates a solver requested a query that does not
// match the stored history point at the same replay step, meaning the
// solver is not deterministic or the history bookkeeping has drifted.
type ReplayMismatchError struct {
	Run        int
	Step       int
	Got        []float64
	Want       []float64
	ToleranceL float64
}

func (e *ReplayMismatchError) Error() string {
	return fmt.Sprintf("run %d: replay mismatch at step %d: got %v, want %v within %g", e.Run, e.Step, e.Got, e.Want, e.ToleranceL)
}

// DuplicatePointError indicates a solver produced a query that matches
// an existing history point within the replay tolerance.
type DuplicatePointError struct {
	Run       int
	Point     []float64
	Duplicate int
}

func (e *DuplicatePointError) Error() string {
	return fmt.Sprintf("run %d: new point %v duplicates existing row %d", e.Run, e.Point, e.Duplicate)
}

// NotDeclaredOptimalError indicates a solver returned with no new query
// and an exit code that does not signal convergence: a protocol
// violation, since a finished replay must either advance or converge.
type NotDeclaredOptimalError struct {
	Run      int
	ExitCode int
}

func (e *NotDeclaredOptimalError) Error() string {
	return fmt.Sprintf("run %d: solver produced no new point and exit code %d does not indicate convergence", e.Run, e.ExitCode)
}

// NonUniqueOptimumError indicates that, when recording convergence, the
// solver's reported optimum matches either none or more than one of the
// run's rows within the replay tolerance.
type NonUniqueOptimumError struct {
	Run     int
	Optimum []float64
	Matches []int
}

func (e *NonUniqueOptimumError) Error() string {
	return fmt.Sprintf("run %d: optimum %v matches %d history rows, expected exactly one", e.Run, e.Optimum, len(e.Matches))
}
