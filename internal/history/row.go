// Package history implements the append-only history table APOSMM drives
// its local-solver replays and start-point selection against.
package history

// Row is one evaluated (or pending-evaluation) point in the history.
// This type carries both the scalar mode and component mode shapes,
// since Go has no row-polymorphic arrays — callers that never enable
// component mode simply leave ObjComponent, PtID, Fi and Fvec at their
// zero values.
type Row struct {
	SimID    int
	X        []float64
	XOnCube  []float64
	Priority float64

	LocalPt       bool
	KnownToAposmm bool
	Returned      bool

	F    float64
	Fvec []float64 // length m, component mode only

	DistToUnitBounds float64

	DistToBetterS float64
	IndOfBetterS  int // -1 if none
	DistToBetterL float64
	IndOfBetterL  int // -1 if none

	StartedRun    bool
	NumActiveRuns int
	// IterPlus1InRunID[r] is 0 if this row is not part of run r, else
	// 1 + the 0-based step at which the row was produced within run r.
	IterPlus1InRunID []int
	LocalMin         bool

	// Component mode only.
	ObjComponent int
	PtID         int
	Fi           float64
}

// clone returns a deep copy safe to hand to a caller without aliasing the
// table's backing slices.
func (r Row) clone() Row {
	out := r
	out.X = append([]float64(nil), r.X...)
	out.XOnCube = append([]float64(nil), r.XOnCube...)
	if r.Fvec != nil {
		out.Fvec = append([]float64(nil), r.Fvec...)
	}
	out.IterPlus1InRunID = append([]int(nil), r.IterPlus1InRunID...)
	return out
}

// ExpandComponents replicates a logical point into m component rows
// sharing ptID, each carrying the same x and x_on_cube. Only the
// component-0 row keeps the logical row's run-tracking fields
// (NumActiveRuns, IterPlus1InRunID, StartedRun); the rest exist purely
// so the manager can evaluate each residual component independently.
func ExpandComponents(logical Row, m, ptID int) []Row {
	rows := make([]Row, m)
	for c := 0; c < m; c++ {
		row := Row{
			X:        append([]float64(nil), logical.X...),
			XOnCube:  append([]float64(nil), logical.XOnCube...),
			Priority: logical.Priority,
			LocalPt:  logical.LocalPt,

			ObjComponent: c,
			PtID:         ptID,
		}
		if c == 0 {
			row.NumActiveRuns = logical.NumActiveRuns
			row.StartedRun = logical.StartedRun
			row.IterPlus1InRunID = append([]int(nil), logical.IterPlus1InRunID...)
		}
		rows[c] = row
	}
	return rows
}
