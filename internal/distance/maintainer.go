package distance

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/aposmm-go/aposmm/internal/history"
)

// CombineFunc reduces a logical point's per-component residual vector to
// a single scalar objective value.
type CombineFunc func(fvec []float64) float64

// Maintainer absorbs newly-returned history rows: it marks them known,
// folds component-mode residuals into a scalar f on the component-0 row,
// and updates every row's nearest-strictly-better-point fields.
type Maintainer struct {
	ComponentMode bool
	Combine       CombineFunc
}

// New returns a Maintainer. combine is ignored when componentMode is
// false.
func New(componentMode bool, combine CombineFunc) *Maintainer {
	return &Maintainer{ComponentMode: componentMode, Combine: combine}
}

// Absorb runs one pass of the distance maintainer over tbl, returning the
// deduplicated set of row indices that were newly marked known or whose
// derived fields changed.
func (m *Maintainer) Absorb(tbl *history.Table) []int {
	touched := make(map[int]bool)

	pending := tbl.KnownPending()
	if m.ComponentMode {
		m.combineReturnedComponents(tbl, pending)
	}
	for _, i := range pending {
		tbl.Mutate(i, func(r *history.Row) { r.KnownToAposmm = true })
		touched[i] = true
	}

	returned := tbl.Returned(m.ComponentMode)
	returnedSet := make(map[int]bool, len(returned))
	for _, i := range returned {
		returnedSet[i] = true
	}

	pendingSet := make(map[int]bool, len(pending))
	for _, i := range pending {
		pendingSet[i] = true
	}

	rows := tbl.All()
	for _, j := range pending {
		if !pendingSet[j] || !returnedSet[j] {
			continue
		}
		if m.updateBounds(tbl, j, rows[j]) {
			touched[j] = true
		}
		jChanged, peerChanged := m.updateBetterPointers(tbl, j, rows, returned)
		if jChanged {
			touched[j] = true
		}
		for _, i := range peerChanged {
			touched[i] = true
		}
	}

	out := make([]int, 0, len(touched))
	for i := range touched {
		out = append(out, i)
	}
	return out
}

// combineReturnedComponents folds per-component residuals into f = combine(fvec)
// on each logical point's component-0 row, once every component has returned.
func (m *Maintainer) combineReturnedComponents(tbl *history.Table, pending []int) {
	byPt := make(map[int][]int)
	for _, i := range pending {
		row := tbl.Get(i)
		byPt[row.PtID] = append(byPt[row.PtID], i)
	}

	allRows := tbl.All()
	for ptID, members := range byPt {
		complete := true
		var compZero = -1
		fvec := map[int]float64{}
		for i, row := range allRows {
			if row.PtID != ptID {
				continue
			}
			if !row.Returned {
				complete = false
				break
			}
			fvec[row.ObjComponent] = row.Fi
			if row.ObjComponent == 0 {
				compZero = i
			}
		}
		if !complete || compZero < 0 {
			continue
		}

		vec := make([]float64, len(fvec))
		for c, v := range fvec {
			if c < len(vec) {
				vec[c] = v
			}
		}

		f := m.Combine(vec)
		tbl.Mutate(compZero, func(r *history.Row) {
			r.F = f
			r.Fvec = append([]float64(nil), vec...)
		})
		for _, i := range members {
			if i != compZero {
				tbl.Mutate(i, func(r *history.Row) { r.F = math.Inf(1) })
			}
		}
	}
}

func (m *Maintainer) updateBounds(tbl *history.Table, j int, row history.Row) bool {
	d := distToUnitBounds(row.XOnCube)
	changed := d != row.DistToUnitBounds
	tbl.Mutate(j, func(r *history.Row) { r.DistToUnitBounds = d })
	return changed
}

func distToUnitBounds(xOnCube []float64) float64 {
	best := math.Inf(1)
	for _, x := range xOnCube {
		if x < best {
			best = x
		}
		if 1-x < best {
			best = 1 - x
		}
	}
	return best
}

// updateBetterPointers finds j's nearest strictly-better sample point and
// nearest strictly-better local point among the participating rows (the
// _s/_l split is keyed on the *neighbor's* local_pt, never j's own) and,
// symmetrically, updates any row for which j is now its nearest
// strictly-better point of the kind j itself is. It returns whether j's
// own fields changed, and the indices of any peer rows whose fields
// changed.
func (m *Maintainer) updateBetterPointers(tbl *history.Table, j int, rows []history.Row, participants []int) (bool, []int) {
	rowJ := rows[j]
	jChanged := false

	bestDistS, bestIdxS := math.Inf(1), -1
	bestDistL, bestIdxL := math.Inf(1), -1
	for _, i := range participants {
		if i == j {
			continue
		}
		ri := rows[i]
		if ri.F >= rowJ.F {
			continue
		}
		d := floats.Distance(rowJ.XOnCube, ri.XOnCube, 2)
		if ri.LocalPt {
			if d < bestDistL {
				bestDistL, bestIdxL = d, i
			}
		} else {
			if d < bestDistS {
				bestDistS, bestIdxS = d, i
			}
		}
	}
	if bestIdxS >= 0 {
		jChanged = true
		tbl.Mutate(j, func(r *history.Row) {
			r.DistToBetterS = bestDistS
			r.IndOfBetterS = bestIdxS
		})
	}
	if bestIdxL >= 0 {
		jChanged = true
		tbl.Mutate(j, func(r *history.Row) {
			r.DistToBetterL = bestDistL
			r.IndOfBetterL = bestIdxL
		})
	}

	var peerChanged []int
	for _, i := range participants {
		if i == j {
			continue
		}
		ri := rows[i]
		if ri.F <= rowJ.F {
			continue
		}
		d := floats.Distance(ri.XOnCube, rowJ.XOnCube, 2)
		// j is the better point here, so whether this updates the
		// peer's _s or _l pointer is keyed on j's own local_pt, not
		// the peer's. The comparison reads the peer's current fields,
		// not the snapshot, since earlier rows of this pass may have
		// already moved them.
		changed := false
		tbl.Mutate(i, func(r *history.Row) {
			if rowJ.LocalPt && d < r.DistToBetterL {
				r.DistToBetterL = d
				r.IndOfBetterL = j
				changed = true
			} else if !rowJ.LocalPt && d < r.DistToBetterS {
				r.DistToBetterS = d
				r.IndOfBetterS = j
				changed = true
			}
		})
		if changed {
			peerChanged = append(peerChanged, i)
		}
	}

	return jChanged, peerChanged
}
