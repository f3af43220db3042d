// Package selection implements the start-point selector: the rules that
// decide which rows in the history are promising seeds for a new local
// optimization run.
package selection

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/aposmm-go/aposmm/internal/distance"
	"github.com/aposmm-go/aposmm/internal/history"
	"github.com/aposmm-go/aposmm/pkg/utils"
)

// Params bundles the user-tunable selection knobs.
type Params struct {
	N             int
	RkConst       float64
	LhsDivisions  int
	Mu            float64 // L4: minimum distance to the unit-cube boundary
	Nu            float64 // L5: minimum distance to any recorded local minimum, 0 disables
	Gamma         float64 // sample cutoff quantile in (0, 1]; 1 (or <=0) disables the cutoff
	ComponentMode bool    // true if history rows are split one-per-objective-component
}

// Result holds the rows selected as run seeds, split by kind since the
// caller treats sample-origin and local-origin seeds identically once
// chosen but the distinction is useful for logging and tests.
type Result struct {
	SampleSeeds []int
	LocalSeeds  []int
}

// All returns every selected row index, sample seeds first.
func (r Result) All() []int {
	out := make([]int, 0, len(r.SampleSeeds)+len(r.LocalSeeds))
	out = append(out, r.SampleSeeds...)
	out = append(out, r.LocalSeeds...)
	return out
}

// Select applies rules S1-S5 and L1-L7 over tbl and returns the rows
// eligible to seed a new local run. Rule L8 (an r_k-ascent reachability
// condition) is not implemented: the reference behavior disables it, and
// its semantics are undefined when enabled.
func Select(tbl *history.Table, p Params) Result {
	rows := tbl.All()

	nS := countSamples(rows, p.ComponentMode)
	rk := distance.CriticalRadius(p.N, nS, p.RkConst, p.LhsDivisions)
	cutoff := gammaCutoff(rows, p.Gamma)

	var localMinima [][]float64
	if p.Nu > 0 {
		for _, r := range rows {
			if r.LocalMin {
				localMinima = append(localMinima, r.XOnCube)
			}
		}
	}

	var res Result
	for i, r := range rows {
		if !commonPredicate(r, rk, p, localMinima) {
			continue
		}
		if r.LocalPt {
			if r.DistToBetterL > rk && !math.IsInf(r.F, 1) && r.NumActiveRuns == 0 && !r.LocalMin {
				res.LocalSeeds = append(res.LocalSeeds, i)
			}
			continue
		}
		if r.F <= cutoff && !math.IsInf(r.F, 1) && r.DistToBetterL > rk {
			res.SampleSeeds = append(res.SampleSeeds, i)
		}
	}
	return res
}

// commonPredicate implements the T predicate shared by sample and local
// seed eligibility: returned, L2 (dist_to_better_s > r_k), L3 (never
// started a run), L4 (far enough from the unit-cube boundary), and L5
// (far enough from every known local minimum, when nu > 0).
func commonPredicate(r history.Row, rk float64, p Params, localMinima [][]float64) bool {
	if !r.Returned {
		return false
	}
	if r.DistToBetterS <= rk {
		return false
	}
	if r.StartedRun {
		return false
	}
	if r.DistToUnitBounds < p.Mu {
		return false
	}
	if p.Nu > 0 {
		for _, m := range localMinima {
			if floats.Distance(r.XOnCube, m, 2) < p.Nu {
				return false
			}
		}
	}
	return true
}

// CountSamples returns n_s, the count of returned, non-local-point rows
// in tbl: the threshold the generator entry point checks before doing
// any local-optimization work at all. In component mode a logical point
// is split across m rows sharing a pt_id, so it must be counted once,
// not once per component.
func CountSamples(tbl *history.Table, componentMode bool) int {
	return countSamples(tbl.All(), componentMode)
}

// countSamples counts returned, non-local-point rows (n_s): one per
// logical point. In component mode, fvec is populated only on the
// component-0 row once every component has returned, so component index
// (not fvec nil-ness) is what identifies the row to skip.
func countSamples(rows []history.Row, componentMode bool) int {
	n := 0
	for _, r := range rows {
		if !r.Returned || r.LocalPt {
			continue
		}
		if componentMode && r.ObjComponent != 0 {
			continue
		}
		n++
	}
	return n
}

// gammaCutoff returns the gamma-quantile of f over sample rows, or +Inf
// when gamma disables the cutoff.
func gammaCutoff(rows []history.Row, gamma float64) float64 {
	if gamma <= 0 || gamma >= 1 {
		return math.Inf(1)
	}

	var fs []float64
	for _, r := range rows {
		if !r.Returned || r.LocalPt || math.IsInf(r.F, 1) {
			continue
		}
		fs = append(fs, r.F)
	}
	if len(fs) == 0 {
		return math.Inf(1)
	}

	return utils.Percentile(fs, gamma*100)
}
