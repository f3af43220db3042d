// Package sampler pads a generator batch out to the configured minimum
// size with uninformed uniform-random points, the same role the
// reference's `sample_points` batch top-up plays once the start-point
// selector has had its say.
package sampler

import (
	"github.com/aposmm-go/aposmm/internal/history"
	"github.com/aposmm-go/aposmm/pkg/config"
	"github.com/aposmm-go/aposmm/pkg/utils"
)

// Fill appends minBatchSize - already uniform-random points (on the unit
// cube) to tbl, or none if that is not positive. already is the count of
// rows the caller is already returning this invocation (e.g. new
// local-run points).
//
// In component mode each logical point expands to m rows sharing a
// pt_id via history.ExpandComponents, so the returned slice holds
// (minBatchSize - already) * m rows and can exceed minBatchSize.
func Fill(tbl *history.Table, bounds config.Bounds, minBatchSize, already int, componentMode bool, m int, rng *utils.RandSource) []history.Row {
	need := minBatchSize - already
	if need <= 0 {
		return nil
	}

	n := bounds.Dim()
	var out []history.Row
	for i := 0; i < need; i++ {
		cube := make([]float64, n)
		for j := range cube {
			cube[j] = rng.Float64()
		}
		logical := history.Row{
			X:        bounds.FromCube(cube),
			XOnCube:  cube,
			Priority: rng.Float64(),
		}

		if componentMode {
			idx := tbl.Append(history.ExpandComponents(logical, m, tbl.NextPtID())...)
			for _, j := range idx {
				out = append(out, tbl.Get(j))
			}
		} else {
			idx := tbl.Append(logical)
			out = append(out, tbl.Get(idx[0]))
		}
	}
	return out
}
