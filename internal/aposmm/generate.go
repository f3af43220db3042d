// Package aposmm implements the generator entry point: the single
// function the manager calls once per round to absorb newly-returned
// evaluations, advance every active local-optimization run by one step,
// start new runs where the selector finds promising seeds, and pad the
// output batch back up to the configured minimum size.
package aposmm

import (
	"fmt"

	"github.com/aposmm-go/aposmm/internal/distance"
	"github.com/aposmm-go/aposmm/internal/history"
	"github.com/aposmm-go/aposmm/internal/localsolve"
	"github.com/aposmm-go/aposmm/internal/registry"
	"github.com/aposmm-go/aposmm/internal/sampler"
	"github.com/aposmm-go/aposmm/internal/selection"
	"github.com/aposmm-go/aposmm/pkg/config"
	"github.com/aposmm-go/aposmm/pkg/logger"
	"github.com/aposmm-go/aposmm/pkg/utils"
)

// Generator wires together every package implementing one step of
// spec §4.8's 8-step flow. It is safe to reuse across invocations; it
// holds no state of its own beyond the solver objects the driver caches
// and the RNG, mirroring the reference's "no suspension points, fully
// sequential" concurrency model.
type Generator struct {
	driver *localsolve.Driver
	rng    *utils.RandSource
}

// New builds a Generator for the given params. p.CombineComponentFunc
// must be set before calling Generate when p.SingleComponentAtATime is
// true; it cannot be validated at config-load time since it is not
// YAML-serializable.
func New(p config.Params) *Generator {
	return &Generator{
		driver: localsolve.NewDriver(p),
		rng:    utils.NewRandSource(p.Seed),
	}
}

// Generate runs one invocation of the generator over tbl, returning the
// rows the manager should act on: every row touched by the distance
// maintainer or the driver this round, followed by any newly-appended
// rows (new local-run points and sample padding).
func (g *Generator) Generate(tbl *history.Table, p config.Params) ([]history.Row, error) {
	if p.SingleComponentAtATime && p.CombineComponentFunc == nil {
		return nil, fmt.Errorf("aposmm: single_component_at_a_time requires a non-nil CombineComponentFunc")
	}

	m := p.Components
	componentMode := p.SingleComponentAtATime

	nS := selection.CountSamples(tbl, componentMode)
	if nS < p.InitialSample {
		logger.Debug("insufficient sample count, skipping local-optimization steps", "n_s", nS, "initial_sample", p.InitialSample)
		padded := sampler.Fill(tbl, p.Bounds, p.MinBatchSize, 0, componentMode, m, g.rng)
		return padded, nil
	}

	var reg *registry.Registry
	var err error
	if p.ActiveRunsFile != "" {
		reg, err = registry.Load(p.ActiveRunsFile, tbl.NumRuns())
		if err != nil {
			return nil, fmt.Errorf("aposmm: failed to load active-run registry: %w", err)
		}
	} else {
		reg, _ = registry.Load("", tbl.NumRuns())
	}

	touched := make(map[int]bool)

	maintainer := distance.New(componentMode, distance.CombineFunc(p.CombineComponentFunc))
	for _, i := range maintainer.Absorb(tbl) {
		touched[i] = true
	}

	selParams := selection.Params{
		N:             p.Bounds.Dim(),
		RkConst:       p.RkConst,
		LhsDivisions:  p.LhsDivisions,
		Mu:            p.Mu,
		Nu:            p.Nu,
		Gamma:         p.EffectiveGammaQuantile(),
		ComponentMode: componentMode,
	}
	seeds := selection.Select(tbl, selParams)
	for _, i := range seeds.All() {
		touched[i] = true
		run := tbl.NewRunColumn()
		tbl.Mutate(i, func(r *history.Row) {
			r.StartedRun = true
			r.NumActiveRuns++
			r.IterPlus1InRunID[run] = 1
		})
		reg.Add(run)
	}

	var newRows []history.Row
	for _, run := range reg.Active() {
		result, err := g.driver.Step(tbl, run, p.LocaloptMethod, p.Bounds, componentMode, m, reg)
		if err != nil {
			return nil, fmt.Errorf("aposmm: local-solver driver failed on run %d: %w", run, err)
		}
		if result.Skipped {
			continue
		}
		if result.Converged {
			touched[result.LocalMinRow] = true
			for _, idx := range tbl.RowsInRun(run) {
				touched[idx] = true
			}
			continue
		}
		newRows = append(newRows, result.NewRows...)
	}

	if p.ActiveRunsFile != "" {
		if err := reg.Save(); err != nil {
			return nil, fmt.Errorf("aposmm: failed to persist active-run registry: %w", err)
		}
	}

	already := len(newRows)
	newRows = append(newRows, sampler.Fill(tbl, p.Bounds, p.MinBatchSize, already, componentMode, m, g.rng)...)

	out := make([]history.Row, 0, len(touched)+len(newRows))
	for i := range touched {
		out = append(out, tbl.Get(i))
	}
	out = append(out, newRows...)
	return out, nil
}
