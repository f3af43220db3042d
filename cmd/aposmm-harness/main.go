// Command aposmm-harness drives the generator against an in-process
// stand-in for a manager: it evaluates every row the generator proposes
// immediately, feeds the evaluated rows back in, and repeats for a fixed
// number of rounds. It exists to exercise the generator end-to-end
// without a real simulation backend, the same role cmd/simd's HTTP/gRPC
// front end plays for the teacher's optimizer, scaled down to a single
// in-process loop since APOSMM's external interface is a plain function
// call rather than a network service.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/aposmm-go/aposmm/internal/aposmm"
	"github.com/aposmm-go/aposmm/internal/history"
	"github.com/aposmm-go/aposmm/pkg/config"
	"github.com/aposmm-go/aposmm/pkg/logger"
)

// sixHumpCamel is the scenario-S2 test objective: a 2-D function with
// six known local minima, two of which are global.
func sixHumpCamel(x []float64) float64 {
	a, b := x[0], x[1]
	return (4-2.1*a*a+a*a*a*a/3)*a*a + a*b + (-4+4*b*b)*b*b
}

func main() {
	var paramsPath string
	var rounds int
	var logLevel string

	flag.StringVar(&paramsPath, "params", "", "path to a generator params YAML file (uses a built-in six-hump-camel scenario if empty)")
	flag.IntVar(&rounds, "rounds", 20, "number of generator invocations to run")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger.SetDefault(logger.NewText(logLevel, os.Stdout))

	params, err := loadParams(paramsPath)
	if err != nil {
		logger.Error("failed to load params", "error", err)
		os.Exit(1)
	}

	tbl := history.New()
	gen := aposmm.New(*params)

	for round := 0; round < rounds; round++ {
		batch, err := gen.Generate(tbl, *params)
		if err != nil {
			logger.Error("generator invocation failed", "round", round, "error", err)
			os.Exit(1)
		}

		for _, row := range batch {
			if row.Returned {
				continue
			}
			f := sixHumpCamel(row.X)
			tbl.Mutate(row.SimID, func(r *history.Row) {
				r.F = f
				r.Returned = true
			})
		}

		logger.Info("round complete", "round", round, "batch_size", len(batch), "history_size", tbl.Len())
	}

	best := bestRow(tbl)
	fmt.Printf("best point after %d rounds: x=%v f=%g (sim_id=%d)\n", rounds, best.X, best.F, best.SimID)
}

func bestRow(tbl *history.Table) history.Row {
	rows := tbl.All()
	best := history.Row{F: math.Inf(1)}
	for _, r := range rows {
		if r.Returned && r.F < best.F {
			best = r
		}
	}
	return best
}

func loadParams(path string) (*config.Params, error) {
	if path != "" {
		return config.LoadParams(path)
	}
	return config.ParseParamsYAML([]byte(`
lb: [-3, -2]
ub: [3, 2]
initial_sample: 20
rk_const: 1.0
min_batch_size: 10
localopt_method: simplex
delta_0_mult: 0.1
gatol: 1e-6
fatol: 1e-8
seed: 1
`))
}
