package config

// Bounds describes the box-bounded domain the generator samples over.
// Lb and Ub must have the same length, which fixes the problem dimension n.
type Bounds struct {
	Lb []float64 `yaml:"lb"`
	Ub []float64 `yaml:"ub"`
}

// Dim returns the domain dimension implied by the bounds.
func (b Bounds) Dim() int {
	return len(b.Lb)
}

// ToCube maps a point from the original domain into [0,1]^n.
func (b Bounds) ToCube(x []float64) []float64 {
	cube := make([]float64, len(x))
	for i, xi := range x {
		span := b.Ub[i] - b.Lb[i]
		if span == 0 {
			cube[i] = 0
			continue
		}
		cube[i] = (xi - b.Lb[i]) / span
	}
	return cube
}

// FromCube maps a point from [0,1]^n back into the original domain.
func (b Bounds) FromCube(cube []float64) []float64 {
	x := make([]float64, len(cube))
	for i, ci := range cube {
		x[i] = ci*(b.Ub[i]-b.Lb[i]) + b.Lb[i]
	}
	return x
}

// LocalMethod enumerates the supported local-solver integrations (spec.md §4.6).
type LocalMethod string

const (
	// MethodNelderMead is the scalar derivative-free simplex method.
	MethodNelderMead LocalMethod = "nelder-mead"
	// MethodSimplex is an alias of MethodNelderMead: same solver, same settings.
	MethodSimplex LocalMethod = "simplex"
	// MethodMMA is the gradient-requiring scalar variant (finite-difference gradients).
	MethodMMA LocalMethod = "mma"
	// MethodTrustRegionLS is the vector-residual trust-region least-squares method.
	MethodTrustRegionLS LocalMethod = "tr_ls"
	// MethodBoundedLBFGS is the bounded limited-memory variable-metric vector method.
	MethodBoundedLBFGS LocalMethod = "blmvm_ls"
)

// Params mirrors the `params` mapping of spec.md §6, recognized by the
// generator entry point. Delta0Mult, Gatol and Fatol are handed to the
// vector solvers as given; a zero value is not replaced by a default.
// XtolRel, Grtol and Frtol are parsed but not read by any solver.
type Params struct {
	Bounds `yaml:",inline"`

	InitialSample int    `yaml:"initial_sample"`
	RkConst       float64 `yaml:"rk_const"`
	LhsDivisions  int    `yaml:"lhs_divisions"`
	Mu            float64 `yaml:"mu"`
	Nu            float64 `yaml:"nu"`
	GammaQuantile float64 `yaml:"gamma_quantile"`

	LocaloptMethod LocalMethod `yaml:"localopt_method"`
	XtolRel        float64     `yaml:"xtol_rel"`
	Grtol          float64     `yaml:"grtol"`
	Gatol          float64     `yaml:"gatol"`
	Fatol          float64     `yaml:"fatol"`
	Frtol          float64     `yaml:"frtol"`
	Delta0Mult     float64     `yaml:"delta_0_mult"`

	MinBatchSize int `yaml:"min_batch_size"`

	SingleComponentAtATime bool `yaml:"single_component_at_a_time"`
	Components             int  `yaml:"components"`
	// CombineComponentFunc reduces a vector of m residuals to one scalar.
	// Not serializable; set programmatically before calling Generate.
	CombineComponentFunc func([]float64) float64 `yaml:"-"`

	// ActiveRunsFile, if set, persists the run registry between invocations
	// (spec.md §4.5/§6). Empty means the set is not kept at all: each
	// Generate call starts from an empty set, so a run is advanced only in
	// the call that starts it.
	ActiveRunsFile string `yaml:"active_runs_file,omitempty"`

	// Seed seeds the sample generator's RNG. Zero means "use wall-clock time".
	Seed int64 `yaml:"seed,omitempty"`
}

// EffectiveGammaQuantile returns 1 (i.e. "no cut-off") when gamma_quantile is unset, matching
// spec.md §4.4's "else +inf" rule for an explicit zero-value Params.
func (p Params) EffectiveGammaQuantile() float64 {
	if p.GammaQuantile <= 0 {
		return 1
	}
	return p.GammaQuantile
}
