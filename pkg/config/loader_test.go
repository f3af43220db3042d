package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	contents := `
lb: [0, 0, 0]
ub: [1, 1, 1]
initial_sample: 5
rk_const: 0.5
lhs_divisions: 2
mu: 0.01
nu: 0.05
gamma_quantile: 0.2
localopt_method: tr_ls
min_batch_size: 20
single_component_at_a_time: true
components: 214
active_runs_file: active_runs.txt
seed: 42
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	p, err := LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams failed: %v", err)
	}
	if p.Dim() != 3 {
		t.Fatalf("expected dimension 3, got %d", p.Dim())
	}
	if p.LocaloptMethod != MethodTrustRegionLS {
		t.Fatalf("expected localopt_method tr_ls, got %q", p.LocaloptMethod)
	}
	if p.Components != 214 {
		t.Fatalf("expected components 214, got %d", p.Components)
	}
	if p.Seed != 42 {
		t.Fatalf("expected seed 42, got %d", p.Seed)
	}
}

func TestLoadParamsMissingFile(t *testing.T) {
	_, err := LoadParams(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatalf("expected an error for a missing params file")
	}
}

func TestLoadParamsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("lb: [1, 2\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	_, err := LoadParams(path)
	if err == nil {
		t.Fatalf("expected a YAML parse error")
	}
}

func TestEffectiveGammaQuantileDefaultsToOne(t *testing.T) {
	p := Params{}
	if got := p.EffectiveGammaQuantile(); got != 1 {
		t.Fatalf("expected default gamma_quantile 1, got %f", got)
	}
	p.GammaQuantile = 0.3
	if got := p.EffectiveGammaQuantile(); got != 0.3 {
		t.Fatalf("expected gamma_quantile 0.3, got %f", got)
	}
}

func TestBoundsToCubeAndFromCubeRoundTrip(t *testing.T) {
	b := Bounds{Lb: []float64{-3, -2}, Ub: []float64{3, 2}}
	x := []float64{1.5, -0.5}
	cube := b.ToCube(x)
	back := b.FromCube(cube)
	for i := range x {
		if diff := back[i] - x[i]; diff > 1e-12 || diff < -1e-12 {
			t.Fatalf("round-trip mismatch at %d: got %f, want %f", i, back[i], x[i])
		}
	}
}
