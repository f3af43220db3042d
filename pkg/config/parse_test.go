package config

import "testing"

func TestParseParamsYAMLString(t *testing.T) {
	p, err := ParseParamsYAMLString(`
lb: [-3, -2]
ub: [3, 2]
initial_sample: 100
rk_const: 1.0
min_batch_size: 50
localopt_method: simplex
`)
	if err != nil {
		t.Fatalf("ParseParamsYAMLString failed: %v", err)
	}
	if p.Dim() != 2 {
		t.Fatalf("expected dimension 2, got %d", p.Dim())
	}
	if p.InitialSample != 100 {
		t.Fatalf("expected initial_sample 100, got %d", p.InitialSample)
	}
	if p.LocaloptMethod != MethodSimplex {
		t.Fatalf("expected localopt_method simplex, got %q", p.LocaloptMethod)
	}
}

func TestParseParamsYAMLStringMismatchedBounds(t *testing.T) {
	_, err := ParseParamsYAMLString(`
lb: [-3, -2]
ub: [3]
initial_sample: 10
rk_const: 1.0
`)
	if err == nil {
		t.Fatalf("expected validation error for mismatched lb/ub lengths")
	}
}

func TestParseParamsYAMLStringInvertedBounds(t *testing.T) {
	_, err := ParseParamsYAMLString(`
lb: [3]
ub: [-3]
initial_sample: 10
rk_const: 1.0
`)
	if err == nil {
		t.Fatalf("expected validation error for lb >= ub")
	}
}

func TestParseParamsYAMLStringRequiresComponentsInComponentMode(t *testing.T) {
	_, err := ParseParamsYAMLString(`
lb: [-1]
ub: [1]
rk_const: 1.0
single_component_at_a_time: true
`)
	if err == nil {
		t.Fatalf("expected validation error when components is unset in component mode")
	}
}

func TestParseParamsYAMLStringInvalidGammaQuantile(t *testing.T) {
	_, err := ParseParamsYAMLString(`
lb: [-1]
ub: [1]
rk_const: 1.0
gamma_quantile: 1.5
`)
	if err == nil {
		t.Fatalf("expected validation error for gamma_quantile out of [0,1]")
	}
}

func TestParseParamsYAMLStringInvalid(t *testing.T) {
	_, err := ParseParamsYAMLString(`lb: []`)
	if err == nil {
		t.Fatalf("expected validation error for empty bounds")
	}
}
