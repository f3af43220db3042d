package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseParamsYAML parses Params from YAML bytes and validates them.
// Used when params arrive as a payload rather than from a file.
func ParseParamsYAML(data []byte) (*Params, error) {
	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse params yaml: %w", err)
	}

	if err := validateParams(&p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	return &p, nil
}

// ParseParamsYAMLString parses Params from a YAML string and validates them.
func ParseParamsYAMLString(yamlText string) (*Params, error) {
	return ParseParamsYAML([]byte(yamlText))
}

// validateParams performs validation on the generator parameters.
func validateParams(p *Params) error {
	if len(p.Lb) == 0 || len(p.Ub) == 0 {
		return fmt.Errorf("lb and ub must both be non-empty")
	}
	if len(p.Lb) != len(p.Ub) {
		return fmt.Errorf("lb and ub must have the same length, got %d and %d", len(p.Lb), len(p.Ub))
	}
	for i := range p.Lb {
		if p.Lb[i] >= p.Ub[i] {
			return fmt.Errorf("lb[%d] (%f) must be strictly less than ub[%d] (%f)", i, p.Lb[i], i, p.Ub[i])
		}
	}
	if p.InitialSample < 0 {
		return fmt.Errorf("initial_sample cannot be negative, got %d", p.InitialSample)
	}
	if p.RkConst <= 0 {
		return fmt.Errorf("rk_const must be positive, got %f", p.RkConst)
	}
	if p.LhsDivisions < 0 {
		return fmt.Errorf("lhs_divisions cannot be negative, got %d", p.LhsDivisions)
	}
	if p.Mu < 0 {
		return fmt.Errorf("mu cannot be negative, got %f", p.Mu)
	}
	if p.Nu < 0 {
		return fmt.Errorf("nu cannot be negative, got %f", p.Nu)
	}
	if p.GammaQuantile < 0 || p.GammaQuantile > 1 {
		return fmt.Errorf("gamma_quantile must be in [0,1], got %f", p.GammaQuantile)
	}
	if p.MinBatchSize < 0 {
		return fmt.Errorf("min_batch_size cannot be negative, got %d", p.MinBatchSize)
	}
	if p.SingleComponentAtATime && p.Components <= 0 {
		return fmt.Errorf("components must be positive when single_component_at_a_time is set")
	}
	return nil
}
