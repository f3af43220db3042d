package config

import (
	"fmt"
	"os"
)

// LoadParams loads and parses a generator params file.
func LoadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file %s: %w", path, err)
	}
	p, err := ParseParamsYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse params file %s: %w", path, err)
	}
	return p, nil
}
