package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/stx/errors"
	"github.com/wippyai/stx/memory"
)

const (
	backendHeap = "heap"
	backendWasm = "wasm"
)

// config is the on-disk shape of an stx configuration file.
type config struct {
	Backend  string `yaml:"backend"`
	Pages    uint32 `yaml:"pages"`
	MaxPages uint32 `yaml:"max_pages"`
	Limit    uint32 `yaml:"limit"`
	Align    uint32 `yaml:"align"`
	Verbose  bool   `yaml:"verbose"`
}

func defaultConfig() config {
	return config{
		Backend:  backendHeap,
		Pages:    1,
		MaxPages: 256,
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read "+path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse "+path)
	}
	return cfg, nil
}

func (c config) validate() error {
	switch c.Backend {
	case backendHeap, backendWasm:
	default:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown backend %q", c.Backend))
	}
	if c.MaxPages > memory.MaxPages {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("max_pages %d exceeds %d", c.MaxPages, memory.MaxPages))
	}
	if c.Pages == 0 || (c.MaxPages != 0 && c.Pages > c.MaxPages) {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("pages %d outside 1..max_pages", c.Pages))
	}
	if c.Align&(c.Align-1) != 0 {
		return errors.InvalidInput(errors.PhaseConfig, "align must be a power of two")
	}
	return nil
}
