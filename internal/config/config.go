// Package config loads and saves facewarp configuration as YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dudu/facewarp/internal/deform"
	"github.com/dudu/facewarp/internal/warp"
)

// Models holds paths to the ONNX models and runtime library
type Models struct {
	Detector   string `yaml:"detector"`
	Landmarks  string `yaml:"landmarks"`
	OrtLibrary string `yaml:"ort_library"`
}

// Render holds rasterizer settings
type Render struct {
	Mode     string `yaml:"mode"`
	EdgeBand int    `yaml:"edge_band"`

	// IrisLayer repaints irises as a pixel layer after the mesh warp
	// instead of moving inner eye vertices during deformation.
	IrisLayer bool `yaml:"iris_layer"`
}

// Config is the full on-disk configuration
type Config struct {
	Models Models            `yaml:"models"`
	Render Render            `yaml:"render"`
	Deform deform.Parameters `yaml:"deform"`

	// MinConfidence rejects detections whose landmark confidence falls
	// below this floor; 0 disables the check.
	MinConfidence float64 `yaml:"min_confidence"`
}

// Default returns a configuration with identity deformation and hybrid
// rendering
func Default() Config {
	return Config{
		Render: Render{Mode: "hybrid", EdgeBand: warp.DefaultEdgeBand},
		Deform: deform.Defaults(),
	}
}

// Load reads and validates a configuration file. Fields absent from
// the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges on all fields
func (c *Config) Validate() error {
	if _, err := warp.ParseMode(c.Render.Mode); err != nil {
		return err
	}
	if c.Render.EdgeBand < 0 {
		return fmt.Errorf("render.edge_band must be >= 0, got %d", c.Render.EdgeBand)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0,1], got %g", c.MinConfidence)
	}
	if err := c.Deform.Validate(); err != nil {
		return err
	}
	return nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// LoadParameters reads a YAML file holding only deformation parameters
func LoadParameters(path string) (deform.Parameters, error) {
	p := deform.Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return deform.Parameters{}, fmt.Errorf("reading parameters: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return deform.Parameters{}, fmt.Errorf("parsing parameters %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return deform.Parameters{}, fmt.Errorf("parameters %s: %w", path, err)
	}
	return p, nil
}
