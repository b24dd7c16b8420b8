package stepper

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config defines a stepper run.
type Config struct {
	// Accuracy is the relative accuracy witnesses are localized against.
	Accuracy float64 `yaml:"accuracy"`

	// Precision is the machine precision reported to actions; zero means
	// double-precision epsilon.
	Precision float64 `yaml:"precision,omitempty"`

	// StartTime and StopTime bound the run.
	StartTime float64 `yaml:"start_time"`
	StopTime  float64 `yaml:"stop_time"`

	// MaxStep caps the trial step size.
	MaxStep float64 `yaml:"max_step"`

	// MaxSteps bounds the total number of trial steps in a run.
	MaxSteps int `yaml:"max_steps,omitempty"`
}

// DefaultConfig returns the defaults a zero field falls back to.
func DefaultConfig() Config {
	return Config{
		Accuracy:  1e-3,
		Precision: math.Nextafter(1, 2) - 1,
		StopTime:  10,
		MaxStep:   0.1,
		MaxSteps:  1_000_000,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Accuracy <= 0 {
		return errors.New("accuracy must be positive")
	}
	if c.Precision <= 0 {
		return errors.New("precision must be positive")
	}
	if c.MaxStep <= 0 {
		return errors.New("max_step must be positive")
	}
	if c.MaxSteps <= 0 {
		return errors.New("max_steps must be positive")
	}
	if c.StopTime < c.StartTime {
		return fmt.Errorf("stop_time %g precedes start_time %g", c.StopTime, c.StartTime)
	}
	return nil
}

// applyDefaults fills zero fields from DefaultConfig.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Accuracy == 0 {
		c.Accuracy = def.Accuracy
	}
	if c.Precision == 0 {
		c.Precision = def.Precision
	}
	if c.MaxStep == 0 {
		c.MaxStep = def.MaxStep
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = def.MaxSteps
	}
	if c.StopTime == 0 && c.StartTime == 0 {
		c.StopTime = def.StopTime
	}
}

// ParseConfig reads a Config from YAML, applying defaults before
// validation.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parsing stepper config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid stepper config: %w", err)
	}
	return c, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading stepper config: %w", err)
	}
	return ParseConfig(data)
}
