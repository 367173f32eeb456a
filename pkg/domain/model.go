package domain

import (
	"fmt"
	"math"
	"slices"
)

const (
	// MinTemperature and MaxTemperature bound ModelConfig.Temperature.
	MinTemperature = 0.0
	MaxTemperature = 2.0

	DefaultModelName   = "gpt-4o-mini"
	DefaultTemperature = 0.7
)

// SupportedModels lists the model names a ModelConfig may reference.
var SupportedModels = []string{
	"gpt-4o-mini",
	"gpt-4o",
}

// ModelConfig holds the generation parameters for one panel invocation.
// It is passed by value and never mutated by the engine.
type ModelConfig struct {
	ModelName   string  `json:"model_name" yaml:"model_name" mapstructure:"model_name"`
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
}

// DefaultModelConfig returns the baseline configuration.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{ModelName: DefaultModelName, Temperature: DefaultTemperature}
}

// IsSupportedModel reports whether name is one of SupportedModels.
func IsSupportedModel(name string) bool {
	return slices.Contains(SupportedModels, name)
}

// Validate rejects unknown models and out-of-range temperatures.
// Invalid values are never silently substituted.
func (c ModelConfig) Validate() error {
	if !IsSupportedModel(c.ModelName) {
		return fmt.Errorf("%w: %q", ErrUnsupportedModel, c.ModelName)
	}
	if math.IsNaN(c.Temperature) || c.Temperature < MinTemperature || c.Temperature > MaxTemperature {
		return fmt.Errorf("%w: %v not in [%.1f, %.1f]", ErrInvalidTemperature, c.Temperature, MinTemperature, MaxTemperature)
	}
	return nil
}

// Clamp returns a copy with Temperature forced into the valid range.
// Callers must opt in explicitly; Validate never clamps.
func (c ModelConfig) Clamp() ModelConfig {
	switch {
	case math.IsNaN(c.Temperature):
		c.Temperature = DefaultTemperature
	case c.Temperature < MinTemperature:
		c.Temperature = MinTemperature
	case c.Temperature > MaxTemperature:
		c.Temperature = MaxTemperature
	}
	return c
}

func (c ModelConfig) String() string {
	return fmt.Sprintf("%s (temperature %.1f)", c.ModelName, c.Temperature)
}
