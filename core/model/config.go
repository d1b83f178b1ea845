package model

import (
	"fmt"

	"github.com/slopewise/slopewise/pkg/errors"
)

// ModelType tags one of the supported model variants. The set is closed;
// unknown tags are rejected at configuration-validation time.
type ModelType string

const (
	// RandomForest is a bootstrap-bagged ensemble of regression trees.
	RandomForest ModelType = "random_forest"
	// GradientBoosted is a stage-wise boosted ensemble of shallow trees.
	GradientBoosted ModelType = "gradient_boosted"
	// StatisticalThreshold is a z-score based anomaly scorer.
	StatisticalThreshold ModelType = "statistical_threshold"
	// Neural is a small feed-forward network variant. It stands in for the
	// physics-informed and graph-attention models, which conform to the
	// same train/predict contract.
	Neural ModelType = "neural"
)

// Valid reports whether t is one of the supported variants.
func (t ModelType) Valid() bool {
	switch t {
	case RandomForest, GradientBoosted, StatisticalThreshold, Neural:
		return true
	}
	return false
}

// Hyperparameters maps hyperparameter names to numeric or string values.
// Semantics depend on the model type.
type Hyperparameters map[string]any

// Float returns the named hyperparameter as a float64, or def when absent.
// Integer values are widened.
func (h Hyperparameters) Float(name string, def float64) float64 {
	v, ok := h[name]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	}
	return def
}

// Int returns the named hyperparameter as an int, or def when absent.
func (h Hyperparameters) Int(name string, def int) int {
	v, ok := h[name]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	}
	return def
}

// String returns the named hyperparameter as a string, or def when absent.
func (h Hyperparameters) String(name string, def string) string {
	if v, ok := h[name].(string); ok {
		return v
	}
	return def
}

// Clone returns a shallow copy of the hyperparameter map.
func (h Hyperparameters) Clone() Hyperparameters {
	out := make(Hyperparameters, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// ModelConfig describes how to construct and validate one model.
type ModelConfig struct {
	Type            ModelType       `yaml:"type" json:"type"`
	Hyperparameters Hyperparameters `yaml:"hyperparameters" json:"hyperparameters"`
	CVFolds         int             `yaml:"cross_validation_folds" json:"cross_validation_folds"`
	TestSize        float64         `yaml:"test_size" json:"test_size"`
	RandomSeed      int64           `yaml:"random_seed" json:"random_seed"`
}

// Validate checks the configuration invariants. Unknown model types are
// rejected here rather than at predict time.
func (c *ModelConfig) Validate() error {
	if !c.Type.Valid() {
		return errors.NewUnknownModelTypeError(string(c.Type))
	}
	if c.CVFolds < 2 {
		return errors.NewValidationError("cross_validation_folds", "must be at least 2", c.CVFolds)
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return errors.NewValidationError("test_size", "must be a fraction in (0,1)", c.TestSize)
	}
	return nil
}

// Clone returns a deep-enough copy of the configuration: mutating the
// clone's hyperparameters does not affect the original. Used by grid search
// to substitute candidate values.
func (c *ModelConfig) Clone() ModelConfig {
	out := *c
	out.Hyperparameters = c.Hyperparameters.Clone()
	return out
}

// Describe returns a short human-readable identifier for logging.
func (c *ModelConfig) Describe() string {
	return fmt.Sprintf("%s(folds=%d, test_size=%.2f, seed=%d)", c.Type, c.CVFolds, c.TestSize, c.RandomSeed)
}
