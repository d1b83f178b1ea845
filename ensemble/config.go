package ensemble

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slopewise/slopewise/pkg/errors"
)

// Duration decodes YAML strings like "5m" or "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrap(err, "ensemble: parse duration")
	}
	*d = Duration(parsed)
	return nil
}

// AsDuration converts to the standard library type.
func (d Duration) AsDuration() time.Duration { return time.Duration(d) }

// PipelineConfig is the on-disk description of an ensemble. Example:
//
//	train_timeout: 5m
//	models:
//	  - name: rf_main
//	    config:
//	      type: random_forest
//	      hyperparameters:
//	        n_estimators: 100
//	      cross_validation_folds: 5
//	      test_size: 0.2
type PipelineConfig struct {
	TrainTimeout Duration      `yaml:"train_timeout"`
	StorePath    string        `yaml:"store_path"`
	Models       []NamedConfig `yaml:"models"`
}

// LoadConfig reads and validates a pipeline configuration file.
func LoadConfig(path string) (*PipelineConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "ensemble: read config %s", path)
	}
	return ParseConfig(buf)
}

// ParseConfig decodes a YAML pipeline configuration.
func ParseConfig(buf []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, errors.Wrap(err, "ensemble: parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every member configuration.
func (c *PipelineConfig) Validate() error {
	if len(c.Models) == 0 {
		return errors.NewValidationError("models", "must contain at least one model", nil)
	}
	seen := make(map[string]bool, len(c.Models))
	for i := range c.Models {
		nc := &c.Models[i]
		if nc.Name != "" {
			if seen[nc.Name] {
				return errors.NewValidationError("models", "duplicate model name", nc.Name)
			}
			seen[nc.Name] = true
		}
		if err := nc.Config.Validate(); err != nil {
			return errors.Wrapf(err, "ensemble: model %d", i)
		}
	}
	return nil
}
