// Package models constructs model variants from configuration. The
// concrete implementations live in subpackages; callers that only need
// the contract should depend on core/model instead.
package models

import (
	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/models/boosting"
	"github.com/slopewise/slopewise/models/forest"
	"github.com/slopewise/slopewise/models/neural"
	"github.com/slopewise/slopewise/models/threshold"
	"github.com/slopewise/slopewise/pkg/errors"
)

// New builds an untrained model for the configured type. The returned
// model must be trained before prediction.
func New(cfg model.ModelConfig) (model.Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case model.RandomForest:
		return forest.New(cfg), nil
	case model.GradientBoosted:
		return boosting.New(cfg), nil
	case model.StatisticalThreshold:
		return threshold.New(cfg), nil
	case model.Neural:
		return neural.New(cfg), nil
	default:
		return nil, errors.NewUnknownModelTypeError(string(cfg.Type))
	}
}

// Builder adapts New to the single-argument constructor shape used by
// cross-validation and the ensemble pipeline.
func Builder(cfg model.ModelConfig) (model.Model, error) {
	return New(cfg)
}
