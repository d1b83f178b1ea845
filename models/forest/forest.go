// Package forest implements a bootstrap-bagged ensemble of regression
// trees. Each tree trains on a bootstrap resample with per-split feature
// subsampling; the forest predicts the mean of its trees and reports
// confidence from cross-tree dispersion.
package forest

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/metrics"
	"github.com/slopewise/slopewise/models/tree"
	"github.com/slopewise/slopewise/pkg/errors"
)

// Model is the random-forest variant of the model contract.
type Model struct {
	model.BaseModel

	nEstimators    int
	maxDepth       int
	minSamplesLeaf int
	seed           int64

	trees        []*tree.Tree
	nFeatures    int
	featureNames []string
	importance   []float64
}

// New creates a forest from a configuration. Recognised hyperparameters:
// n_estimators (int, default 100), max_depth (int, default 10),
// min_samples_leaf (int, default 1).
func New(cfg model.ModelConfig) *Model {
	return &Model{
		nEstimators:    cfg.Hyperparameters.Int("n_estimators", 100),
		maxDepth:       cfg.Hyperparameters.Int("max_depth", 10),
		minSamplesLeaf: cfg.Hyperparameters.Int("min_samples_leaf", 1),
		seed:           cfg.RandomSeed,
	}
}

// Train grows the forest on bootstrap resamples of data.
func (m *Model) Train(ctx context.Context, data *model.TrainingData) (err error) {
	defer errors.Recover(&err, "forest.Train")

	m.Reset()
	if err := data.Validate(); err != nil {
		return err
	}
	if m.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", m.nEstimators)
	}

	n := data.NumSamples()
	f := data.NumFeatures()
	rng := rand.New(rand.NewPCG(uint64(m.seed), uint64(m.seed)))

	// Per-split subset size follows the usual regression heuristic of
	// one third of the features.
	maxFeatures := f / 3
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	params := tree.Params{
		MaxDepth:       m.maxDepth,
		MinSamplesLeaf: m.minSamplesLeaf,
		MaxFeatures:    maxFeatures,
	}

	trees := make([]*tree.Tree, 0, m.nEstimators)
	importance := make([]float64, f)

	sample := make([]int, n)
	for b := 0; b < m.nEstimators; b++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		boot := data.Subset(sample)

		tr, err := tree.Grow(boot.Features, boot.Labels, params, rng)
		if err != nil {
			return errors.Wrapf(err, "growing tree %d", b)
		}
		trees = append(trees, tr)
		for j, g := range tr.FeatureGains() {
			importance[j] += g
		}
	}

	normalize(importance)

	m.trees = trees
	m.nFeatures = f
	m.featureNames = data.FeatureNames
	m.importance = importance
	m.SetTrained()
	return nil
}

// Predict averages the trees' predictions for one instance.
func (m *Model) Predict(features []float64) (*model.PredictionResult, error) {
	if !m.IsTrained() {
		return nil, errors.NewNotTrainedError("RandomForest", "Predict")
	}
	if len(features) != m.nFeatures {
		return nil, errors.NewDimensionError("forest.Predict", m.nFeatures, len(features), 1)
	}

	votes := make([]float64, len(m.trees))
	for i, tr := range m.trees {
		votes[i] = tr.Predict(features)
	}
	mean := metrics.Mean(votes)
	spread := metrics.Std(votes)

	return &model.PredictionResult{
		Prediction: mean,
		// Trees agreeing closely signal a confident estimate.
		Confidence:        1 / (1 + spread),
		FeatureImportance: namedImportance(m.featureNames, m.importance),
	}, nil
}

// Evaluate computes regression metrics over a dataset.
func (m *Model) Evaluate(data *model.TrainingData) (model.EvaluationMetrics, error) {
	if !m.IsTrained() {
		return model.EvaluationMetrics{}, errors.NewNotTrainedError("RandomForest", "Evaluate")
	}
	if err := data.Validate(); err != nil {
		return model.EvaluationMetrics{}, err
	}

	preds := make([]float64, data.NumSamples())
	for i, row := range data.Features {
		r, err := m.Predict(row)
		if err != nil {
			return model.EvaluationMetrics{}, err
		}
		preds[i] = r.Prediction
	}
	return metrics.Evaluate(data.Labels, preds)
}

// FeatureNames returns the names seen at train time, or nil.
func (m *Model) FeatureNames() []string {
	return m.featureNames
}

// normalize scales values in place to sum to 1 when any are non-zero.
func normalize(values []float64) {
	var total float64
	for _, v := range values {
		total += v
	}
	if total <= 0 || math.IsNaN(total) {
		return
	}
	for i := range values {
		values[i] /= total
	}
}

// namedImportance pairs importances with names; nil without names.
func namedImportance(names []string, importance []float64) map[string]float64 {
	if len(names) == 0 || len(names) != len(importance) {
		return nil
	}
	out := make(map[string]float64, len(names))
	for i, n := range names {
		out[n] = importance[i]
	}
	return out
}
