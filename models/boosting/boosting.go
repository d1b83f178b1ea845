// Package boosting implements gradient-boosted regression trees. Stages
// fit shallow trees to the residuals of the running prediction, shrunk by
// a learning rate; split gains accumulated across stages serve as the
// feature-importance proxy.
package boosting

import (
	"context"
	"math"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/metrics"
	"github.com/slopewise/slopewise/models/tree"
	"github.com/slopewise/slopewise/pkg/errors"
)

// Model is the gradient-boosted variant of the model contract.
type Model struct {
	model.BaseModel

	nEstimators    int
	learningRate   float64
	maxDepth       int
	minSamplesLeaf int

	initScore    float64
	trees        []*tree.Tree
	trainRMSE    float64
	nFeatures    int
	featureNames []string
	importance   []float64
}

// New creates a boosted model from a configuration. Recognised
// hyperparameters: n_estimators (int, default 100), learning_rate (float,
// default 0.1), max_depth (int, default 3), min_samples_leaf (int,
// default 1).
func New(cfg model.ModelConfig) *Model {
	lr := cfg.Hyperparameters.Float("learning_rate", 0.1)
	if lr <= 0 || lr > 1 {
		lr = 0.1
	}
	return &Model{
		nEstimators:    cfg.Hyperparameters.Int("n_estimators", 100),
		learningRate:   lr,
		maxDepth:       cfg.Hyperparameters.Int("max_depth", 3),
		minSamplesLeaf: cfg.Hyperparameters.Int("min_samples_leaf", 1),
	}
}

// Train runs the boosting stages.
func (m *Model) Train(ctx context.Context, data *model.TrainingData) (err error) {
	defer errors.Recover(&err, "boosting.Train")

	m.Reset()
	if err := data.Validate(); err != nil {
		return err
	}
	if m.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", m.nEstimators)
	}

	n := data.NumSamples()
	f := data.NumFeatures()

	// Stage zero predicts the label mean.
	m.initScore = metrics.Mean(data.Labels)

	current := make([]float64, n)
	for i := range current {
		current[i] = m.initScore
	}

	params := tree.Params{
		MaxDepth:       m.maxDepth,
		MinSamplesLeaf: m.minSamplesLeaf,
	}

	trees := make([]*tree.Tree, 0, m.nEstimators)
	importance := make([]float64, f)
	residuals := make([]float64, n)

	for stage := 0; stage < m.nEstimators; stage++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var sse float64
		for i := range residuals {
			residuals[i] = data.Labels[i] - current[i]
			sse += residuals[i] * residuals[i]
		}
		if sse/float64(n) < 1e-12 {
			break
		}

		tr, err := tree.Grow(data.Features, residuals, params, nil)
		if err != nil {
			return errors.Wrapf(err, "boosting stage %d", stage)
		}
		trees = append(trees, tr)
		for j, g := range tr.FeatureGains() {
			importance[j] += g
		}

		for i, row := range data.Features {
			current[i] += m.learningRate * tr.Predict(row)
		}
	}

	var sse float64
	for i := range current {
		diff := data.Labels[i] - current[i]
		sse += diff * diff
	}
	m.trainRMSE = math.Sqrt(sse / float64(n))

	normalizeImportance(importance)

	m.trees = trees
	m.nFeatures = f
	m.featureNames = data.FeatureNames
	m.importance = importance
	m.SetTrained()
	return nil
}

// Predict sums the shrunken stage outputs for one instance.
func (m *Model) Predict(features []float64) (*model.PredictionResult, error) {
	if !m.IsTrained() {
		return nil, errors.NewNotTrainedError("GradientBoosted", "Predict")
	}
	if len(features) != m.nFeatures {
		return nil, errors.NewDimensionError("boosting.Predict", m.nFeatures, len(features), 1)
	}

	pred := m.initScore
	for _, tr := range m.trees {
		pred += m.learningRate * tr.Predict(features)
	}

	return &model.PredictionResult{
		Prediction: pred,
		// Tighter training fit signals higher certainty.
		Confidence:        1 / (1 + m.trainRMSE),
		FeatureImportance: namedImportance(m.featureNames, m.importance),
	}, nil
}

// Evaluate computes regression metrics over a dataset.
func (m *Model) Evaluate(data *model.TrainingData) (model.EvaluationMetrics, error) {
	if !m.IsTrained() {
		return model.EvaluationMetrics{}, errors.NewNotTrainedError("GradientBoosted", "Evaluate")
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

func normalizeImportance(values []float64) {
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
