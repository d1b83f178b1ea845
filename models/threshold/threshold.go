// Package threshold implements the statistical-threshold anomaly scorer.
// It learns per-feature means and standard deviations at train time and
// scores an instance by how far its most extreme feature deviates from the
// training distribution, scaled into [0,1] by a configurable z-score
// threshold. The score is monotone in input extremity by construction.
package threshold

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/metrics"
	"github.com/slopewise/slopewise/pkg/errors"
)

const (
	// DefaultZScoreThreshold is the z-score mapped to the maximum risk
	// score of 1.0.
	DefaultZScoreThreshold = 3.0

	// minStd is substituted for degenerate per-feature deviations so a
	// constant training column cannot divide by zero.
	minStd = 1e-9
)

// Model is the statistical-threshold variant of the model contract.
type Model struct {
	model.BaseModel

	zThreshold float64

	means        []float64
	stds         []float64
	featureNames []string
}

// New creates a threshold model from a configuration. Recognised
// hyperparameters: z_score_threshold (float, default 3).
func New(cfg model.ModelConfig) *Model {
	z := cfg.Hyperparameters.Float("z_score_threshold", DefaultZScoreThreshold)
	if z <= 0 {
		z = DefaultZScoreThreshold
	}
	return &Model{zThreshold: z}
}

// Train computes per-feature means and standard deviations.
func (m *Model) Train(ctx context.Context, data *model.TrainingData) (err error) {
	defer errors.Recover(&err, "threshold.Train")

	m.Reset()
	if err := data.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f := data.NumFeatures()
	m.means = make([]float64, f)
	m.stds = make([]float64, f)
	m.featureNames = data.FeatureNames

	column := make([]float64, data.NumSamples())
	for j := 0; j < f; j++ {
		for i, row := range data.Features {
			column[i] = row[j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if math.IsNaN(std) || std < minStd {
			std = minStd
		}
		m.means[j] = mean
		m.stds[j] = std
	}

	m.SetTrained()
	return nil
}

// Predict scores one instance. The prediction is the maximum absolute
// z-score across features divided by the threshold, clamped to [0,1].
func (m *Model) Predict(features []float64) (*model.PredictionResult, error) {
	if !m.IsTrained() {
		return nil, errors.NewNotTrainedError("StatisticalThreshold", "Predict")
	}
	if len(features) != len(m.means) {
		return nil, errors.NewDimensionError("threshold.Predict", len(m.means), len(features), 1)
	}

	maxZ := 0.0
	zScores := make([]float64, len(features))
	for j, v := range features {
		z := math.Abs(v-m.means[j]) / m.stds[j]
		zScores[j] = z
		if z > maxZ {
			maxZ = z
		}
	}

	score := maxZ / m.zThreshold
	if score > 1 {
		score = 1
	}

	// Confidence grows with the distance from the decision boundary at
	// z == threshold; scores near the boundary are the least certain.
	confidence := 0.5 + 0.5*math.Min(1, math.Abs(maxZ-m.zThreshold)/m.zThreshold)

	return &model.PredictionResult{
		Prediction:        score,
		Confidence:        confidence,
		FeatureImportance: m.importance(zScores),
	}, nil
}

// importance normalises the per-feature z-scores into weights keyed by
// feature name. Nil when the training data carried no names.
func (m *Model) importance(zScores []float64) map[string]float64 {
	if len(m.featureNames) == 0 {
		return nil
	}
	var total float64
	for _, z := range zScores {
		total += z
	}
	if total == 0 {
		total = 1
	}
	out := make(map[string]float64, len(zScores))
	for j, z := range zScores {
		out[m.featureNames[j]] = z / total
	}
	return out
}

// Evaluate scores the model's anomaly predictions against the labels.
func (m *Model) Evaluate(data *model.TrainingData) (model.EvaluationMetrics, error) {
	if !m.IsTrained() {
		return model.EvaluationMetrics{}, errors.NewNotTrainedError("StatisticalThreshold", "Evaluate")
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
