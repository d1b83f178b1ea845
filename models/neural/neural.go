// Package neural implements a small feed-forward regression network with
// one hidden layer. It stands in for the deep variants (physics-informed,
// graph attention) whose internals are external to this core; what the
// pipeline relies on is its conformance to the train/predict contract and
// deterministic-given-seed initialisation.
package neural

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/metrics"
	"github.com/slopewise/slopewise/pkg/errors"
)

// Model is the neural variant of the model contract.
type Model struct {
	model.BaseModel

	hiddenUnits  int
	learningRate float64
	epochs       int
	tolerance    float64
	seed         int64

	// Input standardisation learned at train time.
	featMeans []float64
	featStds  []float64

	// w1 is (hidden x features), b1 (hidden), w2 (1 x hidden), b2 scalar.
	w1 *mat.Dense
	b1 *mat.VecDense
	w2 *mat.Dense
	b2 float64

	trainRMSE    float64
	nFeatures    int
	featureNames []string
}

// New creates a network from a configuration. Recognised hyperparameters:
// hidden_units (int, default 16), learning_rate (float, default 0.01),
// epochs (int, default 200), tolerance (float, default 1e-6).
func New(cfg model.ModelConfig) *Model {
	return &Model{
		hiddenUnits:  cfg.Hyperparameters.Int("hidden_units", 16),
		learningRate: cfg.Hyperparameters.Float("learning_rate", 0.01),
		epochs:       cfg.Hyperparameters.Int("epochs", 200),
		tolerance:    cfg.Hyperparameters.Float("tolerance", 1e-6),
		seed:         cfg.RandomSeed,
	}
}

// Train fits the network with full-batch gradient descent.
func (m *Model) Train(ctx context.Context, data *model.TrainingData) (err error) {
	defer errors.Recover(&err, "neural.Train")

	m.Reset()
	if err := data.Validate(); err != nil {
		return err
	}
	if m.hiddenUnits < 1 {
		return errors.NewValidationError("hidden_units", "must be at least 1", m.hiddenUnits)
	}
	if m.epochs < 1 {
		return errors.NewValidationError("epochs", "must be at least 1", m.epochs)
	}
	if m.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", m.learningRate)
	}

	n := data.NumSamples()
	f := data.NumFeatures()
	h := m.hiddenUnits

	m.standardise(data)

	rng := rand.New(rand.NewPCG(uint64(m.seed), uint64(m.seed)))
	scale := math.Sqrt(2.0 / float64(f))
	w1 := mat.NewDense(h, f, nil)
	for i := 0; i < h; i++ {
		for j := 0; j < f; j++ {
			w1.Set(i, j, rng.NormFloat64()*scale)
		}
	}
	b1 := mat.NewVecDense(h, nil)
	w2 := mat.NewDense(1, h, nil)
	for i := 0; i < h; i++ {
		w2.Set(0, i, rng.NormFloat64()*math.Sqrt(2.0/float64(h)))
	}
	b2 := 0.0

	x := make([]float64, f)
	hidden := make([]float64, h)
	gradW1 := mat.NewDense(h, f, nil)
	gradB1 := make([]float64, h)
	gradW2 := make([]float64, h)

	prevLoss := math.Inf(1)
	converged := false

	for epoch := 0; epoch < m.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		gradW1.Zero()
		for i := range gradB1 {
			gradB1[i] = 0
			gradW2[i] = 0
		}
		gradB2 := 0.0
		loss := 0.0

		for s := 0; s < n; s++ {
			m.scaleInto(x, data.Features[s])

			// Forward pass with tanh activation.
			for i := 0; i < h; i++ {
				z := b1.AtVec(i)
				for j := 0; j < f; j++ {
					z += w1.At(i, j) * x[j]
				}
				hidden[i] = math.Tanh(z)
			}
			pred := b2
			for i := 0; i < h; i++ {
				pred += w2.At(0, i) * hidden[i]
			}

			diff := pred - data.Labels[s]
			loss += diff * diff

			// Backward pass.
			for i := 0; i < h; i++ {
				gradW2[i] += diff * hidden[i]
				dHidden := diff * w2.At(0, i) * (1 - hidden[i]*hidden[i])
				gradB1[i] += dHidden
				for j := 0; j < f; j++ {
					gradW1.Set(i, j, gradW1.At(i, j)+dHidden*x[j])
				}
			}
			gradB2 += diff
		}

		step := m.learningRate / float64(n)
		for i := 0; i < h; i++ {
			w2.Set(0, i, w2.At(0, i)-step*gradW2[i])
			b1.SetVec(i, b1.AtVec(i)-step*gradB1[i])
			for j := 0; j < f; j++ {
				w1.Set(i, j, w1.At(i, j)-step*gradW1.At(i, j))
			}
		}
		b2 -= step * gradB2

		loss /= float64(n)
		if math.Abs(prevLoss-loss) < m.tolerance {
			converged = true
			prevLoss = loss
			break
		}
		prevLoss = loss
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("neural", m.epochs, ""))
	}

	m.w1, m.b1, m.w2, m.b2 = w1, b1, w2, b2
	m.trainRMSE = math.Sqrt(prevLoss)
	m.nFeatures = f
	m.featureNames = data.FeatureNames
	m.SetTrained()
	return nil
}

// standardise learns per-feature scaling from the training data.
func (m *Model) standardise(data *model.TrainingData) {
	f := data.NumFeatures()
	m.featMeans = make([]float64, f)
	m.featStds = make([]float64, f)

	for j := 0; j < f; j++ {
		var sum float64
		for _, row := range data.Features {
			sum += row[j]
		}
		mean := sum / float64(data.NumSamples())

		var sq float64
		for _, row := range data.Features {
			d := row[j] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(data.NumSamples()))
		if std < 1e-9 {
			std = 1
		}
		m.featMeans[j] = mean
		m.featStds[j] = std
	}
}

func (m *Model) scaleInto(dst, src []float64) {
	for j := range src {
		dst[j] = (src[j] - m.featMeans[j]) / m.featStds[j]
	}
}

// Predict runs one forward pass.
func (m *Model) Predict(features []float64) (*model.PredictionResult, error) {
	if !m.IsTrained() {
		return nil, errors.NewNotTrainedError("Neural", "Predict")
	}
	if len(features) != m.nFeatures {
		return nil, errors.NewDimensionError("neural.Predict", m.nFeatures, len(features), 1)
	}

	h := m.hiddenUnits
	x := make([]float64, m.nFeatures)
	m.scaleInto(x, features)

	pred := m.b2
	for i := 0; i < h; i++ {
		z := m.b1.AtVec(i)
		for j := 0; j < m.nFeatures; j++ {
			z += m.w1.At(i, j) * x[j]
		}
		pred += m.w2.At(0, i) * math.Tanh(z)
	}

	return &model.PredictionResult{
		Prediction:        pred,
		Confidence:        1 / (1 + m.trainRMSE),
		FeatureImportance: m.weightImportance(),
	}, nil
}

// weightImportance aggregates absolute first-layer weights per input as a
// coarse importance proxy, matching the coefficient fallback used for
// linear models.
func (m *Model) weightImportance() map[string]float64 {
	if len(m.featureNames) != m.nFeatures {
		return nil
	}
	raw := make([]float64, m.nFeatures)
	var total float64
	for j := 0; j < m.nFeatures; j++ {
		for i := 0; i < m.hiddenUnits; i++ {
			raw[j] += math.Abs(m.w1.At(i, j))
		}
		total += raw[j]
	}
	if total == 0 {
		return nil
	}
	out := make(map[string]float64, m.nFeatures)
	for j, name := range m.featureNames {
		out[name] = raw[j] / total
	}
	return out
}

// Evaluate computes regression metrics over a dataset.
func (m *Model) Evaluate(data *model.TrainingData) (model.EvaluationMetrics, error) {
	if !m.IsTrained() {
		return model.EvaluationMetrics{}, errors.NewNotTrainedError("Neural", "Evaluate")
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
