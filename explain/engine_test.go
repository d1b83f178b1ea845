package explain

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/pkg/errors"
)

// linearPredictor is a deterministic stand-in model: y = w . x + b.
type linearPredictor struct {
	weights []float64
	bias    float64
}

func (p *linearPredictor) Predict(features []float64) (*model.PredictionResult, error) {
	if len(features) != len(p.weights) {
		return nil, errors.NewDimensionError("linear.Predict", len(p.weights), len(features), 1)
	}
	var sum float64
	for i, w := range p.weights {
		sum += w * features[i]
	}
	return &model.PredictionResult{Prediction: sum + p.bias, Confidence: 0.9}, nil
}

func backgroundData(n, f int, seed uint64) *model.TrainingData {
	rng := rand.New(rand.NewPCG(seed, seed))
	features := make([][]float64, n)
	labels := make([]float64, n)
	for i := range features {
		row := make([]float64, f)
		for j := range row {
			row[j] = rng.Float64()
		}
		features[i] = row
	}
	return &model.TrainingData{Features: features, Labels: labels}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(Config{MaxCacheSize: 10, CacheEnabled: true, Seed: 42})
	require.NoError(t, e.SetBackgroundData(backgroundData(50, 3, 1)))
	return e
}

var threeFeatures = []string{"displacement", "rainfall", "pore_pressure"}

func TestExplainPredictionShapAdditivity(t *testing.T) {
	e := testEngine(t)
	predictor := &linearPredictor{weights: []float64{0.2, 0.3, 0.1}}

	exp, err := e.ExplainPrediction(&Request{
		Model:        predictor,
		Instance:     []float64{0.8, 0.6, 0.4},
		FeatureNames: threeFeatures,
		Type:         TypeSHAP,
	})
	require.NoError(t, err)
	require.NotNil(t, exp.SHAP)

	var sum float64
	for _, v := range exp.SHAP.ShapValues {
		sum += v
	}
	gap := math.Abs(sum - (exp.SHAP.Prediction - exp.SHAP.BaseValue))
	assert.Less(t, gap, 0.1, "shap values must be additive against the baseline")
	assert.Len(t, exp.SHAP.ShapValues, 3)
	assert.Len(t, exp.SHAP.Attributions, 3)
}

func TestExplainPredictionLime(t *testing.T) {
	e := testEngine(t)
	predictor := &linearPredictor{weights: []float64{0.2, 0.3, 0.1}}
	instance := []float64{0.8, 0.6, 0.4}

	exp, err := e.ExplainPrediction(&Request{
		Model:        predictor,
		Instance:     instance,
		FeatureNames: threeFeatures,
		Type:         TypeLIME,
	})
	require.NoError(t, err)
	require.NotNil(t, exp.LIME)

	assert.GreaterOrEqual(t, exp.LIME.LocalModelScore, 0.0)
	// The predictor is exactly linear, so the surrogate should fit it
	// almost perfectly and recover the coefficient ranking.
	assert.Greater(t, exp.LIME.LocalModelScore, 0.95)
	assert.Equal(t, threeFeatures, exp.LIME.UsedFeatures)

	byName := make(map[string]FeatureAttribution)
	for _, attr := range exp.LIME.Attributions {
		byName[attr.FeatureName] = attr
	}
	assert.Greater(t, byName["rainfall"].Importance, byName["pore_pressure"].Importance)
}

func TestExplainPredictionValidation(t *testing.T) {
	e := testEngine(t)
	predictor := &linearPredictor{weights: []float64{1, 1, 1, 1, 1}}
	names := []string{"a", "b", "c", "d", "e"}
	require.NoError(t, e.SetBackgroundData(backgroundData(50, 5, 2)))

	_, err := e.ExplainPrediction(&Request{
		Model:        predictor,
		Instance:     []float64{1, 2, 3, 4, 5},
		FeatureNames: names,
		Type:         TypeBoth,
	})
	assert.NoError(t, err, "matching lengths must succeed")

	_, err = e.ExplainPrediction(&Request{
		Model:        predictor,
		Instance:     []float64{1, 2},
		FeatureNames: names,
		Type:         TypeBoth,
	})
	var de *errors.DimensionError
	assert.ErrorAs(t, err, &de, "2 values against 5 names must fail")

	_, err = e.ExplainPrediction(&Request{
		Model:        predictor,
		Instance:     []float64{},
		FeatureNames: []string{},
	})
	var ve *errors.ValidationError
	assert.ErrorAs(t, err, &ve, "empty feature names must fail")

	_, err = e.ExplainPrediction(&Request{
		Model:        predictor,
		Instance:     []float64{1, 2, 3, 4, 5},
		FeatureNames: names,
		Type:         "mystery",
	})
	assert.ErrorAs(t, err, &ve)
}

func TestExplainPredictionRequiresBackground(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	predictor := &linearPredictor{weights: []float64{1, 1, 1}}

	_, err := e.ExplainPrediction(&Request{
		Model:        predictor,
		Instance:     []float64{1, 2, 3},
		FeatureNames: threeFeatures,
		Type:         TypeSHAP,
	})
	var ve *errors.ValidationError
	assert.ErrorAs(t, err, &ve)

	// LIME needs no background.
	_, err = e.ExplainPrediction(&Request{
		Model:        predictor,
		Instance:     []float64{1, 2, 3},
		FeatureNames: threeFeatures,
		Type:         TypeLIME,
	})
	assert.NoError(t, err)
}

func TestExplainPredictionDeterministic(t *testing.T) {
	predictor := &linearPredictor{weights: []float64{0.2, 0.3, 0.1}}
	req := func() *Request {
		return &Request{
			Model:        predictor,
			Instance:     []float64{0.5, 0.5, 0.5},
			FeatureNames: threeFeatures,
			Type:         TypeBoth,
		}
	}

	// Two engines with the same seed and no cache must agree exactly.
	var values [2][]float64
	for i := range values {
		e := NewEngine(Config{CacheEnabled: false, Seed: 7})
		require.NoError(t, e.SetBackgroundData(backgroundData(50, 3, 1)))
		exp, err := e.ExplainPrediction(req())
		require.NoError(t, err)
		values[i] = exp.SHAP.ShapValues
	}
	assert.Equal(t, values[0], values[1], "caching must not change values, only latency")
}

func TestSummaryRiskTiers(t *testing.T) {
	tests := []struct {
		prediction float64
		want       RiskLevel
	}{
		{0.1, RiskLow},
		{0.29, RiskLow},
		{0.3, RiskMedium},
		{0.59, RiskMedium},
		{0.6, RiskHigh},
		{0.79, RiskHigh},
		{0.8, RiskCritical},
		{1.5, RiskCritical},
	}
	for _, tt := range tests {
		if got := riskLevelFor(tt.prediction); got != tt.want {
			t.Errorf("riskLevelFor(%v) = %v, want %v", tt.prediction, got, tt.want)
		}
	}
}

func TestSummaryContent(t *testing.T) {
	e := testEngine(t)
	predictor := &linearPredictor{weights: []float64{0.5, 0.4, 0.1}}

	exp, err := e.ExplainPrediction(&Request{
		Model:        predictor,
		Instance:     []float64{0.9, 0.8, 0.1},
		FeatureNames: threeFeatures,
		Type:         TypeBoth,
	})
	require.NoError(t, err)

	assert.Greater(t, len(exp.Summary.Text), 50)
	assert.NotEmpty(t, exp.Summary.KeyFactors)
	assert.LessOrEqual(t, len(exp.Summary.KeyFactors), 3)
	assert.NotEmpty(t, exp.Summary.Recommendations)
	assert.Contains(t, []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}, exp.Summary.RiskLevel)
}

func TestChartsStructure(t *testing.T) {
	e := testEngine(t)
	predictor := &linearPredictor{weights: []float64{0.4, -0.2, 0.1}, bias: 0.3}

	exp, err := e.ExplainPrediction(&Request{
		Model:        predictor,
		Instance:     []float64{0.9, 0.9, 0.2},
		FeatureNames: threeFeatures,
		Type:         TypeSHAP,
	})
	require.NoError(t, err)

	charts := exp.Charts
	assert.Len(t, charts.Bar.Labels, 3)
	assert.Len(t, charts.Bar.Values, 3)
	assert.Len(t, charts.Bar.Colors, 3)

	distinct := make(map[string]bool)
	for _, c := range charts.Bar.Colors {
		distinct[c] = true
	}
	assert.LessOrEqual(t, len(distinct), 2, "bar colors encode sign only")

	assert.Equal(t, exp.SHAP.BaseValue, charts.Waterfall.BaseValue)
	assert.Equal(t, exp.SHAP.Prediction, charts.Waterfall.FinalPrediction)
	assert.Equal(t, exp.SHAP.ShapValues, charts.Force.ShapValues)
	assert.Equal(t, threeFeatures, charts.Force.FeatureNames)
}

func TestNumSamplesFloor(t *testing.T) {
	e := NewEngine(Config{NumSamples: 5})
	assert.Equal(t, minNumSamples, e.cfg.NumSamples)

	e = NewEngine(Config{})
	assert.Equal(t, defaultNumSamples, e.cfg.NumSamples)
}
