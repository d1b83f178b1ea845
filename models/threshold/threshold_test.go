package threshold

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/pkg/errors"
)

func moderateRangeData(t *testing.T) *model.TrainingData {
	t.Helper()
	r := rand.New(rand.NewPCG(42, 42))
	n := 200
	data := &model.TrainingData{
		Features:     make([][]float64, n),
		Labels:       make([]float64, n),
		FeatureNames: []string{"displacement", "rainfall", "pore_pressure"},
	}
	for i := 0; i < n; i++ {
		data.Features[i] = []float64{
			10 + 2*r.NormFloat64(),
			10 + 2*r.NormFloat64(),
			10 + 2*r.NormFloat64(),
		}
		data.Labels[i] = 0.1
	}
	return data
}

func TestPredictBeforeTrain(t *testing.T) {
	m := New(model.ModelConfig{Type: model.StatisticalThreshold})
	_, err := m.Predict([]float64{1, 2, 3})

	var nte *errors.NotTrainedError
	if !errors.As(err, &nte) {
		t.Fatalf("expected NotTrainedError, got %v", err)
	}
}

func TestExtremeInputsScoreHigher(t *testing.T) {
	m := New(model.ModelConfig{Type: model.StatisticalThreshold})
	if err := m.Train(context.Background(), moderateRangeData(t)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	extreme, err := m.Predict([]float64{100, 100, 100})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	mild, err := m.Predict([]float64{5, 5, 5})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if extreme.Prediction <= mild.Prediction {
		t.Errorf("extreme input scored %v, mild scored %v; want extreme > mild",
			extreme.Prediction, mild.Prediction)
	}
	if extreme.Prediction < 0 || extreme.Prediction > 1 {
		t.Errorf("score %v outside [0,1]", extreme.Prediction)
	}
	if extreme.Confidence < 0 || extreme.Confidence > 1 {
		t.Errorf("confidence %v outside [0,1]", extreme.Confidence)
	}
}

func TestScoreIsMonotoneInExtremity(t *testing.T) {
	m := New(model.ModelConfig{Type: model.StatisticalThreshold})
	if err := m.Train(context.Background(), moderateRangeData(t)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	prev := -1.0
	for _, scale := range []float64{10, 14, 18, 30, 60} {
		r, err := m.Predict([]float64{scale, 10, 10})
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		if r.Prediction < prev {
			t.Errorf("score decreased from %v to %v at input %v", prev, r.Prediction, scale)
		}
		prev = r.Prediction
	}
}

func TestFeatureImportanceHighlightsDeviantFeature(t *testing.T) {
	m := New(model.ModelConfig{Type: model.StatisticalThreshold})
	if err := m.Train(context.Background(), moderateRangeData(t)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	r, err := m.Predict([]float64{80, 10, 10})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if r.FeatureImportance == nil {
		t.Fatal("expected feature importance with named features")
	}
	if r.FeatureImportance["displacement"] <= r.FeatureImportance["rainfall"] {
		t.Errorf("deviant feature not dominant: %+v", r.FeatureImportance)
	}
}

func TestRetrainReplacesFit(t *testing.T) {
	m := New(model.ModelConfig{Type: model.StatisticalThreshold})
	ctx := context.Background()

	if err := m.Train(ctx, moderateRangeData(t)); err != nil {
		t.Fatalf("first Train failed: %v", err)
	}

	// Retrain on a shifted distribution; the old fit must be replaced.
	shifted := moderateRangeData(t)
	for _, row := range shifted.Features {
		for j := range row {
			row[j] += 1000
		}
	}
	if err := m.Train(ctx, shifted); err != nil {
		t.Fatalf("retrain failed: %v", err)
	}

	r, err := m.Predict([]float64{1010, 1010, 1010})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if r.Prediction > 0.9 {
		t.Errorf("in-distribution input scored %v after retrain", r.Prediction)
	}
}

func TestPredictDimensionMismatch(t *testing.T) {
	m := New(model.ModelConfig{Type: model.StatisticalThreshold})
	if err := m.Train(context.Background(), moderateRangeData(t)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	_, err := m.Predict([]float64{1, 2})
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
}
