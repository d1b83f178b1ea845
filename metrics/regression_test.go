package metrics

import (
	"math"
	"testing"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     []float64
		yPred     []float64
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			yTrue:     []float64{1, 2, 3, 4, 5},
			yPred:     []float64{1, 2, 3, 4, 5},
			want:      0.0,
			tolerance: 1e-10,
		},
		{
			name:      "simple case",
			yTrue:     []float64{1, 2, 3, 4},
			yPred:     []float64{1.5, 2.5, 2.5, 3.5},
			want:      0.25, // ((0.5)^2 * 4) / 4
			tolerance: 1e-10,
		},
		{
			name:      "larger errors",
			yTrue:     []float64{10, 20, 30},
			yPred:     []float64{12, 18, 33},
			want:      17.0 / 3.0,
			tolerance: 1e-10,
		},
		{
			name:    "dimension mismatch",
			yTrue:   []float64{1, 2, 3},
			yPred:   []float64{1, 2},
			wantErr: true,
		},
		{
			name:    "empty slices",
			yTrue:   nil,
			yPred:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("MSE() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("MSE() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMAE(t *testing.T) {
	got, err := MAE([]float64{1, 2, 3}, []float64{2, 2, 5})
	if err != nil {
		t.Fatalf("MAE() error = %v", err)
	}
	want := (1.0 + 0.0 + 2.0) / 3.0
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("MAE() = %v, want %v", got, want)
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     []float64
		yPred     []float64
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect fit",
			yTrue:     []float64{1, 2, 3, 4},
			yPred:     []float64{1, 2, 3, 4},
			want:      1.0,
			tolerance: 1e-10,
		},
		{
			name:      "mean predictor scores zero",
			yTrue:     []float64{1, 2, 3},
			yPred:     []float64{2, 2, 2},
			want:      0.0,
			tolerance: 1e-10,
		},
		{
			name:      "worse than mean is negative",
			yTrue:     []float64{1, 2, 3},
			yPred:     []float64{3, 3, 0},
			want:      1 - 14.0/2.0,
			tolerance: 1e-10,
		},
		{
			name:    "zero variance labels",
			yTrue:   []float64{5, 5, 5},
			yPred:   []float64{4, 5, 6},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("R2Score() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateSubstitutesUndefinedR2(t *testing.T) {
	m, err := Evaluate([]float64{2, 2, 2}, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if m.R2 != 0 {
		t.Errorf("R2 = %v, want 0 for zero-variance labels", m.R2)
	}
	if m.MSE <= 0 || m.MAE <= 0 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}

func TestMeanStd(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := Mean(values); math.Abs(got-5.0) > 1e-10 {
		t.Errorf("Mean = %v, want 5", got)
	}
	// Sample std of the classic example set.
	if got := Std(values); math.Abs(got-2.138089935299395) > 1e-9 {
		t.Errorf("Std = %v", got)
	}
	if Std([]float64{3}) != 0 {
		t.Error("Std of singleton should be 0")
	}
}
