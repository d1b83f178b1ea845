package errors

import (
	"strings"
	"testing"
)

func TestNotTrainedError(t *testing.T) {
	err := NewNotTrainedError("RandomForest", "Predict")

	var nte *NotTrainedError
	if !As(err, &nte) {
		t.Fatalf("expected NotTrainedError in chain, got %T", err)
	}
	if nte.ModelName != "RandomForest" || nte.Method != "Predict" {
		t.Errorf("unexpected fields: %+v", nte)
	}
	if nte.Error() == "" {
		t.Error("empty error message")
	}
}

func TestDimensionError(t *testing.T) {
	tests := []struct {
		name     string
		axis     int
		wantWord string
	}{
		{name: "feature axis", axis: 1, wantWord: "features"},
		{name: "row axis", axis: 0, wantWord: "rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDimensionError("Predict", 5, 2, tt.axis)
			var de *DimensionError
			if !As(err, &de) {
				t.Fatalf("expected DimensionError, got %T", err)
			}
			if de.Expected != 5 || de.Got != 2 {
				t.Errorf("unexpected fields: %+v", de)
			}
			msg := de.Error()
			if !strings.Contains(msg, tt.wantWord) {
				t.Errorf("message %q does not mention %q", msg, tt.wantWord)
			}
		})
	}
}

func TestTaxonomyRoundTrips(t *testing.T) {
	var (
		mnf *ModelNotFoundError
		umt *UnknownModelTypeError
		nma *NoModelsAvailableError
		ve  *ValidationError
	)

	if !As(NewModelNotFoundError("gbm_1"), &mnf) || mnf.Name != "gbm_1" {
		t.Error("ModelNotFoundError did not round-trip")
	}
	if !As(NewUnknownModelTypeError("quantum"), &umt) || umt.Type != "quantum" {
		t.Error("UnknownModelTypeError did not round-trip")
	}
	if !As(NewNoModelsAvailableError("PredictEnsemble"), &nma) {
		t.Error("NoModelsAvailableError did not round-trip")
	}
	if !As(NewValidationError("k", "must be >= 2", 1), &ve) || ve.ParamName != "k" {
		t.Error("ValidationError did not round-trip")
	}
}

func TestWarningHandler(t *testing.T) {
	var captured []error
	SetWarningHandler(func(w error) { captured = append(captured, w) })
	defer SetWarningHandler(nil)

	Warn(NewUndefinedMetricWarning("r2_score", "zero variance in labels", 0))
	Warn(NewConvergenceWarning("mlp", 200, ""))

	if len(captured) != 2 {
		t.Fatalf("expected 2 captured warnings, got %d", len(captured))
	}
}

func TestRecover(t *testing.T) {
	fn := func() (err error) {
		defer Recover(&err, "test-op")
		panic("boom")
	}

	err := fn()
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	var pe *PanicError
	if !As(err, &pe) {
		t.Fatalf("expected PanicError, got %T", err)
	}
	if pe.Operation != "test-op" {
		t.Errorf("unexpected operation: %q", pe.Operation)
	}
}
