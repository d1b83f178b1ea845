package model

import "context"

// PredictionResult is the output of a single model prediction.
type PredictionResult struct {
	Prediction float64
	// Confidence is the model's self-reported certainty in [0,1].
	Confidence float64
	// FeatureImportance maps feature names to global importance weights.
	// Nil when the model has no importances or the data carried no names.
	FeatureImportance map[string]float64
}

// EvaluationMetrics aggregates regression quality measures. R2 may be
// negative for fits worse than predicting the mean.
type EvaluationMetrics struct {
	MSE float64 `json:"mse"`
	MAE float64 `json:"mae"`
	R2  float64 `json:"r2_score"`
}

// Model is the capability contract every variant implements.
//
// Train is idempotent: calling it again discards the previous fit and
// retrains on the new data. It honours ctx cancellation at iteration
// boundaries so callers can impose a training timeout. Predict and
// Evaluate fail with NotTrainedError before a successful Train. Train
// mutates only the model's own parameters; there is no shared state
// between instances.
type Model interface {
	Train(ctx context.Context, data *TrainingData) error
	Predict(features []float64) (*PredictionResult, error)
	Evaluate(data *TrainingData) (EvaluationMetrics, error)
	IsTrained() bool
	FeatureNames() []string
}
