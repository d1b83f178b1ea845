// Package metrics computes regression evaluation metrics over prediction
// and label slices.
package metrics

import (
	"math"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/pkg/errors"
)

// MSE computes the mean squared error.
func MSE(yTrue, yPred []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("MSE", "empty slice")
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError("MSE", n, len(yPred), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue[i] - yPred[i]
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE computes the root mean squared error.
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE computes the mean absolute error.
func MAE(yTrue, yPred []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("MAE", "empty slice")
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError("MAE", n, len(yPred), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(n), nil
}

// R2Score computes the coefficient of determination. It returns an error
// when yTrue has zero variance, since R2 is undefined there.
func R2Score(yTrue, yPred []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("R2Score", "empty slice")
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError("R2Score", n, len(yPred), 0)
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue[i]
	}
	yMean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		tss += (yTrue[i] - yMean) * (yTrue[i] - yMean)
		rss += (yTrue[i] - yPred[i]) * (yTrue[i] - yPred[i])
	}

	if tss == 0 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// Evaluate computes the full metric set in one pass. When R2 is undefined
// because the labels carry no variance, it is reported as 0 and an
// UndefinedMetricWarning is raised instead of failing the evaluation.
func Evaluate(yTrue, yPred []float64) (model.EvaluationMetrics, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return model.EvaluationMetrics{}, err
	}
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return model.EvaluationMetrics{}, err
	}
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		errors.Warn(errors.NewUndefinedMetricWarning("r2_score", "zero variance in labels", 0))
		r2 = 0
	}
	return model.EvaluationMetrics{MSE: mse, MAE: mae, R2: r2}, nil
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Std returns the sample standard deviation of values. Slices with fewer
// than two elements have no spread and yield 0.
func Std(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
