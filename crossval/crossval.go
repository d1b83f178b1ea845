package crossval

import (
	"context"
	"log/slog"
	"time"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/core/parallel"
	"github.com/slopewise/slopewise/metrics"
	"github.com/slopewise/slopewise/pkg/errors"
	"github.com/slopewise/slopewise/pkg/log"
)

// Builder constructs an untrained model from a configuration. A fresh
// model is built for every fold so no state leaks between folds.
type Builder func(cfg model.ModelConfig) (model.Model, error)

// Result summarises a cross-validation run. FoldScores holds one R2
// score per fold in fold order; Metrics averages the per-fold error
// metrics.
type Result struct {
	MeanScore  float64                 `json:"meanScore"`
	StdScore   float64                 `json:"stdScore"`
	FoldScores []float64               `json:"scores"`
	Folds      int                     `json:"folds"`
	Metrics    model.EvaluationMetrics `json:"metrics"`
}

// CrossValidate trains and scores a fresh model on each of k folds.
// Folds run concurrently. The fold score is the R2 on the held-out
// rows; when R2 is undefined the fold scores zero and a warning is
// raised through the metrics package.
func CrossValidate(ctx context.Context, build Builder, cfg model.ModelConfig, data *model.TrainingData, k int) (*Result, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if build == nil {
		return nil, errors.NewValidationError("builder", "must not be nil", nil)
	}

	kf := NewKFold(k, cfg.RandomSeed)
	folds, err := kf.Split(data.NumSamples())
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("crossval")
	start := time.Now()

	scores := make([]float64, k)
	foldMetrics := make([]model.EvaluationMetrics, k)
	foldErrs := make([]error, k)

	parallel.ForEach(k, func(i int) {
		scores[i], foldMetrics[i], foldErrs[i] = runFold(ctx, build, cfg, data, folds[i])
	})

	for i, ferr := range foldErrs {
		if ferr != nil {
			return nil, errors.Wrapf(ferr, "crossval: fold %d", i)
		}
	}

	res := &Result{
		MeanScore:  metrics.Mean(scores),
		StdScore:   metrics.Std(scores),
		FoldScores: scores,
		Folds:      k,
	}
	for _, fm := range foldMetrics {
		res.Metrics.MSE += fm.MSE / float64(k)
		res.Metrics.MAE += fm.MAE / float64(k)
		res.Metrics.R2 += fm.R2 / float64(k)
	}

	logger.Info("cross-validation complete",
		slog.Int(log.FoldKey, k),
		slog.Float64(log.ScoreKey, res.MeanScore),
		slog.Int64(log.DurationMsKey, time.Since(start).Milliseconds()),
	)
	return res, nil
}

func runFold(ctx context.Context, build Builder, cfg model.ModelConfig, data *model.TrainingData, fold Fold) (float64, model.EvaluationMetrics, error) {
	if err := ctx.Err(); err != nil {
		return 0, model.EvaluationMetrics{}, err
	}

	m, err := build(cfg)
	if err != nil {
		return 0, model.EvaluationMetrics{}, err
	}
	if err := m.Train(ctx, data.Subset(fold.TrainIndices)); err != nil {
		return 0, model.EvaluationMetrics{}, err
	}

	test := data.Subset(fold.TestIndices)
	em, err := m.Evaluate(test)
	if err != nil {
		return 0, model.EvaluationMetrics{}, err
	}
	return em.R2, em, nil
}
