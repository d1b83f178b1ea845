package crossval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/pkg/errors"
	"github.com/slopewise/slopewise/pkg/log"
)

// GridSearchRequest describes an exhaustive hyperparameter sweep. Grid
// maps parameter names to the candidate values to try; every
// combination in the Cartesian product is evaluated with k-fold
// cross-validation. TrainTimeout, when positive, bounds each
// combination's run.
type GridSearchRequest struct {
	Base         model.ModelConfig
	Grid         map[string][]any
	Folds        int
	TrainTimeout time.Duration
}

// GridPoint records the outcome for one hyperparameter combination.
type GridPoint struct {
	Parameters model.Hyperparameters   `json:"parameters"`
	Score      float64                 `json:"score"`
	Metrics    model.EvaluationMetrics `json:"metrics"`
}

// GridSearchResult holds every evaluated combination plus the best one.
// Results preserves enumeration order, which is deterministic: parameter
// names are iterated sorted, values in the order given.
type GridSearchResult struct {
	Results    []GridPoint       `json:"results"`
	BestConfig model.ModelConfig `json:"bestConfig"`
	BestScore  float64           `json:"bestScore"`
}

// GridSearch evaluates every combination in the request's grid and
// returns all scores along with the best configuration by mean R2.
// Combinations whose training fails are recorded with the error and
// skipped for best-selection; the search only fails outright when the
// context is cancelled or the request is invalid.
func GridSearch(ctx context.Context, build Builder, req GridSearchRequest, data *model.TrainingData) (*GridSearchResult, error) {
	if len(req.Grid) == 0 {
		return nil, errors.NewValidationError("grid", "must contain at least one parameter", nil)
	}
	if req.Folds < 2 {
		return nil, errors.NewValidationError("folds", "must be at least 2", req.Folds)
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(req.Grid))
	for name, values := range req.Grid {
		if len(values) == 0 {
			return nil, errors.NewValidationError(name, "candidate list must not be empty", nil)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	combos := enumerate(names, req.Grid)
	logger := log.GetLoggerWithName("gridsearch")
	logger.Info("grid search starting", slog.Int("combinations", len(combos)))

	result := &GridSearchResult{
		Results:   make([]GridPoint, 0, len(combos)),
		BestScore: -1e308,
	}

	for _, combo := range combos {
		if err := ctx.Err(); err != nil {
			// Return what was scored so far alongside the cancellation.
			return result, err
		}

		cfg := req.Base.Clone()
		for name, value := range combo {
			cfg.Hyperparameters[name] = value
		}

		runCtx := ctx
		cancel := func() {}
		if req.TrainTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, req.TrainTimeout)
		}
		cv, err := CrossValidate(runCtx, build, cfg, data, req.Folds)
		cancel()

		if err != nil {
			logger.Warn("grid point failed",
				slog.Any("parameters", combo),
				log.ErrAttr(err),
			)
			result.Results = append(result.Results, GridPoint{
				Parameters: combo,
				Score:      -1e308,
			})
			continue
		}

		point := GridPoint{Parameters: combo, Score: cv.MeanScore, Metrics: cv.Metrics}
		result.Results = append(result.Results, point)
		if cv.MeanScore > result.BestScore {
			result.BestScore = cv.MeanScore
			result.BestConfig = cfg
		}
	}

	if result.BestConfig.Type == "" {
		return result, errors.NewValueError("crossval.GridSearch", "no grid combination trained successfully")
	}
	return result, nil
}

// enumerate expands the Cartesian product of the grid. With names
// sorted, combination order is stable across runs.
func enumerate(names []string, grid map[string][]any) []model.Hyperparameters {
	combos := []model.Hyperparameters{{}}
	for _, name := range names {
		next := make([]model.Hyperparameters, 0, len(combos)*len(grid[name]))
		for _, combo := range combos {
			for _, value := range grid[name] {
				extended := combo.Clone()
				extended[name] = value
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos
}
