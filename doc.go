// Package slopewise provides the prediction core for mine-slope risk
// assessment: pluggable regression model variants, cross-validation and
// grid search, a weighted ensemble pipeline, and an explanation engine
// that derives feature attributions from any trained predictor.
//
// # Quick Start
//
// Train an ensemble and explain a prediction:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/slopewise/slopewise/core/model"
//	    "github.com/slopewise/slopewise/ensemble"
//	    "github.com/slopewise/slopewise/explain"
//	    "github.com/slopewise/slopewise/models"
//	)
//
//	func main() {
//	    data := &model.TrainingData{
//	        Features:     [][]float64{{12.1, 48.0, 0.35}, {3.2, 5.0, 0.10}},
//	        Labels:       []float64{0.82, 0.12},
//	        FeatureNames: []string{"displacement", "rainfall", "pore_pressure"},
//	    }
//
//	    p := ensemble.NewPipeline(models.Builder)
//	    _, err := p.TrainEnsemble(context.Background(), []ensemble.NamedConfig{
//	        {Name: "rf", Config: model.ModelConfig{Type: model.RandomForest, CVFolds: 5, TestSize: 0.2}},
//	    }, data)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    res, err := p.PredictEnsemble([]float64{10.0, 40.0, 0.30})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("risk score: %.3f\n", res.Prediction)
//
//	    engine := explain.NewEngine(explain.DefaultConfig())
//	    _ = engine.SetBackgroundData(data)
//	}
//
// # Packages
//
// The core is organized into several packages:
//
//   - core/model: model contract, training data, configuration
//   - models: model variants (random forest, gradient boosting, statistical threshold, neural)
//   - crossval: k-fold cross-validation and grid search
//   - ensemble: the weighted model committee
//   - explain: SHAP/LIME-style attributions, summaries, cache
//   - metrics: regression evaluation metrics
//   - store: snapshot persistence
//
// # Error Handling
//
// All errors carry stack traces and belong to a small taxonomy in
// pkg/errors: validation, dimension, not-trained, not-found and
// no-models-available errors, matched with errors.As.
package slopewise
