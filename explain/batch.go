package explain

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/core/parallel"
	"github.com/slopewise/slopewise/pkg/errors"
)

// maxReportedFeatures bounds the most-important-features list in batch
// summary statistics.
const maxReportedFeatures = 5

// ExplainBatch explains each instance independently, in parallel. An
// instance that fails to explain is omitted rather than aborting the
// batch, so the result may hold fewer explanations than instances.
func (e *Engine) ExplainBatch(predictor Predictor, instances [][]float64, names []string) (*BatchResult, error) {
	if len(instances) == 0 {
		return nil, errors.NewValidationError("instances", "must not be empty", nil)
	}

	explanations := make([]*Explanation, len(instances))
	failures := make([]error, len(instances))

	parallel.ForEach(len(instances), func(i int) {
		explanations[i], failures[i] = e.ExplainPrediction(&Request{
			Model:        predictor,
			Instance:     instances[i],
			FeatureNames: names,
			Type:         TypeBoth,
		})
	})

	result := &BatchResult{}
	for i, exp := range explanations {
		if failures[i] != nil {
			result.Failed++
			continue
		}
		result.Explanations = append(result.Explanations, *exp)
	}
	if len(result.Explanations) == 0 {
		return nil, errors.Wrap(failures[0], "explain: every instance in the batch failed")
	}

	result.Stats = batchStats(result.Explanations)
	return result, nil
}

// batchStats aggregates risk, confidence and importance over the
// explanations that succeeded.
func batchStats(explanations []Explanation) BatchSummaryStats {
	stats := BatchSummaryStats{
		RiskCounts:             make(map[RiskLevel]int),
		ConfidenceDistribution: map[string]int{"low": 0, "medium": 0, "high": 0},
	}

	importances := make(map[string]float64)
	var riskSum, confSum float64

	for _, exp := range explanations {
		stats.RiskCounts[exp.Summary.RiskLevel]++
		riskSum += exp.Prediction
		confSum += exp.Confidence

		switch {
		case exp.Confidence < 0.4:
			stats.ConfidenceDistribution["low"]++
		case exp.Confidence < 0.7:
			stats.ConfidenceDistribution["medium"]++
		default:
			stats.ConfidenceDistribution["high"]++
		}

		for _, attr := range exp.Summary.KeyFactors {
			importances[attr.FeatureName] += attr.Importance
		}
	}

	n := float64(len(explanations))
	stats.AvgRiskLevel = riskLevelFor(riskSum / n)
	stats.MeanConfidence = confSum / n

	type ranked struct {
		name  string
		total float64
	}
	order := make([]ranked, 0, len(importances))
	for name, total := range importances {
		order = append(order, ranked{name, total})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].total != order[j].total {
			return order[i].total > order[j].total
		}
		return order[i].name < order[j].name
	})
	for i, r := range order {
		if i == maxReportedFeatures {
			break
		}
		stats.MostImportantFeatures = append(stats.MostImportantFeatures, r.name)
	}
	return stats
}

// ExplainEnsemble explains one instance against each named model and
// against an equal-weight combination of them. Unknown names are
// omitted from the individual map rather than failing the call.
func (e *Engine) ExplainEnsemble(source ModelSource, instance []float64, names []string, modelNames []string) (*EnsembleExplanation, error) {
	if source == nil {
		return nil, errors.NewValidationError("source", "must not be nil", nil)
	}
	if len(modelNames) == 0 {
		return nil, errors.NewValidationError("model_names", "must not be empty", nil)
	}

	out := &EnsembleExplanation{Individual: make(map[string]*Explanation)}
	var mu sync.Mutex
	members := make([]Predictor, 0, len(modelNames))

	parallel.ForEach(len(modelNames), func(i int) {
		name := modelNames[i]
		m, ok := source.Model(name)
		if !ok {
			return
		}
		exp, err := e.ExplainPrediction(&Request{
			Model:        m,
			Instance:     instance,
			FeatureNames: names,
			Type:         TypeBoth,
		})
		if err != nil {
			return
		}
		mu.Lock()
		out.Individual[name] = exp
		members = append(members, m)
		mu.Unlock()
	})

	if len(members) == 0 {
		return nil, errors.NewNoModelsAvailableError("explain.ExplainEnsemble")
	}

	combined, err := e.ExplainPrediction(&Request{
		Model:        &meanCommittee{members: members},
		Instance:     instance,
		FeatureNames: names,
		Type:         TypeBoth,
	})
	if err != nil {
		return nil, err
	}
	out.Combined = combined
	return out, nil
}

// meanCommittee averages its members' predictions. It gives the
// combined explanation a single predictor to attribute against.
type meanCommittee struct {
	members []Predictor
}

func (c *meanCommittee) Predict(features []float64) (*model.PredictionResult, error) {
	var predSum, confSum float64
	for _, m := range c.members {
		r, err := m.Predict(features)
		if err != nil {
			return nil, err
		}
		predSum += r.Prediction
		confSum += r.Confidence
	}
	n := float64(len(c.members))
	return &model.PredictionResult{
		Prediction: predSum / n,
		Confidence: confSum / n,
	}, nil
}

// GenerateOperationalExplanation renders an explanation as a plain-text
// report for field operators.
func (e *Engine) GenerateOperationalExplanation(exp *Explanation) (string, error) {
	if exp == nil {
		return "", errors.NewValidationError("explanation", "must not be nil", nil)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Slope risk assessment: %s (score %.3f, confidence %.0f%%)\n\n",
		exp.Summary.RiskLevel, exp.Prediction, exp.Confidence*100)
	b.WriteString(exp.Summary.Text)
	b.WriteString("\n\nKey factors:\n")
	for _, f := range exp.Summary.KeyFactors {
		direction := "increasing"
		if f.Contribution < 0 {
			direction = "decreasing"
		}
		fmt.Fprintf(&b, "  - %s: %s risk (contribution %+.4f)\n", f.FeatureName, direction, f.Contribution)
	}
	b.WriteString("\nRecommended actions:\n")
	for i, rec := range exp.Summary.Recommendations {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, rec)
	}
	return b.String(), nil
}

// AnalyzeFeatureImportanceTrends recomputes attributions at each
// timestamp of a series and returns per-feature importance sequences
// aligned to the input timestamps, plus the risk score evolution.
func (e *Engine) AnalyzeFeatureImportanceTrends(predictor Predictor, series [][]float64, timestamps []time.Time, names []string) (*TrendAnalysis, error) {
	if len(series) == 0 {
		return nil, errors.NewValidationError("time_series", "must not be empty", nil)
	}
	if len(series) != len(timestamps) {
		return nil, errors.NewDimensionError("explain.AnalyzeFeatureImportanceTrends", len(series), len(timestamps), 0)
	}

	analysis := &TrendAnalysis{
		Features:      make(map[string]TrendPoint, len(names)),
		RiskEvolution: make([]float64, len(series)),
		Timestamps:    append([]time.Time(nil), timestamps...),
	}
	for _, name := range names {
		analysis.Features[name] = TrendPoint{
			Timestamps:       append([]time.Time(nil), timestamps...),
			ImportanceValues: make([]float64, len(series)),
		}
	}

	for i, instance := range series {
		exp, err := e.ExplainPrediction(&Request{
			Model:        predictor,
			Instance:     instance,
			FeatureNames: names,
			Type:         TypeLIME,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "explain: trend point %d", i)
		}
		analysis.RiskEvolution[i] = exp.Prediction

		for _, attr := range exp.LIME.Attributions {
			analysis.Features[attr.FeatureName].ImportanceValues[i] = attr.Importance
		}
	}
	return analysis, nil
}
