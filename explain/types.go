// Package explain derives feature attributions from an opaque predictor.
// Both attribution methods are sampling approximations of SHAP and LIME,
// not the canonical algorithms; exact Shapley values are exponential in
// feature count and out of scope.
package explain

import (
	"time"

	"github.com/slopewise/slopewise/core/model"
)

// Predictor is the read-only contract the engine needs from a model. The
// engine never mutates a predictor.
type Predictor interface {
	Predict(features []float64) (*model.PredictionResult, error)
}

// ModelSource resolves names to trained models for ensemble explanation.
// The ensemble pipeline satisfies this.
type ModelSource interface {
	Model(name string) (model.Model, bool)
}

// Type selects which attribution methods a request computes.
type Type string

const (
	TypeSHAP Type = "shap"
	TypeLIME Type = "lime"
	TypeBoth Type = "both"
)

// Request describes one explanation. Instance length must equal
// FeatureNames length. BackgroundData overrides the engine's configured
// background set for this request only.
type Request struct {
	Model          Predictor
	Instance       []float64
	FeatureNames   []string
	BackgroundData *model.TrainingData
	Type           Type
	NumSamples     int
}

// FeatureAttribution is one feature's contribution to a prediction.
type FeatureAttribution struct {
	FeatureName  string  `json:"feature_name"`
	Importance   float64 `json:"importance"`
	Contribution float64 `json:"contribution"`
	Confidence   float64 `json:"confidence"`
}

// ShapExplanation approximates additive attributions against a
// background baseline. The values are scaled so their sum matches
// Prediction minus BaseValue.
type ShapExplanation struct {
	BaseValue    float64              `json:"base_value"`
	Prediction   float64              `json:"prediction"`
	ShapValues   []float64            `json:"shap_values"`
	Attributions []FeatureAttribution `json:"feature_attributions"`
}

// LimeExplanation is a local linear surrogate fit around the instance.
type LimeExplanation struct {
	Prediction      float64              `json:"prediction"`
	LocalModelScore float64              `json:"local_model_score"`
	Attributions    []FeatureAttribution `json:"feature_attributions"`
	UsedFeatures    []string             `json:"used_features"`
}

// RiskLevel is the qualitative tier derived from prediction magnitude.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Summary is the natural-language portion of an explanation.
type Summary struct {
	RiskLevel       RiskLevel            `json:"risk_level"`
	Text            string               `json:"summary"`
	KeyFactors      []FeatureAttribution `json:"key_factors"`
	Recommendations []string             `json:"recommendations"`
}

// BarChart is a chart-ready attribution view. Colors encode the sign of
// each contribution and use at most two distinct values.
type BarChart struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Colors []string  `json:"colors"`
}

// Waterfall walks from the baseline to the final prediction.
type Waterfall struct {
	BaseValue       float64   `json:"base_value"`
	Contributions   []float64 `json:"contributions"`
	FinalPrediction float64   `json:"final_prediction"`
}

// ForcePlot pairs attributions with their feature names.
type ForcePlot struct {
	ShapValues   []float64 `json:"shap_values"`
	FeatureNames []string  `json:"feature_names"`
}

// Charts bundles every visualization structure.
type Charts struct {
	Bar       BarChart  `json:"bar"`
	Waterfall Waterfall `json:"waterfall"`
	Force     ForcePlot `json:"force"`
}

// Explanation is the full result of one request.
type Explanation struct {
	Prediction float64          `json:"prediction"`
	Confidence float64          `json:"confidence"`
	SHAP       *ShapExplanation `json:"shap,omitempty"`
	LIME       *LimeExplanation `json:"lime,omitempty"`
	Summary    Summary          `json:"summary"`
	Charts     Charts           `json:"charts"`
	ComputedAt time.Time        `json:"computed_at"`
}

// CacheStats reports the cache's size and lookup behavior.
type CacheStats struct {
	Size         int     `json:"size"`
	HitRate      float64 `json:"hit_rate"`
	MostAccessed string  `json:"most_accessed"`
}

// BatchSummaryStats aggregates a batch of explanations.
type BatchSummaryStats struct {
	AvgRiskLevel           RiskLevel         `json:"avg_risk_level"`
	MostImportantFeatures  []string          `json:"most_important_features"`
	ConfidenceDistribution map[string]int    `json:"confidence_distribution"`
	MeanConfidence         float64           `json:"mean_confidence"`
	RiskCounts             map[RiskLevel]int `json:"risk_counts"`
}

// BatchResult holds per-instance explanations plus aggregates. Failed
// instances are omitted, so Explanations may be shorter than the input.
type BatchResult struct {
	Explanations []Explanation     `json:"explanations"`
	Stats        BatchSummaryStats `json:"summary_statistics"`
	Failed       int               `json:"failed"`
}

// EnsembleExplanation explains one instance against several named models.
type EnsembleExplanation struct {
	Individual map[string]*Explanation `json:"individual_explanations"`
	Combined   *Explanation            `json:"ensemble_explanation"`
}

// TrendPoint is one feature's importance sequence over time.
type TrendPoint struct {
	Timestamps       []time.Time `json:"timestamps"`
	ImportanceValues []float64   `json:"importance_values"`
}

// TrendAnalysis tracks attribution drift across a time series.
type TrendAnalysis struct {
	Features      map[string]TrendPoint `json:"features"`
	RiskEvolution []float64             `json:"risk_evolution"`
	Timestamps    []time.Time           `json:"timestamps"`
}
