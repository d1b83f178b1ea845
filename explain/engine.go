package explain

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/pkg/errors"
	"github.com/slopewise/slopewise/pkg/log"
	"github.com/slopewise/slopewise/pkg/telemetry"
)

const (
	defaultNumSamples = 100
	minNumSamples     = 50
	defaultShapRounds = 20
	defaultTopFactors = 3
)

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	MaxCacheSize int   `yaml:"max_cache_size" json:"max_cache_size"`
	CacheEnabled bool  `yaml:"cache_explanations" json:"cache_explanations"`
	NumSamples   int   `yaml:"num_samples" json:"num_samples"`
	TopFactors   int   `yaml:"top_factors" json:"top_factors"`
	Seed         int64 `yaml:"seed" json:"seed"`
}

// DefaultConfig enables caching with room for 100 explanations.
func DefaultConfig() Config {
	return Config{
		MaxCacheSize: 100,
		CacheEnabled: true,
		NumSamples:   defaultNumSamples,
		TopFactors:   defaultTopFactors,
	}
}

// Engine computes explanations for opaque predictors. Each request runs
// the same stages: validate, attribute, summarize, visualize, cache.
// Safe for concurrent use.
type Engine struct {
	cfg   Config
	cache *lruCache

	mu         sync.RWMutex
	background *model.TrainingData

	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTelemetry wires Prometheus collectors into the engine.
func WithTelemetry(m *telemetry.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine. NumSamples below the floor is raised to
// it so the surrogate always has enough perturbations to fit.
func NewEngine(cfg Config, opts ...EngineOption) *Engine {
	if cfg.NumSamples <= 0 {
		cfg.NumSamples = defaultNumSamples
	}
	if cfg.NumSamples < minNumSamples {
		cfg.NumSamples = minNumSamples
	}
	if cfg.MaxCacheSize <= 0 {
		cfg.MaxCacheSize = 100
	}
	if cfg.TopFactors <= 0 {
		cfg.TopFactors = defaultTopFactors
	}

	e := &Engine{
		cfg:    cfg,
		cache:  newLRUCache(cfg.MaxCacheSize),
		logger: log.GetLoggerWithName("explain"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetBackgroundData installs the default reference distribution used
// when a request carries no background of its own.
func (e *Engine) SetBackgroundData(data *model.TrainingData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.background = data
	e.mu.Unlock()
	return nil
}

// ExplainPrediction runs the full explanation pipeline for one request.
// Results are cached by request fingerprint when caching is enabled;
// disabling the cache changes latency only, never values.
func (e *Engine) ExplainPrediction(req *Request) (*Explanation, error) {
	if err := e.validate(req); err != nil {
		return nil, err
	}

	key := fingerprint(req)
	if e.cfg.CacheEnabled {
		if exp, ok := e.cache.get(key); ok {
			e.countCache(true)
			return exp, nil
		}
		e.countCache(false)
	}

	start := time.Now()
	exp, err := e.compute(req)
	if err != nil {
		return nil, err
	}

	if e.cfg.CacheEnabled {
		e.cache.put(key, exp)
		if e.metrics != nil {
			e.metrics.CacheSize.Set(float64(e.cache.size()))
		}
	}
	if e.metrics != nil {
		e.metrics.ExplanationLatency.Observe(time.Since(start).Seconds())
	}
	e.logger.Debug("explanation computed",
		slog.String(log.CacheKeyKey, key),
		slog.Int64(log.DurationMsKey, time.Since(start).Milliseconds()),
	)
	return exp, nil
}

func (e *Engine) validate(req *Request) error {
	if req == nil || req.Model == nil {
		return errors.NewValidationError("model", "must not be nil", nil)
	}
	if len(req.FeatureNames) == 0 {
		return errors.NewValidationError("feature_names", "must not be empty", nil)
	}
	if len(req.Instance) != len(req.FeatureNames) {
		return errors.NewDimensionError("explain.ExplainPrediction", len(req.FeatureNames), len(req.Instance), 1)
	}
	switch req.Type {
	case TypeSHAP, TypeLIME, TypeBoth, "":
	default:
		return errors.NewValidationError("explanation_type", "must be shap, lime or both", string(req.Type))
	}
	return nil
}

// compute runs attribution, summary and chart assembly without touching
// the cache.
func (e *Engine) compute(req *Request) (*Explanation, error) {
	reqType := req.Type
	if reqType == "" {
		reqType = TypeBoth
	}
	numSamples := req.NumSamples
	if numSamples <= 0 {
		numSamples = e.cfg.NumSamples
	}
	if numSamples < minNumSamples {
		numSamples = minNumSamples
	}

	background := req.BackgroundData
	if background == nil {
		e.mu.RLock()
		background = e.background
		e.mu.RUnlock()
	}
	if background == nil && reqType != TypeLIME {
		return nil, errors.NewValidationError("background_data", "required for SHAP attribution; provide it or call SetBackgroundData", nil)
	}

	res, err := req.Model.Predict(req.Instance)
	if err != nil {
		return nil, err
	}

	// Seed from the fingerprint-independent config seed so identical
	// requests produce identical explanations.
	rng := rand.New(rand.NewPCG(uint64(e.cfg.Seed), uint64(e.cfg.Seed)+1))

	exp := &Explanation{
		Prediction: res.Prediction,
		Confidence: res.Confidence,
		ComputedAt: time.Now().UTC(),
	}

	var summaryAttrs []FeatureAttribution
	if reqType == TypeSHAP || reqType == TypeBoth {
		shap, err := shapExplain(req.Model, req.Instance, req.FeatureNames, background, defaultShapRounds, rng)
		if err != nil {
			return nil, err
		}
		exp.SHAP = shap
		exp.Charts = buildCharts(shap)
		summaryAttrs = shap.Attributions
	}
	if reqType == TypeLIME || reqType == TypeBoth {
		lime, err := limeExplain(req.Model, req.Instance, req.FeatureNames, numSamples, rng)
		if err != nil {
			return nil, err
		}
		exp.LIME = lime
		if summaryAttrs == nil {
			summaryAttrs = lime.Attributions
		}
	}

	exp.Summary = summarize(res.Prediction, summaryAttrs, e.cfg.TopFactors)
	return exp, nil
}

func (e *Engine) countCache(hit bool) {
	if e.metrics == nil {
		return
	}
	if hit {
		e.metrics.CacheHits.Inc()
	} else {
		e.metrics.CacheMisses.Inc()
	}
}

// GetCacheStats exposes the cache's current size and lookup behavior.
func (e *Engine) GetCacheStats() CacheStats {
	return e.cache.stats()
}

// ClearCache empties the cache and resets hit accounting.
func (e *Engine) ClearCache() {
	e.cache.clear()
	if e.metrics != nil {
		e.metrics.CacheSize.Set(0)
	}
}
