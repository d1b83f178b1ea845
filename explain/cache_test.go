package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheLRUEviction(t *testing.T) {
	e := NewEngine(Config{MaxCacheSize: 2, CacheEnabled: true, Seed: 1})
	require.NoError(t, e.SetBackgroundData(backgroundData(50, 3, 1)))
	predictor := &linearPredictor{weights: []float64{0.2, 0.3, 0.1}}

	instances := [][]float64{
		{0.1, 0.2, 0.3},
		{0.4, 0.5, 0.6},
		{0.7, 0.8, 0.9},
	}
	for _, instance := range instances {
		_, err := e.ExplainPrediction(&Request{
			Model:        predictor,
			Instance:     instance,
			FeatureNames: threeFeatures,
			Type:         TypeSHAP,
		})
		require.NoError(t, err)
	}

	stats := e.GetCacheStats()
	assert.LessOrEqual(t, stats.Size, 2, "cache must stay within max size")
}

func TestCacheHitTracking(t *testing.T) {
	e := NewEngine(Config{MaxCacheSize: 10, CacheEnabled: true, Seed: 1})
	require.NoError(t, e.SetBackgroundData(backgroundData(50, 3, 1)))
	predictor := &linearPredictor{weights: []float64{0.2, 0.3, 0.1}}

	req := &Request{
		Model:        predictor,
		Instance:     []float64{0.1, 0.2, 0.3},
		FeatureNames: threeFeatures,
		Type:         TypeSHAP,
	}

	first, err := e.ExplainPrediction(req)
	require.NoError(t, err)
	second, err := e.ExplainPrediction(req)
	require.NoError(t, err)
	assert.Same(t, first, second, "second identical request is served from cache")

	stats := e.GetCacheStats()
	assert.Equal(t, 1, stats.Size)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9, "one hit out of two lookups")
	assert.NotEmpty(t, stats.MostAccessed)
}

func TestCacheDistinctModels(t *testing.T) {
	e := NewEngine(Config{MaxCacheSize: 10, CacheEnabled: true, Seed: 1})
	require.NoError(t, e.SetBackgroundData(backgroundData(50, 3, 1)))

	a := &linearPredictor{weights: []float64{0.2, 0.3, 0.1}}
	b := &linearPredictor{weights: []float64{0.9, 0.1, 0.0}}
	instance := []float64{0.1, 0.2, 0.3}

	for _, p := range []Predictor{a, b} {
		_, err := e.ExplainPrediction(&Request{
			Model:        p,
			Instance:     instance,
			FeatureNames: threeFeatures,
			Type:         TypeSHAP,
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, e.GetCacheStats().Size, "different models must not share cache entries")
}

func TestClearCache(t *testing.T) {
	e := NewEngine(Config{MaxCacheSize: 10, CacheEnabled: true, Seed: 1})
	require.NoError(t, e.SetBackgroundData(backgroundData(50, 3, 1)))
	predictor := &linearPredictor{weights: []float64{0.2, 0.3, 0.1}}

	_, err := e.ExplainPrediction(&Request{
		Model:        predictor,
		Instance:     []float64{0.1, 0.2, 0.3},
		FeatureNames: threeFeatures,
		Type:         TypeSHAP,
	})
	require.NoError(t, err)
	require.Equal(t, 1, e.GetCacheStats().Size)

	e.ClearCache()
	stats := e.GetCacheStats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, 0.0, stats.HitRate)
}

func TestCacheDisabled(t *testing.T) {
	e := NewEngine(Config{CacheEnabled: false, Seed: 1})
	require.NoError(t, e.SetBackgroundData(backgroundData(50, 3, 1)))
	predictor := &linearPredictor{weights: []float64{0.2, 0.3, 0.1}}

	req := &Request{
		Model:        predictor,
		Instance:     []float64{0.1, 0.2, 0.3},
		FeatureNames: threeFeatures,
		Type:         TypeSHAP,
	}
	first, err := e.ExplainPrediction(req)
	require.NoError(t, err)
	second, err := e.ExplainPrediction(req)
	require.NoError(t, err)

	assert.Equal(t, 0, e.GetCacheStats().Size)
	assert.Equal(t, first.SHAP.ShapValues, second.SHAP.ShapValues)
}
