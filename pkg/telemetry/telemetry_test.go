package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	require.NotNil(t, m)

	m.TrainingsTotal.WithLabelValues("rf_main", "random_forest").Inc()
	m.CacheHits.Inc()
	m.CacheHits.Inc()
	m.CacheSize.Set(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingsTotal.WithLabelValues("rf_main", "random_forest")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheSize))
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances on distinct registries must not collide.
	a := NewWithRegistry(prometheus.NewRegistry())
	b := NewWithRegistry(prometheus.NewRegistry())

	a.CacheMisses.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CacheMisses))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheMisses))
}
