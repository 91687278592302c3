package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/campaign-cache/metrics"
)

func TestCountersAreRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewPrometheus(reg, "questlog")
	require.NoError(t, err)

	m.Hit()
	m.Hit()
	m.Miss()
	m.Rollback()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 7)

	n, err := testutil.GatherAndCount(reg, "questlog_query_cache_hits_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 2.0, gathered(t, reg, "questlog_query_cache_hits_total"))
	assert.Equal(t, 1.0, gathered(t, reg, "questlog_query_cache_misses_total"))
	assert.Equal(t, 1.0, gathered(t, reg, "questlog_query_cache_rollbacks_total"))
	assert.Equal(t, 0.0, gathered(t, reg, "questlog_query_cache_evictions_total"))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewPrometheus(reg, "questlog")
	require.NoError(t, err)

	_, err = metrics.NewPrometheus(reg, "questlog")
	assert.Error(t, err)
}

func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}
