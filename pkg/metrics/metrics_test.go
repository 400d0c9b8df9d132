package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/yago-123/punch-relay/pkg/metrics"
)

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.Packet("punch")
		m.Drop(metrics.DropReasonQueueFull)
		m.Registered(metrics.RegistryServers, "upsert")
		m.Introduced(nil)
		m.Evicted(metrics.RegistryWaiting, 3)
		m.SetEntries(metrics.RegistryWaiting, 1)
		m.STUNBinding()
	})
}

func TestCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()
	m := metrics.New(reg)

	m.Introduced(nil)
	m.Introduced(errors.New("boom"))
	m.Introduced(nil)
	m.Evicted(metrics.RegistryServers, 2)
	m.Evicted(metrics.RegistryServers, 0)
	m.SetEntries(metrics.RegistryWaiting, 4)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Introductions.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Introductions.WithLabelValues("error")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Evictions.WithLabelValues(metrics.RegistryServers)), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.Entries.WithLabelValues(metrics.RegistryWaiting)), 0)

	n, err := testutil.GatherAndCount(reg, "punch_relay_introductions_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}
