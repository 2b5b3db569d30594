package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveProvision("hotel-tools", time.Second, nil)
	m.ObserveProvision("hotel-tools", time.Second, errors.New("boom"))
	m.ScopeOpened()
	m.ScopeClosed()
	m.ObserveInvocation("search_hotels", nil)
}

func TestMetrics_RecordsProvisionOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.ObserveProvision("hotel-tools", 50*time.Millisecond, nil)
	m.ObserveProvision("hotel-tools", time.Second, errors.New("handshake timeout"))
	m.ScopeOpened()
	m.ScopeOpened()
	m.ScopeClosed()
	m.ObserveInvocation("search_hotels", nil)

	families := gather(t, registry)
	require.Equal(t, 1.0, counterValue(t, families["toolforge_provisions_total"], "toolset", "hotel-tools", "status", "success"))
	require.Equal(t, 1.0, counterValue(t, families["toolforge_provisions_total"], "toolset", "hotel-tools", "status", "error"))
	require.Equal(t, 1.0, gaugeValue(t, families["toolforge_active_scopes"]))
	require.Equal(t, 1.0, counterValue(t, families["toolforge_tool_invocations_total"], "tool", "search_hotels", "status", "success"))

	// Handshake duration is only observed for successful provisions.
	histogram := families["toolforge_handshake_duration_seconds"].GetMetric()[0].GetHistogram()
	require.Equal(t, uint64(1), histogram.GetSampleCount())
}

func gather(t *testing.T, registry *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		byName[family.GetName()] = family
	}
	return byName
}

func counterValue(t *testing.T, family *dto.MetricFamily, labelPairs ...string) float64 {
	t.Helper()
	require.NotNil(t, family)
	want := make(map[string]string, len(labelPairs)/2)
	for i := 0; i+1 < len(labelPairs); i += 2 {
		want[labelPairs[i]] = labelPairs[i+1]
	}
outer:
	for _, metric := range family.GetMetric() {
		got := make(map[string]string, len(metric.GetLabel()))
		for _, label := range metric.GetLabel() {
			got[label.GetName()] = label.GetValue()
		}
		for name, value := range want {
			if got[name] != value {
				continue outer
			}
		}
		return metric.GetCounter().GetValue()
	}
	t.Fatalf("no metric in %s matches labels %v", family.GetName(), want)
	return 0
}

func gaugeValue(t *testing.T, family *dto.MetricFamily) float64 {
	t.Helper()
	require.NotNil(t, family)
	require.Len(t, family.GetMetric(), 1)
	return family.GetMetric()[0].GetGauge().GetValue()
}
