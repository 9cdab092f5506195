package slo

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func TestTargetsAreRatios(t *testing.T) {
	assert.InDelta(t, 1-ErrorRateSLO, AvailabilitySLO/100, 1e-9)
	assert.Less(t, LatencyP95SLO, LatencyP99SLO)
}

func TestUpdaters(t *testing.T) {
	tests := []struct {
		name   string
		update func(float64)
		gauge  prometheus.Gauge
		value  float64
	}{
		{"availability", UpdateAvailability, SLOAvailability, 0.9995},
		{"p95", UpdateLatencyP95, SLOLatencyP95, 0.150},
		{"p99", UpdateLatencyP99, SLOLatencyP99, 0.420},
		{"error rate", UpdateErrorRate, SLOErrorRate, 0.0005},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.update(tt.value)
			assert.Equal(t, tt.value, gaugeValue(t, tt.gauge))
		})
	}
}
