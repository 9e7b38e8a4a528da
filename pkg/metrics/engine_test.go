package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestEngineMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.IncAssignmentBatch("shelf", "ok")
	m.IncAssignmentBatch("shelf", "ok")
	m.AddBoxesAssigned("shelf", 3)
	m.IncSMS("sent")
	m.IncOrdersReady()

	require.Equal(t, float64(2), testutil.ToFloat64(m.assignmentBatches.WithLabelValues("shelf", "ok")))
	require.Equal(t, float64(3), testutil.ToFloat64(m.boxesAssigned.WithLabelValues("shelf")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.smsMessages.WithLabelValues("sent")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.ordersReady))
}

func TestEngineMetricsEmptyLabelFallsBack(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.IncAssignmentBatch("", "")
	m.IncSMS("")

	require.Equal(t, float64(1), testutil.ToFloat64(m.assignmentBatches.WithLabelValues("unknown", "unknown")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.smsMessages.WithLabelValues("unknown")))
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var m *EngineMetrics
	m.IncAssignmentBatch("pallet", "rejected")
	m.AddBoxesAssigned("pallet", 1)
	m.IncSMS("not_sent")
	m.IncOrdersReady()

	empty := NewEngineMetrics(nil)
	empty.IncAssignmentBatch("pallet", "ok")
	empty.AddBoxesAssigned("pallet", 0)
}
