package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records fulfillment activity: box assignment batches, boxes
// placed on containers and SMS dispatch outcomes.
type EngineMetrics struct {
	assignmentBatches *prometheus.CounterVec
	boxesAssigned     *prometheus.CounterVec
	smsMessages       *prometheus.CounterVec
	ordersReady       prometheus.Counter
}

// NewEngineMetrics registers the fulfillment metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	assignmentBatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_batches_total",
		Help: "Box assignment batches by result.",
	}, []string{"target", "result"})
	boxesAssigned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boxes_assigned_total",
		Help: "Boxes placed on a container.",
	}, []string{"target"})
	smsMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_messages_total",
		Help: "SMS dispatch attempts by status.",
	}, []string{"status"})
	ordersReady := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_ready_total",
		Help: "Orders marked ready for pickup.",
	})
	reg.MustRegister(assignmentBatches, boxesAssigned, smsMessages, ordersReady)
	return &EngineMetrics{
		assignmentBatches: assignmentBatches,
		boxesAssigned:     boxesAssigned,
		smsMessages:       smsMessages,
		ordersReady:       ordersReady,
	}
}

// IncAssignmentBatch increments the batch counter for the container kind and result.
func (e *EngineMetrics) IncAssignmentBatch(target, result string) {
	if e == nil || e.assignmentBatches == nil {
		return
	}
	e.assignmentBatches.WithLabelValues(metricLabel(target), metricLabel(result)).Inc()
}

// AddBoxesAssigned adds to the placed-box counter for the container kind.
func (e *EngineMetrics) AddBoxesAssigned(target string, count int) {
	if e == nil || e.boxesAssigned == nil || count <= 0 {
		return
	}
	e.boxesAssigned.WithLabelValues(metricLabel(target)).Add(float64(count))
}

// IncSMS increments the SMS counter for the delivery status.
func (e *EngineMetrics) IncSMS(status string) {
	if e == nil || e.smsMessages == nil {
		return
	}
	e.smsMessages.WithLabelValues(metricLabel(status)).Inc()
}

// IncOrdersReady increments the ready-order counter.
func (e *EngineMetrics) IncOrdersReady() {
	if e == nil || e.ordersReady == nil {
		return
	}
	e.ordersReady.Inc()
}

// metricLabel keeps label cardinality bounded when a caller passes an empty
// value.
func metricLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
