package obs

import (
	"github.com/yanun0323/logs"

	"main/internal/model"
)

// Sink consumes the observability bus: every event is counted and logged.
// Rejections and failures are expected outcomes here, not system errors.
type Sink struct {
	metrics *Metrics
}

// NewSink builds a sink over a metrics container.
func NewSink(metrics *Metrics) *Sink {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Sink{metrics: metrics}
}

// Metrics returns the underlying metrics container.
func (s *Sink) Metrics() *Metrics {
	return s.metrics
}

// Handle processes one event. Meant to be passed to bus.Queue.Run.
func (s *Sink) Handle(e model.Event) {
	s.metrics.IncEvent(e.Kind)
	switch e.Kind {
	case model.EventSignalGenerated:
		logs.Infof("signal %s %s by %s (%s)", e.Action, e.Symbol, e.Strategy, e.Detail)
	case model.EventOrderApproved:
		logs.Infof("order %d approved: %s %s (%s)", e.OrderID, e.Action, e.Symbol, e.Detail)
	case model.EventOrderRejected:
		logs.Infof("order rejected: %s reason=%s %s", e.Symbol, e.Reason, e.Detail)
	case model.EventOrderSubmitted:
		logs.Infof("order %d submitted: %s", e.OrderID, e.Symbol)
	case model.EventExecutionFailed:
		logs.Errorf("execution failed: %s order=%d reason=%s %s", e.Symbol, e.OrderID, e.Reason, e.Detail)
	case model.EventFillApplied:
		logs.Infof("fill applied: %s order=%d %s", e.Symbol, e.OrderID, e.Detail)
	case model.EventDailyLossBreached:
		logs.Errorf("daily loss limit breached: %s %s", e.Symbol, e.Detail)
	case model.EventInvariantViolation:
		logs.Errorf("invariant violation: %s order=%d %s", e.Symbol, e.OrderID, e.Detail)
	default:
		logs.Infof("event %s: %s", e.Kind, e.Symbol)
	}
}
