package model

import "time"

// EventKind defines the category of an observability event.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventSignalGenerated
	EventOrderApproved
	EventOrderRejected
	EventOrderSubmitted
	EventExecutionFailed
	EventFillApplied
	EventDailyLossBreached
	EventInvariantViolation
)

func (k EventKind) String() string {
	switch k {
	case EventSignalGenerated:
		return "signal_generated"
	case EventOrderApproved:
		return "order_approved"
	case EventOrderRejected:
		return "order_rejected"
	case EventOrderSubmitted:
		return "order_submitted"
	case EventExecutionFailed:
		return "execution_failed"
	case EventFillApplied:
		return "fill_applied"
	case EventDailyLossBreached:
		return "daily_loss_breached"
	case EventInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Event is the unit pushed through the observability bus.
type Event struct {
	Kind     EventKind
	Symbol   string
	Strategy string
	Action   Action
	Reason   string
	OrderID  uint64
	Detail   string
	Ts       time.Time
}
