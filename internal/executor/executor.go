// Package executor submits approved orders to the trading venue and
// normalizes venue responses into internal order state. The venue wire
// protocol (signing, HTTP, rate limits) lives behind the Client boundary;
// this package owns retries, failure classification, and the simulated
// paper path.
package executor

import (
	"context"
	"fmt"

	"main/internal/model"
)

// ErrorKind classifies venue-side failures.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindVenueRejected
	KindTimeout
	KindConnectivityLost
)

func (k ErrorKind) String() string {
	switch k {
	case KindVenueRejected:
		return "venue_rejected"
	case KindTimeout:
		return "timeout"
	case KindConnectivityLost:
		return "connectivity_lost"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure class may be retried. Venue
// rejections are final; transport failures get the bounded retry budget.
func (k ErrorKind) Retryable() bool {
	return k == KindTimeout || k == KindConnectivityLost
}

// ExecutionError is a typed venue-side failure. The core maps every one of
// them to a Rejected order state instead of crashing the cycle.
type ExecutionError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("execution failed: %s", e.Kind)
	}
	return fmt.Sprintf("execution failed: %s (%s)", e.Kind, e.Reason)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// AsExecutionError unwraps err into an ExecutionError when it is one.
func AsExecutionError(err error) (*ExecutionError, bool) {
	ee, ok := err.(*ExecutionError)
	return ee, ok
}

// Ack is the venue's answer to a submission. Fill is set when the venue
// (or the paper simulator) fills synchronously; asynchronous fills arrive
// through the fill stream and are correlated by order ID.
type Ack struct {
	OrderID      uint64
	VenueOrderID string
	Fill         *model.Fill
}

// Executor is the contract the trading core drives.
type Executor interface {
	Submit(ctx context.Context, order model.Order) (Ack, error)
	Cancel(ctx context.Context, symbol string, orderID uint64) error
	Mode() string
}
