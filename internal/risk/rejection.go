package risk

import "fmt"

// RejectReason is the typed outcome of a failed validation check.
type RejectReason uint8

const (
	RejectNone RejectReason = iota
	RejectPositionLimit
	RejectPerTradeLoss
	RejectDailyLoss
	RejectPriceSanity
)

func (r RejectReason) String() string {
	switch r {
	case RejectPositionLimit:
		return "position_limit_exceeded"
	case RejectPerTradeLoss:
		return "per_trade_loss_limit_exceeded"
	case RejectDailyLoss:
		return "daily_loss_limit_exceeded"
	case RejectPriceSanity:
		return "price_sanity_failed"
	default:
		return "none"
	}
}

// Rejection is an expected validation outcome, not a system error. It is
// surfaced to observability and never silently dropped.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("order rejected: %s", r.Reason)
	}
	return fmt.Sprintf("order rejected: %s (%s)", r.Reason, r.Detail)
}

// AsRejection unwraps err into a Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	rej, ok := err.(*Rejection)
	return rej, ok
}
