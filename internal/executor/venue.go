package executor

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/model"
)

// Client is the venue transport boundary. Implementations own signing,
// HTTP/WebSocket plumbing and rate limiting; they classify their failures
// as *ExecutionError so the Venue executor can decide what to retry.
type Client interface {
	PlaceOrder(ctx context.Context, order model.Order) (venueOrderID string, err error)
	CancelOrder(ctx context.Context, symbol, venueOrderID string) error
}

// VenueConfig bounds the retry budget for transient failures.
type VenueConfig struct {
	MaxAttempts int
	Backoff     Backoff
}

// Venue submits orders to a live venue through a Client, retrying
// timeouts and connectivity losses within a bounded budget and failing
// closed afterward. Venue rejections are never retried.
type Venue struct {
	cfg    VenueConfig
	client Client

	mu       sync.Mutex
	venueIDs map[uint64]string
}

// NewVenue builds a live executor around a venue client.
func NewVenue(cfg VenueConfig, client Client) *Venue {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff == (Backoff{}) {
		cfg.Backoff = DefaultBackoff()
	}
	return &Venue{
		cfg:      cfg,
		client:   client,
		venueIDs: make(map[uint64]string),
	}
}

func (v *Venue) Mode() string {
	return "live"
}

// Submit places the order, retrying transient failures with backoff. The
// ack never carries a synchronous fill: live fills arrive on the venue's
// fill stream and are correlated by order ID.
func (v *Venue) Submit(ctx context.Context, order model.Order) (Ack, error) {
	var lastErr error
	for attempt := 1; attempt <= v.cfg.MaxAttempts; attempt++ {
		venueID, err := v.client.PlaceOrder(ctx, order)
		if err == nil {
			v.mu.Lock()
			v.venueIDs[order.ID] = venueID
			v.mu.Unlock()
			logs.Infof("[live] submitted %s %s %s @ %s (order %d, venue %s)",
				order.Side, order.Quantity, order.Symbol, order.Price, order.ID, venueID)
			return Ack{OrderID: order.ID, VenueOrderID: venueID}, nil
		}

		lastErr = err
		ee, ok := AsExecutionError(err)
		if !ok {
			return Ack{}, &ExecutionError{Kind: KindUnknown, Reason: "unclassified venue failure", Err: err}
		}
		if !ee.Kind.Retryable() || attempt == v.cfg.MaxAttempts {
			break
		}

		wait := v.cfg.Backoff.Next(attempt)
		logs.Infof("[live] submit attempt %d/%d failed (%s), retrying in %s",
			attempt, v.cfg.MaxAttempts, ee.Kind, wait)
		select {
		case <-ctx.Done():
			return Ack{}, &ExecutionError{Kind: KindConnectivityLost, Reason: "cancelled during retry", Err: ctx.Err()}
		case <-time.After(wait):
		}
	}
	return Ack{}, lastErr
}

// Cancel cancels a previously submitted order by its internal ID.
func (v *Venue) Cancel(ctx context.Context, symbol string, orderID uint64) error {
	v.mu.Lock()
	venueID, ok := v.venueIDs[orderID]
	v.mu.Unlock()
	if !ok {
		return errors.Errorf("no venue id for order %d", orderID)
	}
	if err := v.client.CancelOrder(ctx, symbol, venueID); err != nil {
		return errors.Wrap(err, "cancel order")
	}
	v.mu.Lock()
	delete(v.venueIDs, orderID)
	v.mu.Unlock()
	return nil
}
