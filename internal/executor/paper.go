package executor

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/model"
)

// Paper simulates execution for testnet runs: no network call ever happens,
// every valid order is filled deterministically at its requested price, and
// submissions are logged distinctly from live ones.
type Paper struct {
	fillSeq atomic.Uint64
	now     func() time.Time
}

// NewPaper creates a paper executor.
func NewPaper() *Paper {
	return &Paper{now: time.Now}
}

func (p *Paper) Mode() string {
	return "paper"
}

// Submit acknowledges the order with a synthetic fill at the requested
// price and quantity.
func (p *Paper) Submit(_ context.Context, order model.Order) (Ack, error) {
	if !order.Quantity.IsPositive() || !order.Price.IsPositive() {
		return Ack{}, &ExecutionError{Kind: KindVenueRejected, Reason: "invalid order"}
	}

	fill := &model.Fill{
		FillID:    p.fillSeq.Add(1),
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Price:     order.Price,
		Quantity:  order.Quantity,
		Timestamp: p.now(),
	}
	logs.Infof("[paper] simulated %s %s %s @ %s (order %d)",
		order.Side, order.Quantity, order.Symbol, order.Price, order.ID)
	return Ack{OrderID: order.ID, VenueOrderID: paperVenueID(order.ID), Fill: fill}, nil
}

// Cancel is a no-op: paper orders fill synchronously, so there is nothing
// resting to cancel.
func (p *Paper) Cancel(_ context.Context, symbol string, orderID uint64) error {
	logs.Infof("[paper] cancelled order %d (%s)", orderID, symbol)
	return nil
}

func paperVenueID(orderID uint64) string {
	return "paper-" + strconv.FormatUint(orderID, 10)
}
