// Package orders tracks the lifecycle of every order the core creates:
// Pending on risk approval, Submitted once the executor accepts it, then a
// terminal Filled/Rejected/Cancelled reported by the venue.
package orders

import (
	"errors"
	"sync"

	"main/internal/model"
)

var (
	ErrDuplicateOrder    = errors.New("order already exists")
	ErrUnknownOrder      = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order state transition")
)

// Book holds the core's view of in-flight and settled orders. Fill events
// for unknown orders surface ErrUnknownOrder so state desynchronization
// with the venue is never swallowed.
type Book struct {
	mu     sync.Mutex
	orders map[uint64]*model.Order
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{orders: make(map[uint64]*model.Order)}
}

// Create registers a risk-approved Pending order.
func (b *Book) Create(o model.Order) error {
	if o.ID == 0 {
		return ErrUnknownOrder
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[o.ID]; ok {
		return ErrDuplicateOrder
	}
	o.Status = model.OrderStatusPending
	b.orders[o.ID] = &o
	return nil
}

// MarkSubmitted advances a Pending order to Submitted.
func (b *Book) MarkSubmitted(id uint64) (model.Order, error) {
	return b.transition(id, model.OrderStatusPending, model.OrderStatusSubmitted)
}

// MarkRejected terminates an order rejected by the venue or executor.
func (b *Book) MarkRejected(id uint64) (model.Order, error) {
	return b.terminate(id, model.OrderStatusRejected)
}

// MarkCancelled terminates a cancelled order.
func (b *Book) MarkCancelled(id uint64) (model.Order, error) {
	return b.terminate(id, model.OrderStatusCancelled)
}

// ApplyFill terminates an order as Filled. The order must be known and
// not already terminal.
func (b *Book) ApplyFill(fill model.Fill) (model.Order, error) {
	return b.terminate(fill.OrderID, model.OrderStatusFilled)
}

// Get returns the current state of an order.
func (b *Book) Get(id uint64) (model.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return model.Order{}, false
	}
	return *o, true
}

// Open returns non-terminal orders, for shutdown draining and resend
// bookkeeping.
func (b *Book) Open() []model.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Order, 0)
	for _, o := range b.orders {
		if !o.Status.Terminal() {
			out = append(out, *o)
		}
	}
	return out
}

// HasOpenReduceOnly reports whether a reduce-only exit is already in
// flight for the symbol. The core uses it to avoid stacking stop-loss
// orders while one is pending at the venue.
func (b *Book) HasOpenReduceOnly(symbol string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.orders {
		if o.Symbol == symbol && o.ReduceOnly && !o.Status.Terminal() {
			return true
		}
	}
	return false
}

func (b *Book) transition(id uint64, from, to model.OrderStatus) (model.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return model.Order{}, ErrUnknownOrder
	}
	if o.Status != from {
		return *o, ErrInvalidTransition
	}
	o.Status = to
	return *o, nil
}

func (b *Book) terminate(id uint64, to model.OrderStatus) (model.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return model.Order{}, ErrUnknownOrder
	}
	if o.Status.Terminal() {
		return *o, ErrInvalidTransition
	}
	o.Status = to
	return *o, nil
}
