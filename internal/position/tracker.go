// Package position tracks per-symbol net exposure. Positions are mutated
// exclusively by confirmed fills, never on submission, so rejected orders
// can never create phantom exposure.
package position

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

var (
	ErrDuplicateFill = errors.New("fill already applied")
	ErrInvalidFill   = errors.New("invalid fill")
)

// Tracker owns the positions map. Fill application is replay-safe: each
// fill ID is applied exactly once and duplicates are rejected.
type Tracker struct {
	mu        sync.RWMutex
	positions map[string]model.Position
	applied   map[uint64]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		positions: make(map[string]model.Position),
		applied:   make(map[uint64]struct{}),
	}
}

// Apply updates the symbol's net quantity and volume-weighted average entry
// price from a confirmed fill and returns the new position.
//
// Closing a position zeroes the average entry price; flipping sides resets
// it to the fill price for the residual quantity.
func (t *Tracker) Apply(fill model.Fill) (model.Position, error) {
	if !fill.Quantity.IsPositive() || !fill.Price.IsPositive() {
		return model.Position{}, ErrInvalidFill
	}

	signed := fill.Quantity
	switch fill.Side {
	case model.SideBuy:
	case model.SideSell:
		signed = signed.Neg()
	default:
		return model.Position{}, ErrInvalidFill
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.applied[fill.FillID]; ok {
		return t.positions[fill.Symbol], ErrDuplicateFill
	}

	pos := t.positions[fill.Symbol]
	pos.Symbol = fill.Symbol
	next := pos.NetQuantity.Add(signed)

	switch {
	case next.IsZero():
		pos.AvgEntryPrice = decimal.Zero
	case pos.NetQuantity.IsZero() || pos.NetQuantity.Sign() != next.Sign():
		// Opening flat or flipping sides: the fill price is the entry
		// for whatever exposure remains.
		pos.AvgEntryPrice = fill.Price
	case pos.NetQuantity.Sign() == signed.Sign():
		// Adding to the position: volume-weighted entry.
		oldAbs := pos.NetQuantity.Abs()
		addAbs := signed.Abs()
		cost := oldAbs.Mul(pos.AvgEntryPrice).Add(addAbs.Mul(fill.Price))
		pos.AvgEntryPrice = cost.Div(oldAbs.Add(addAbs))
	default:
		// Partial reduction keeps the original entry price.
	}

	pos.NetQuantity = next
	t.positions[fill.Symbol] = pos
	t.applied[fill.FillID] = struct{}{}
	return pos, nil
}

// Seen reports whether a fill id has already been applied.
func (t *Tracker) Seen(fillID uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.applied[fillID]
	return ok
}

// Get returns the current position for a symbol. Side-effect-free.
func (t *Tracker) Get(symbol string) model.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos := t.positions[symbol]
	pos.Symbol = symbol
	return pos
}

// Open returns the symbols with non-zero exposure.
func (t *Tracker) Open() []model.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.Position, 0, len(t.positions))
	for _, pos := range t.positions {
		if !pos.Flat() {
			out = append(out, pos)
		}
	}
	return out
}

// Count returns the number of tracked symbols.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.positions)
}
