// Package strategy holds the pluggable signal generators. Strategies are
// pure functions of their inputs plus fixed configuration, so one instance
// is safe to call concurrently across symbols.
package strategy

import (
	"errors"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

var ErrNoStrategies = errors.New("registry has no strategies")

// Strategy analyzes a price series and an orderbook snapshot and returns a
// signal, or nil when it has nothing to say (insufficient data, no
// threshold crossed, or a required orderbook is missing).
type Strategy interface {
	Analyze(prices []model.Price, book model.OrderBook) *model.TradingSignal
	Name() string
}

// Registry is the static ordered strategy collection built at startup.
// Precedence is registration order: the first non-hold signal wins.
type Registry struct {
	strategies []Strategy
	orderQty   decimal.Decimal
}

// NewRegistry builds a registry with a fixed per-order sizing. Sizing is an
// external parameter, never strategy-owned.
func NewRegistry(orderQty decimal.Decimal, strategies ...Strategy) (*Registry, error) {
	if len(strategies) == 0 {
		return nil, ErrNoStrategies
	}
	if !orderQty.IsPositive() {
		return nil, errors.New("order quantity must be positive")
	}
	return &Registry{strategies: strategies, orderQty: orderQty}, nil
}

// Names returns strategy names in precedence order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s.Name())
	}
	return out
}

// Evaluate runs registered strategies in order and returns the first
// non-hold signal with the configured quantity stamped in.
func (r *Registry) Evaluate(prices []model.Price, book model.OrderBook) *model.TradingSignal {
	for _, s := range r.strategies {
		sig := s.Analyze(prices, book)
		if sig == nil || sig.Action == model.ActionHold {
			continue
		}
		sig.Strategy = s.Name()
		if sig.Quantity.IsZero() {
			sig.Quantity = r.orderQty
		}
		return sig
	}
	return nil
}

// confidence maps a magnitude/threshold ratio into (0, 1].
func confidence(magnitude, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	c := magnitude / threshold
	if c > 1 {
		return 1
	}
	return c
}
