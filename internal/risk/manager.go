// Package risk gates every proposed order. The Manager owns the daily P&L
// accumulator and the static limits; it holds a read-only view of positions
// for exposure checks and never mutates them.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

// PositionView is the read-only position access the Manager needs.
type PositionView interface {
	Get(symbol string) model.Position
}

// Manager validates proposed orders and tracks realized daily loss. The
// validate and record paths share one lock so a signal cannot be approved
// against one view of the accumulator and recorded against another.
type Manager struct {
	mu          sync.Mutex
	params      Params
	daily       *dailyPnL
	positions   PositionView
	lastOrderID uint64
	now         func() time.Time
}

// Option overrides Manager defaults, for tests.
type Option func(*Manager)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTimezone sets the calendar-day rollover timezone.
func WithTimezone(loc *time.Location) Option {
	return func(m *Manager) { m.daily = newDailyPnL(loc) }
}

// NewManager validates params and builds a manager.
func NewManager(params Params, positions PositionView, opts ...Option) (*Manager, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if positions == nil {
		return nil, fmt.Errorf("position view is nil")
	}
	m := &Manager{
		params:    params,
		daily:     newDailyPnL(time.Local),
		positions: positions,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Params returns the configured limits.
func (m *Manager) Params() Params {
	return m.params
}

// ValidateOrder runs the admission checks in order, short-circuiting on the
// first failure, and returns a Pending order on success.
//
// Checks: resulting position vs MaxPositionSize (skipped for reduce-only
// exits), worst-case loss vs MaxLossPerTrade, daily accumulator vs
// MaxDailyLoss (rolling the day first), then the price sanity band.
func (m *Manager) ValidateOrder(sig model.TradingSignal, currentPrice decimal.Decimal) (model.Order, error) {
	side := sig.Action.Side()
	if side == model.SideUnknown || !sig.Quantity.IsPositive() || !sig.TargetPrice.IsPositive() {
		return model.Order{}, &Rejection{
			Reason: RejectPriceSanity,
			Detail: "signal is not actionable",
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()

	if !sig.ReduceOnly {
		pos := m.positions.Get(sig.Symbol)
		next := pos.NetQuantity
		switch side {
		case model.SideBuy:
			next = next.Add(sig.Quantity)
		case model.SideSell:
			next = next.Sub(sig.Quantity)
		}
		if next.Abs().GreaterThan(m.params.MaxPositionSize) {
			return model.Order{}, &Rejection{
				Reason: RejectPositionLimit,
				Detail: fmt.Sprintf("resulting position %s exceeds limit %s", next, m.params.MaxPositionSize),
			}
		}
	}

	worstCase := sig.Quantity.Mul(sig.TargetPrice).Mul(m.params.StopLossPct)
	if worstCase.GreaterThan(m.params.MaxLossPerTrade) {
		return model.Order{}, &Rejection{
			Reason: RejectPerTradeLoss,
			Detail: fmt.Sprintf("worst-case loss %s exceeds limit %s", worstCase, m.params.MaxLossPerTrade),
		}
	}

	lossToday := m.daily.realizedLoss(now)
	if lossToday.Add(worstCase).GreaterThan(m.params.MaxDailyLoss) {
		return model.Order{}, &Rejection{
			Reason: RejectDailyLoss,
			Detail: fmt.Sprintf("daily loss %s + worst case %s exceeds limit %s", lossToday, worstCase, m.params.MaxDailyLoss),
		}
	}

	if !currentPrice.IsPositive() {
		return model.Order{}, &Rejection{
			Reason: RejectPriceSanity,
			Detail: "no market price available",
		}
	}
	deviation := sig.TargetPrice.Sub(currentPrice).Abs().Div(currentPrice)
	if deviation.GreaterThan(m.params.PriceBand) {
		return model.Order{}, &Rejection{
			Reason: RejectPriceSanity,
			Detail: fmt.Sprintf("target %s deviates %s from market %s", sig.TargetPrice, deviation, currentPrice),
		}
	}

	m.lastOrderID++
	return model.Order{
		ID:         m.lastOrderID,
		Symbol:     sig.Symbol,
		Side:       side,
		Quantity:   sig.Quantity,
		Price:      sig.TargetPrice,
		ReduceOnly: sig.ReduceOnly,
		Strategy:   sig.Strategy,
		Status:     model.OrderStatusPending,
		CreatedAt:  now,
	}, nil
}

// RecordFill folds a realized P&L into the daily accumulator. Only losses
// accumulate. It returns the accumulator and whether the daily limit has
// been reached, which halts new admissions until the next rollover.
func (m *Manager) RecordFill(_ model.Order, realizedPnL decimal.Decimal) (lossToday decimal.Decimal, breached bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if realizedPnL.IsNegative() {
		lossToday = m.daily.addLoss(now, realizedPnL.Neg())
	} else {
		lossToday = m.daily.realizedLoss(now)
	}
	return lossToday, lossToday.GreaterThanOrEqual(m.params.MaxDailyLoss)
}

// LossToday exposes the accumulator for observability snapshots.
func (m *Manager) LossToday() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.daily.realizedLoss(m.now())
}

// CheckExit synthesizes a reduce-only closing signal when the position's
// unrealized move from entry crosses the stop-loss or take-profit
// fraction. Returns nil while the position is flat or inside both bands.
func (m *Manager) CheckExit(pos model.Position, last decimal.Decimal) *model.TradingSignal {
	if pos.Flat() || !pos.AvgEntryPrice.IsPositive() || !last.IsPositive() {
		return nil
	}

	// Positive change is unrealized gain for the position's direction.
	change := last.Sub(pos.AvgEntryPrice).Div(pos.AvgEntryPrice)
	if pos.NetQuantity.IsNegative() {
		change = change.Neg()
	}

	var strat string
	switch {
	case change.Neg().GreaterThanOrEqual(m.params.StopLossPct):
		strat = "risk.stop_loss"
	case change.GreaterThanOrEqual(m.params.TakeProfitPct):
		strat = "risk.take_profit"
	default:
		return nil
	}

	action := model.ActionSell
	if pos.NetQuantity.IsNegative() {
		action = model.ActionBuy
	}
	return &model.TradingSignal{
		Symbol:      pos.Symbol,
		Action:      action,
		Confidence:  1,
		TargetPrice: last,
		Quantity:    pos.NetQuantity.Abs(),
		Strategy:    strat,
		ReduceOnly:  true,
	}
}
