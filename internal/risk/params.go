package risk

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Params defines the static risk limits. All limits must be positive;
// invalid params are a startup failure, never silently defaulted.
type Params struct {
	// MaxPositionSize bounds |net quantity| per symbol after a trade.
	MaxPositionSize decimal.Decimal

	// MaxLossPerTrade bounds the estimated worst-case loss of one trade
	// (notional x stop-loss fraction).
	MaxLossPerTrade decimal.Decimal

	// MaxDailyLoss bounds cumulative realized loss per calendar day.
	MaxDailyLoss decimal.Decimal

	// StopLossPct / TakeProfitPct are fractions of the entry value at
	// which open positions are force-closed.
	StopLossPct   decimal.Decimal
	TakeProfitPct decimal.Decimal

	// PriceBand is the allowed fraction between a signal's target price
	// and the last market price before the sanity check rejects it.
	PriceBand decimal.Decimal
}

// Validate checks every limit at construction time.
func (p Params) Validate() error {
	switch {
	case !p.MaxPositionSize.IsPositive():
		return errors.New("max position size must be positive")
	case !p.MaxLossPerTrade.IsPositive():
		return errors.New("max loss per trade must be positive")
	case !p.MaxDailyLoss.IsPositive():
		return errors.New("max daily loss must be positive")
	case !p.StopLossPct.IsPositive():
		return errors.New("stop loss pct must be positive")
	case !p.TakeProfitPct.IsPositive():
		return errors.New("take profit pct must be positive")
	case !p.PriceBand.IsPositive():
		return errors.New("price band must be positive")
	}
	return nil
}
