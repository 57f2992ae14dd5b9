package strategy

import (
	"errors"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

// MomentumConfig parametrizes a Momentum strategy.
type MomentumConfig struct {
	// Lookback is the window size in price points. The change is measured
	// between the latest price and the oldest price of the window.
	Lookback int

	// Threshold is the fractional change that triggers a signal, e.g.
	// 0.002 for 0.2%.
	Threshold float64

	// MinAvgVolume optionally gates signals on average volume over the
	// window. Zero disables the gate.
	MinAvgVolume decimal.Decimal
}

// Validate rejects non-positive lookbacks and thresholds.
func (c MomentumConfig) Validate() error {
	if c.Lookback < 2 {
		return errors.New("momentum lookback must be >= 2")
	}
	if c.Threshold <= 0 {
		return errors.New("momentum threshold must be positive")
	}
	if c.MinAvgVolume.IsNegative() {
		return errors.New("momentum min average volume must not be negative")
	}
	return nil
}

// Momentum buys strength and sells weakness: it signals when the
// percentage change across the lookback window crosses the threshold.
type Momentum struct {
	cfg MomentumConfig
}

// NewMomentum builds a momentum strategy from a validated config.
func NewMomentum(cfg MomentumConfig) (*Momentum, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Momentum{cfg: cfg}, nil
}

func (m *Momentum) Name() string {
	return "momentum"
}

// Analyze compares the latest price against the start of the lookback
// window. Returns nil while the history is shorter than the window.
func (m *Momentum) Analyze(prices []model.Price, _ model.OrderBook) *model.TradingSignal {
	if len(prices) < m.cfg.Lookback {
		return nil
	}
	window := prices[len(prices)-m.cfg.Lookback:]
	oldest := window[0].Value
	latest := window[len(window)-1].Value
	if !oldest.IsPositive() || !latest.IsPositive() {
		return nil
	}

	if m.cfg.MinAvgVolume.IsPositive() {
		total := decimal.Zero
		for _, p := range window {
			total = total.Add(p.Volume)
		}
		avg := total.Div(decimal.NewFromInt(int64(len(window))))
		if avg.LessThan(m.cfg.MinAvgVolume) {
			return nil
		}
	}

	change, _ := latest.Sub(oldest).Div(oldest).Float64()
	action := model.ActionHold
	switch {
	case change >= m.cfg.Threshold:
		action = model.ActionBuy
	case change <= -m.cfg.Threshold:
		action = model.ActionSell
	default:
		return nil
	}

	mag := change
	if mag < 0 {
		mag = -mag
	}
	return &model.TradingSignal{
		Symbol:      window[len(window)-1].Symbol,
		Action:      action,
		Confidence:  confidence(mag, m.cfg.Threshold),
		TargetPrice: latest,
	}
}
