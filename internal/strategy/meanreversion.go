package strategy

import (
	"errors"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

// MeanReversionConfig parametrizes a MeanReversion strategy.
type MeanReversionConfig struct {
	// Lookback is the number of historical points (excluding the latest
	// price) averaged into the reference mean.
	Lookback int

	// DeviationThreshold is the fractional deviation from the mean that
	// triggers a signal.
	DeviationThreshold float64
}

// Validate rejects non-positive lookbacks and thresholds.
func (c MeanReversionConfig) Validate() error {
	if c.Lookback < 1 {
		return errors.New("mean reversion lookback must be >= 1")
	}
	if c.DeviationThreshold <= 0 {
		return errors.New("mean reversion deviation threshold must be positive")
	}
	return nil
}

// MeanReversion bets that price returns to its recent mean: it buys below
// the mean and sells above it once the deviation crosses the threshold.
type MeanReversion struct {
	cfg MeanReversionConfig
}

// NewMeanReversion builds a mean-reversion strategy from a validated config.
func NewMeanReversion(cfg MeanReversionConfig) (*MeanReversion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MeanReversion{cfg: cfg}, nil
}

func (m *MeanReversion) Name() string {
	return "mean_reversion"
}

// Analyze measures the latest price's deviation from the mean of the
// preceding lookback window. The latest price is excluded from the mean so
// a single outlier does not drag the reference toward itself.
func (m *MeanReversion) Analyze(prices []model.Price, _ model.OrderBook) *model.TradingSignal {
	if len(prices) < m.cfg.Lookback+1 {
		return nil
	}
	latest := prices[len(prices)-1].Value
	window := prices[len(prices)-1-m.cfg.Lookback : len(prices)-1]

	total := decimal.Zero
	for _, p := range window {
		total = total.Add(p.Value)
	}
	mean := total.Div(decimal.NewFromInt(int64(len(window))))
	if !mean.IsPositive() || !latest.IsPositive() {
		return nil
	}

	deviation, _ := latest.Sub(mean).Div(mean).Float64()
	action := model.ActionHold
	switch {
	case deviation <= -m.cfg.DeviationThreshold:
		action = model.ActionBuy
	case deviation >= m.cfg.DeviationThreshold:
		action = model.ActionSell
	default:
		return nil
	}

	mag := deviation
	if mag < 0 {
		mag = -mag
	}
	return &model.TradingSignal{
		Symbol:      prices[len(prices)-1].Symbol,
		Action:      action,
		Confidence:  confidence(mag, m.cfg.DeviationThreshold),
		TargetPrice: latest,
	}
}
