// Package ops resolves process configuration: environment credentials and
// the JSON trading config. Every validation failure here is fatal at
// startup; nothing is silently defaulted.
package ops

import (
	"encoding/json"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/core"
	"main/internal/risk"
	"main/internal/strategy"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Symbols        []string         `json:"symbols"`
	EvalInterval   string           `json:"evalInterval"`
	HistorySize    int              `json:"historySize"`
	BookMaxAge     string           `json:"bookMaxAge"`
	OrderQty       decimal.Decimal  `json:"orderQty"`
	ConnFailBudget int              `json:"connFailBudget"`
	Strategies     []StrategyConfig `json:"strategies"`
	Risk           RiskConfig       `json:"risk"`
}

// StrategyConfig describes one registry entry. Registration order is the
// signal precedence order.
type StrategyConfig struct {
	Type string `json:"type"`

	// Momentum.
	Lookback     int             `json:"lookback"`
	Threshold    float64         `json:"threshold"`
	MinAvgVolume decimal.Decimal `json:"minAvgVolume"`

	// Mean reversion.
	DeviationThreshold float64 `json:"deviationThreshold"`
}

// RiskConfig mirrors risk.Params in the config file.
type RiskConfig struct {
	MaxPositionSize decimal.Decimal `json:"maxPositionSize"`
	MaxLossPerTrade decimal.Decimal `json:"maxLossPerTrade"`
	MaxDailyLoss    decimal.Decimal `json:"maxDailyLoss"`
	StopLossPct     decimal.Decimal `json:"stopLossPct"`
	TakeProfitPct   decimal.Decimal `json:"takeProfitPct"`
	PriceBand       decimal.Decimal `json:"priceBand"`
}

// Loaded is the resolved configuration ready for wiring.
type Loaded struct {
	Core       core.Config
	BookMaxAge time.Duration
	Registry   *strategy.Registry
	Risk       risk.Params
}

// Load reads a JSON config file and resolves every section.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config file")
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "parse config file")
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	if len(cfg.Symbols) == 0 {
		return Loaded{}, errors.New("config: no symbols")
	}

	evalInterval, err := parseDuration(cfg.EvalInterval, "evalInterval")
	if err != nil {
		return Loaded{}, err
	}
	bookMaxAge := time.Duration(0)
	if cfg.BookMaxAge != "" {
		bookMaxAge, err = parseDuration(cfg.BookMaxAge, "bookMaxAge")
		if err != nil {
			return Loaded{}, err
		}
	}

	params := risk.Params{
		MaxPositionSize: cfg.Risk.MaxPositionSize,
		MaxLossPerTrade: cfg.Risk.MaxLossPerTrade,
		MaxDailyLoss:    cfg.Risk.MaxDailyLoss,
		StopLossPct:     cfg.Risk.StopLossPct,
		TakeProfitPct:   cfg.Risk.TakeProfitPct,
		PriceBand:       cfg.Risk.PriceBand,
	}
	if err := params.Validate(); err != nil {
		return Loaded{}, errors.Wrap(err, "config: risk")
	}

	reg, err := BuildRegistry(cfg.OrderQty, cfg.Strategies)
	if err != nil {
		return Loaded{}, err
	}

	return Loaded{
		Core: core.Config{
			Symbols:        cfg.Symbols,
			EvalInterval:   evalInterval,
			HistorySize:    cfg.HistorySize,
			ConnFailBudget: cfg.ConnFailBudget,
		},
		BookMaxAge: bookMaxAge,
		Registry:   reg,
		Risk:       params,
	}, nil
}

// BuildRegistry instantiates the configured strategies in declaration
// order. An unknown strategy type is a startup failure, never skipped.
func BuildRegistry(orderQty decimal.Decimal, configs []StrategyConfig) (*strategy.Registry, error) {
	strategies := make([]strategy.Strategy, 0, len(configs))
	for _, sc := range configs {
		switch sc.Type {
		case "momentum":
			s, err := strategy.NewMomentum(strategy.MomentumConfig{
				Lookback:     sc.Lookback,
				Threshold:    sc.Threshold,
				MinAvgVolume: sc.MinAvgVolume,
			})
			if err != nil {
				return nil, errors.Wrap(err, "config: momentum strategy")
			}
			strategies = append(strategies, s)
		case "mean_reversion":
			s, err := strategy.NewMeanReversion(strategy.MeanReversionConfig{
				Lookback:           sc.Lookback,
				DeviationThreshold: sc.DeviationThreshold,
			})
			if err != nil {
				return nil, errors.Wrap(err, "config: mean reversion strategy")
			}
			strategies = append(strategies, s)
		default:
			return nil, errors.Errorf("config: unknown strategy type %q", sc.Type)
		}
	}

	reg, err := strategy.NewRegistry(orderQty, strategies...)
	if err != nil {
		return nil, errors.Wrap(err, "config: strategy registry")
	}
	return reg, nil
}

func parseDuration(raw, field string) (time.Duration, error) {
	if raw == "" {
		return 0, errors.Errorf("config: %s is required", field)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "config: %s", field)
	}
	if d <= 0 {
		return 0, errors.Errorf("config: %s must be positive", field)
	}
	return d, nil
}
