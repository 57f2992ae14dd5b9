package feed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

// SimConfig parametrizes the synthetic feed.
type SimConfig struct {
	// BasePrice is the midpoint of the generated series.
	BasePrice decimal.Decimal

	// Step is the per-tick price move; the series walks Cycle ticks up
	// then Cycle ticks down, so both momentum and reversion strategies
	// see triggers.
	Step  decimal.Decimal
	Cycle int

	// Spread is the synthetic half-spread around the last price.
	Spread decimal.Decimal

	// Volume is stamped on every tick.
	Volume decimal.Decimal

	// Interval paces tick emission.
	Interval time.Duration
}

// Sim generates a deterministic synthetic price stream for offline paper
// runs: no venue connectivity, reproducible ticks.
type Sim struct {
	cfg   SimConfig
	books *Books
	now   func() time.Time
}

// NewSim creates a synthetic feed writing book snapshots into books.
func NewSim(cfg SimConfig, books *Books) *Sim {
	if cfg.Cycle <= 0 {
		cfg.Cycle = 16
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if !cfg.Volume.IsPositive() {
		cfg.Volume = decimal.NewFromInt(1)
	}
	return &Sim{cfg: cfg, books: books, now: time.Now}
}

// Subscribe emits a triangular price walk until the context is done.
func (s *Sim) Subscribe(ctx context.Context, symbol string) (<-chan model.Price, error) {
	out := make(chan model.Price, 64)

	go func() {
		defer close(out)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		price := s.cfg.BasePrice
		tick := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			phase := tick % (2 * s.cfg.Cycle)
			if phase < s.cfg.Cycle {
				price = price.Add(s.cfg.Step)
			} else {
				price = price.Sub(s.cfg.Step)
			}
			tick++

			now := s.now()
			select {
			case out <- model.Price{
				Symbol:    symbol,
				Value:     price,
				Volume:    s.cfg.Volume,
				Timestamp: now,
			}:
			case <-ctx.Done():
				return
			}

			if s.books != nil {
				s.books.Put(model.OrderBook{
					Symbol:    symbol,
					BidPrice:  price.Sub(s.cfg.Spread),
					BidQty:    s.cfg.Volume,
					AskPrice:  price.Add(s.cfg.Spread),
					AskQty:    s.cfg.Volume,
					Timestamp: now,
				})
			}
		}
	}()

	return out, nil
}
