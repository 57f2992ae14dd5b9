package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// dailyPnL accumulates realized loss for the current calendar day in the
// bot's operating timezone. Not safe for concurrent use; the Manager's
// lock covers it.
type dailyPnL struct {
	loc  *time.Location
	day  time.Time
	loss decimal.Decimal
}

func newDailyPnL(loc *time.Location) *dailyPnL {
	if loc == nil {
		loc = time.Local
	}
	return &dailyPnL{loc: loc}
}

// roll resets the accumulator when now has crossed a day boundary.
func (d *dailyPnL) roll(now time.Time) {
	local := now.In(d.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, d.loc)
	if !day.Equal(d.day) {
		d.day = day
		d.loss = decimal.Zero
	}
}

// addLoss records a realized loss (a positive magnitude).
func (d *dailyPnL) addLoss(now time.Time, loss decimal.Decimal) decimal.Decimal {
	d.roll(now)
	if loss.IsPositive() {
		d.loss = d.loss.Add(loss)
	}
	return d.loss
}

// realizedLoss returns the accumulator after rolling if stale.
func (d *dailyPnL) realizedLoss(now time.Time) decimal.Decimal {
	d.roll(now)
	return d.loss
}
