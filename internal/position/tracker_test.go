package position

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

var fillSeq uint64

func fill(symbol string, side model.Side, qty, price float64) model.Fill {
	fillSeq++
	return model.Fill{
		FillID:    fillSeq,
		OrderID:   fillSeq,
		Symbol:    symbol,
		Side:      side,
		Quantity:  decimal.NewFromFloat(qty),
		Price:     decimal.NewFromFloat(price),
		Timestamp: time.Unix(int64(fillSeq), 0),
	}
}

func TestApplyBuildsVolumeWeightedEntry(t *testing.T) {
	tr := NewTracker()
	if _, err := tr.Apply(fill("BTCUSDT", model.SideBuy, 1, 100)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	pos, err := tr.Apply(fill("BTCUSDT", model.SideBuy, 1, 110))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !pos.NetQuantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("net: got %s want 2", pos.NetQuantity)
	}
	if !pos.AvgEntryPrice.Equal(decimal.NewFromInt(105)) {
		t.Fatalf("avg entry: got %s want 105", pos.AvgEntryPrice)
	}
}

func TestApplyPartialReductionKeepsEntry(t *testing.T) {
	tr := NewTracker()
	tr.Apply(fill("BTCUSDT", model.SideBuy, 2, 100))
	pos, err := tr.Apply(fill("BTCUSDT", model.SideSell, 1, 120))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !pos.NetQuantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("net: got %s want 1", pos.NetQuantity)
	}
	if !pos.AvgEntryPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("avg entry: got %s want 100", pos.AvgEntryPrice)
	}
}

func TestApplyCloseZeroesEntry(t *testing.T) {
	tr := NewTracker()
	tr.Apply(fill("BTCUSDT", model.SideBuy, 2, 100))
	pos, err := tr.Apply(fill("BTCUSDT", model.SideSell, 2, 120))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !pos.Flat() {
		t.Fatalf("position not flat: %s", pos.NetQuantity)
	}
	if !pos.AvgEntryPrice.IsZero() {
		t.Fatalf("avg entry not zeroed: %s", pos.AvgEntryPrice)
	}
}

func TestApplyFlipResetsEntryToFillPrice(t *testing.T) {
	tr := NewTracker()
	tr.Apply(fill("BTCUSDT", model.SideBuy, 1, 100))
	pos, err := tr.Apply(fill("BTCUSDT", model.SideSell, 3, 90))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !pos.NetQuantity.Equal(decimal.NewFromInt(-2)) {
		t.Fatalf("net: got %s want -2", pos.NetQuantity)
	}
	if !pos.AvgEntryPrice.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("avg entry: got %s want 90", pos.AvgEntryPrice)
	}
}

func TestApplyRejectsDuplicateFillID(t *testing.T) {
	tr := NewTracker()
	f := fill("BTCUSDT", model.SideBuy, 1, 100)
	if _, err := tr.Apply(f); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if _, err := tr.Apply(f); err != ErrDuplicateFill {
		t.Fatalf("second apply: got %v want ErrDuplicateFill", err)
	}
	pos := tr.Get("BTCUSDT")
	if !pos.NetQuantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("net double-counted: %s", pos.NetQuantity)
	}
}

func TestApplyRejectsInvalidFill(t *testing.T) {
	tr := NewTracker()
	bad := fill("BTCUSDT", model.SideBuy, 0, 100)
	if _, err := tr.Apply(bad); err != ErrInvalidFill {
		t.Fatalf("zero qty: got %v want ErrInvalidFill", err)
	}
	bad = fill("BTCUSDT", model.SideUnknown, 1, 100)
	if _, err := tr.Apply(bad); err != ErrInvalidFill {
		t.Fatalf("unknown side: got %v want ErrInvalidFill", err)
	}
}

func TestOpenListsOnlyNonFlatPositions(t *testing.T) {
	tr := NewTracker()
	tr.Apply(fill("BTCUSDT", model.SideBuy, 1, 100))
	tr.Apply(fill("ETHUSDT", model.SideBuy, 1, 10))
	tr.Apply(fill("ETHUSDT", model.SideSell, 1, 11))

	open := tr.Open()
	if len(open) != 1 || open[0].Symbol != "BTCUSDT" {
		t.Fatalf("open positions: %+v", open)
	}
}
