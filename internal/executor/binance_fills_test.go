package executor

import (
	"testing"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

func TestParseOrderUpdateMapsFill(t *testing.T) {
	fill, ok, err := parseOrderUpdate(binanceOrderUpdate{
		Symbol:          "BTCUSDT",
		Side:            "SELL",
		ClientOrderID:   "42",
		Status:          "PARTIALLY_FILLED",
		TradeID:         900113,
		LastFilledQty:   "0.001",
		LastFilledPrice: "43251.23",
		TradeTime:       1748779200123,
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ok {
		t.Fatal("executed quantity should map to a fill")
	}
	if fill.FillID != 900113 || fill.OrderID != 42 {
		t.Fatalf("ids: got fill %d order %d", fill.FillID, fill.OrderID)
	}
	if fill.Side != model.SideSell {
		t.Fatalf("side: got %s", fill.Side)
	}
	if !fill.Price.Equal(decimal.NewFromFloat(43251.23)) || !fill.Quantity.Equal(decimal.NewFromFloat(0.001)) {
		t.Fatalf("fill: got %s x%s", fill.Price, fill.Quantity)
	}
	if fill.Timestamp.UnixMilli() != 1748779200123 {
		t.Fatalf("timestamp: got %d", fill.Timestamp.UnixMilli())
	}
}

func TestParseOrderUpdateSkipsNonExecutions(t *testing.T) {
	// A plain NEW ack carries no trade id and no executed quantity.
	if _, ok, err := parseOrderUpdate(binanceOrderUpdate{
		Symbol:        "BTCUSDT",
		Side:          "BUY",
		ClientOrderID: "42",
		Status:        "NEW",
	}); ok || err != nil {
		t.Fatalf("ack: ok=%v err=%v", ok, err)
	}

	if _, ok, err := parseOrderUpdate(binanceOrderUpdate{
		Symbol:          "BTCUSDT",
		Side:            "BUY",
		ClientOrderID:   "42",
		TradeID:         1,
		LastFilledQty:   "0",
		LastFilledPrice: "100",
	}); ok || err != nil {
		t.Fatalf("zero qty: ok=%v err=%v", ok, err)
	}
}

func TestParseOrderUpdateRejectsForeignClientOrderID(t *testing.T) {
	_, ok, err := parseOrderUpdate(binanceOrderUpdate{
		Symbol:          "BTCUSDT",
		Side:            "BUY",
		ClientOrderID:   "web_abc123",
		TradeID:         5,
		LastFilledQty:   "1",
		LastFilledPrice: "100",
	})
	if ok {
		t.Fatal("fill from an unknown client order id must not be applied")
	}
	if err == nil {
		t.Fatal("expected a parse error for a foreign client order id")
	}
}
