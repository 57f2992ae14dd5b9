package history

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

func tick(symbol string, value float64, at int64) model.Price {
	return model.Price{
		Symbol:    symbol,
		Value:     decimal.NewFromFloat(value),
		Timestamp: time.Unix(at, 0),
	}
}

func TestAppendEvictsOldestAtCapacity(t *testing.T) {
	h := New("BTCUSDT", 3)
	for i := 0; i < 5; i++ {
		if !h.Append(tick("BTCUSDT", 100+float64(i), int64(i))) {
			t.Fatalf("append %d dropped", i)
		}
	}
	if h.Len() != 3 {
		t.Fatalf("len: got %d want 3", h.Len())
	}
	snap := h.Snapshot()
	want := []float64{102, 103, 104}
	for i, w := range want {
		if !snap[i].Value.Equal(decimal.NewFromFloat(w)) {
			t.Fatalf("snapshot[%d]: got %s want %v", i, snap[i].Value, w)
		}
	}
}

func TestAppendDropsOutOfOrderTick(t *testing.T) {
	h := New("BTCUSDT", 4)
	h.Append(tick("BTCUSDT", 100, 10))
	if h.Append(tick("BTCUSDT", 99, 5)) {
		t.Fatal("out-of-order tick accepted")
	}
	if h.Len() != 1 {
		t.Fatalf("len: got %d want 1", h.Len())
	}
}

func TestAppendAcceptsEqualTimestamp(t *testing.T) {
	h := New("BTCUSDT", 4)
	h.Append(tick("BTCUSDT", 100, 10))
	if !h.Append(tick("BTCUSDT", 101, 10)) {
		t.Fatal("equal-timestamp tick dropped")
	}
	last, ok := h.Last()
	if !ok || !last.Value.Equal(decimal.NewFromFloat(101)) {
		t.Fatalf("last: got %s want 101", last.Value)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	h := New("ETHUSDT", 2)
	h.Append(tick("ETHUSDT", 100, 1))
	snap := h.Snapshot()
	h.Append(tick("ETHUSDT", 200, 2))
	h.Append(tick("ETHUSDT", 300, 3))
	if len(snap) != 1 || !snap[0].Value.Equal(decimal.NewFromFloat(100)) {
		t.Fatalf("snapshot mutated: %+v", snap)
	}
}
