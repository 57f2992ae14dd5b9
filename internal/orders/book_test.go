package orders

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

func pending(id uint64, symbol string) model.Order {
	return model.Order{
		ID:       id,
		Symbol:   symbol,
		Side:     model.SideBuy,
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewFromInt(100),
		Status:   model.OrderStatusPending,
	}
}

func TestLifecyclePendingSubmittedFilled(t *testing.T) {
	b := NewBook()
	if err := b.Create(pending(1, "BTCUSDT")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b.MarkSubmitted(1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	o, err := b.ApplyFill(model.Fill{FillID: 1, OrderID: 1})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if o.Status != model.OrderStatusFilled {
		t.Fatalf("status: got %s want filled", o.Status)
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	b := NewBook()
	b.Create(pending(1, "BTCUSDT"))
	if err := b.Create(pending(1, "BTCUSDT")); !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("got %v want ErrDuplicateOrder", err)
	}
}

func TestFillForUnknownOrderSurfacesError(t *testing.T) {
	b := NewBook()
	if _, err := b.ApplyFill(model.Fill{FillID: 9, OrderID: 9}); !errors.Is(err, ErrUnknownOrder) {
		t.Fatalf("got %v want ErrUnknownOrder", err)
	}
}

func TestTerminalOrdersRefuseFurtherTransitions(t *testing.T) {
	b := NewBook()
	b.Create(pending(1, "BTCUSDT"))
	b.MarkSubmitted(1)
	b.MarkRejected(1)
	if _, err := b.ApplyFill(model.Fill{FillID: 1, OrderID: 1}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("got %v want ErrInvalidTransition", err)
	}
	if _, err := b.MarkCancelled(1); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("got %v want ErrInvalidTransition", err)
	}
}

func TestSubmitRequiresPending(t *testing.T) {
	b := NewBook()
	b.Create(pending(1, "BTCUSDT"))
	b.MarkSubmitted(1)
	if _, err := b.MarkSubmitted(1); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("got %v want ErrInvalidTransition", err)
	}
}

func TestOpenAndReduceOnlyQueries(t *testing.T) {
	b := NewBook()
	b.Create(pending(1, "BTCUSDT"))

	exit := pending(2, "BTCUSDT")
	exit.ReduceOnly = true
	b.Create(exit)

	done := pending(3, "ETHUSDT")
	b.Create(done)
	b.MarkSubmitted(3)
	b.ApplyFill(model.Fill{FillID: 3, OrderID: 3})

	if got := len(b.Open()); got != 2 {
		t.Fatalf("open: got %d want 2", got)
	}
	if !b.HasOpenReduceOnly("BTCUSDT") {
		t.Fatal("expected open reduce-only for BTCUSDT")
	}
	if b.HasOpenReduceOnly("ETHUSDT") {
		t.Fatal("unexpected open reduce-only for ETHUSDT")
	}

	b.ApplyFill(model.Fill{FillID: 2, OrderID: 2})
	if b.HasOpenReduceOnly("BTCUSDT") {
		t.Fatal("reduce-only still open after fill")
	}
}
