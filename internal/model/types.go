package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side describes order direction.
type Side uint8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the closing side for a position opened on s.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideUnknown
	}
}

// Action is a strategy recommendation.
type Action uint8

const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "hold"
	}
}

// Side maps a non-hold action to an order side.
func (a Action) Side() Side {
	switch a {
	case ActionBuy:
		return SideBuy
	case ActionSell:
		return SideSell
	default:
		return SideUnknown
	}
}

// Price is one observed trade price for a symbol. Immutable once recorded.
type Price struct {
	Symbol    string
	Value     decimal.Decimal
	Volume    decimal.Decimal
	Timestamp time.Time
}

// OrderBook is a best bid/ask snapshot for a symbol. Replaced wholesale on
// each update, never merged.
type OrderBook struct {
	Symbol    string
	BidPrice  decimal.Decimal
	BidQty    decimal.Decimal
	AskPrice  decimal.Decimal
	AskQty    decimal.Decimal
	Timestamp time.Time
}

// IsZero reports whether the snapshot carries no quotes.
func (b OrderBook) IsZero() bool {
	return b.BidPrice.IsZero() && b.AskPrice.IsZero()
}

// TradingSignal is a strategy's recommended action. Consumed once by the
// risk gate, never persisted.
type TradingSignal struct {
	Symbol      string
	Action      Action
	Confidence  float64
	TargetPrice decimal.Decimal
	Quantity    decimal.Decimal
	Strategy    string

	// ReduceOnly marks synthesized stop-loss/take-profit exits. Such
	// signals strictly reduce exposure and skip the position-limit check.
	ReduceOnly bool
}

// OrderStatus tracks the lifecycle of an order.
type OrderStatus uint8

const (
	OrderStatusUnknown OrderStatus = iota
	OrderStatusPending
	OrderStatusSubmitted
	OrderStatusFilled
	OrderStatusRejected
	OrderStatusCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "pending"
	case OrderStatusSubmitted:
		return "submitted"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusRejected:
		return "rejected"
	case OrderStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are allowed.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusRejected, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Order is created Pending by risk approval and advanced by the executor
// and venue reports.
type Order struct {
	ID         uint64
	Symbol     string
	Side       Side
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	ReduceOnly bool
	Strategy   string
	Status     OrderStatus
	CreatedAt  time.Time
}

// Fill is a venue confirmation that an order executed.
type Fill struct {
	FillID    uint64
	OrderID   uint64
	Symbol    string
	Side      Side
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
}

// Position is per-symbol net exposure. AvgEntryPrice is meaningless when
// NetQuantity is zero.
type Position struct {
	Symbol        string
	NetQuantity   decimal.Decimal
	AvgEntryPrice decimal.Decimal
}

// Flat reports whether there is no open exposure.
func (p Position) Flat() bool {
	return p.NetQuantity.IsZero()
}
