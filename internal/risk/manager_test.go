package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
)

func testParams() Params {
	return Params{
		MaxPositionSize: decimal.NewFromInt(1000),
		MaxLossPerTrade: decimal.NewFromInt(100),
		MaxDailyLoss:    decimal.NewFromInt(500),
		StopLossPct:     decimal.NewFromFloat(0.02),
		TakeProfitPct:   decimal.NewFromFloat(0.04),
		PriceBand:       decimal.NewFromFloat(0.05),
	}
}

type stubPositions map[string]model.Position

func (s stubPositions) Get(symbol string) model.Position {
	pos := s[symbol]
	pos.Symbol = symbol
	return pos
}

func signal(symbol string, action model.Action, qty, price float64) model.TradingSignal {
	return model.TradingSignal{
		Symbol:      symbol,
		Action:      action,
		Confidence:  0.5,
		TargetPrice: decimal.NewFromFloat(price),
		Quantity:    decimal.NewFromFloat(qty),
		Strategy:    "momentum",
	}
}

func TestValidateOrderApprovesAndAssignsIDs(t *testing.T) {
	m, err := NewManager(testParams(), stubPositions{})
	require.NoError(t, err)

	first, err := m.ValidateOrder(signal("BTCUSDT", model.ActionBuy, 0.001, 43251.23), decimal.NewFromFloat(43251.23))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, first.Status)
	assert.Equal(t, model.SideBuy, first.Side)

	second, err := m.ValidateOrder(signal("BTCUSDT", model.ActionSell, 0.001, 43251.23), decimal.NewFromFloat(43251.23))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestValidateOrderRejectsPositionLimit(t *testing.T) {
	positions := stubPositions{"BTCUSDT": {NetQuantity: decimal.NewFromInt(999), AvgEntryPrice: decimal.NewFromInt(10)}}
	m, err := NewManager(testParams(), positions)
	require.NoError(t, err)

	_, err = m.ValidateOrder(signal("BTCUSDT", model.ActionBuy, 2, 10), decimal.NewFromInt(10))
	rej, ok := AsRejection(err)
	require.True(t, ok, "want rejection, got %v", err)
	assert.Equal(t, RejectPositionLimit, rej.Reason)

	// Shorts count against the same absolute bound.
	positions["BTCUSDT"] = model.Position{NetQuantity: decimal.NewFromInt(-999)}
	_, err = m.ValidateOrder(signal("BTCUSDT", model.ActionSell, 2, 10), decimal.NewFromInt(10))
	rej, ok = AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, RejectPositionLimit, rej.Reason)
}

func TestValidateOrderReduceOnlySkipsPositionLimit(t *testing.T) {
	positions := stubPositions{"BTCUSDT": {NetQuantity: decimal.NewFromInt(1000), AvgEntryPrice: decimal.NewFromInt(10)}}
	m, err := NewManager(testParams(), positions)
	require.NoError(t, err)

	sig := signal("BTCUSDT", model.ActionSell, 1000, 0.01)
	sig.ReduceOnly = true
	_, err = m.ValidateOrder(sig, decimal.NewFromFloat(0.01))
	require.NoError(t, err)
}

func TestValidateOrderRejectsPerTradeLoss(t *testing.T) {
	m, err := NewManager(testParams(), stubPositions{})
	require.NoError(t, err)

	// 10 * 1000 * 0.02 = 200 > 100.
	_, err = m.ValidateOrder(signal("BTCUSDT", model.ActionBuy, 10, 1000), decimal.NewFromInt(1000))
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, RejectPerTradeLoss, rej.Reason)
}

func TestValidateOrderChecksShortCircuitInOrder(t *testing.T) {
	positions := stubPositions{"BTCUSDT": {NetQuantity: decimal.NewFromInt(1000)}}
	m, err := NewManager(testParams(), positions)
	require.NoError(t, err)

	// Would fail both position-limit and per-trade-loss; position wins.
	_, err = m.ValidateOrder(signal("BTCUSDT", model.ActionBuy, 10, 1000), decimal.NewFromInt(1000))
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, RejectPositionLimit, rej.Reason)
}

func TestValidateOrderRejectsPriceSanity(t *testing.T) {
	m, err := NewManager(testParams(), stubPositions{})
	require.NoError(t, err)

	// Target 10% away from market with a 5% band.
	_, err = m.ValidateOrder(signal("BTCUSDT", model.ActionBuy, 0.001, 110), decimal.NewFromInt(100))
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, RejectPriceSanity, rej.Reason)

	// No market price at all fails closed.
	_, err = m.ValidateOrder(signal("BTCUSDT", model.ActionBuy, 0.001, 110), decimal.Zero)
	rej, ok = AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, RejectPriceSanity, rej.Reason)
}

func TestDailyLossLimitBlocksAndRollsOver(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m, err := NewManager(testParams(), stubPositions{}, WithClock(clock), WithTimezone(time.UTC))
	require.NoError(t, err)

	// Realize a 480 loss; worst case of the next trade is 0.5*1000*0.02=10,
	// 480+10 <= 500 still admits.
	loss, breached := m.RecordFill(model.Order{}, decimal.NewFromInt(-480))
	assert.False(t, breached)
	assert.True(t, loss.Equal(decimal.NewFromInt(480)))

	_, err = m.ValidateOrder(signal("BTCUSDT", model.ActionBuy, 0.5, 1000), decimal.NewFromInt(1000))
	require.NoError(t, err)

	// One more loss pushes the accumulator to the cap: next trade rejected.
	_, breached = m.RecordFill(model.Order{}, decimal.NewFromInt(-20))
	assert.True(t, breached)

	_, err = m.ValidateOrder(signal("BTCUSDT", model.ActionBuy, 0.5, 1000), decimal.NewFromInt(1000))
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, RejectDailyLoss, rej.Reason)

	// Day rollover resets the accumulator and re-admits.
	now = now.Add(24 * time.Hour)
	assert.True(t, m.LossToday().IsZero())
	_, err = m.ValidateOrder(signal("BTCUSDT", model.ActionBuy, 0.5, 1000), decimal.NewFromInt(1000))
	require.NoError(t, err)
}

func TestRecordFillIgnoresProfits(t *testing.T) {
	m, err := NewManager(testParams(), stubPositions{}, WithTimezone(time.UTC))
	require.NoError(t, err)

	loss, breached := m.RecordFill(model.Order{}, decimal.NewFromInt(300))
	assert.False(t, breached)
	assert.True(t, loss.IsZero())
}

func TestCheckExitStopLossOnLong(t *testing.T) {
	// End-to-end scenario: a long entered at 43251.23 marked at 42386.2
	// (a 2% drop) must synthesize a reduce-only sell.
	m, err := NewManager(testParams(), stubPositions{})
	require.NoError(t, err)

	pos := model.Position{
		Symbol:        "BTCUSDT",
		NetQuantity:   decimal.NewFromFloat(0.001),
		AvgEntryPrice: decimal.NewFromFloat(43251.23),
	}
	sig := m.CheckExit(pos, decimal.NewFromFloat(42386.2))
	require.NotNil(t, sig)
	assert.Equal(t, model.ActionSell, sig.Action)
	assert.True(t, sig.ReduceOnly)
	assert.Equal(t, "risk.stop_loss", sig.Strategy)
	assert.True(t, sig.Quantity.Equal(decimal.NewFromFloat(0.001)))
}

func TestCheckExitTakeProfitOnShort(t *testing.T) {
	m, err := NewManager(testParams(), stubPositions{})
	require.NoError(t, err)

	pos := model.Position{
		Symbol:        "ETHUSDT",
		NetQuantity:   decimal.NewFromInt(-1),
		AvgEntryPrice: decimal.NewFromInt(100),
	}
	// Short gains as price falls: -4% hits take-profit.
	sig := m.CheckExit(pos, decimal.NewFromInt(96))
	require.NotNil(t, sig)
	assert.Equal(t, model.ActionBuy, sig.Action)
	assert.Equal(t, "risk.take_profit", sig.Strategy)
}

func TestCheckExitInsideBandsHolds(t *testing.T) {
	m, err := NewManager(testParams(), stubPositions{})
	require.NoError(t, err)

	pos := model.Position{
		Symbol:        "BTCUSDT",
		NetQuantity:   decimal.NewFromInt(1),
		AvgEntryPrice: decimal.NewFromInt(100),
	}
	assert.Nil(t, m.CheckExit(pos, decimal.NewFromInt(101)))
	assert.Nil(t, m.CheckExit(pos, decimal.NewFromFloat(99.5)))
	assert.Nil(t, m.CheckExit(model.Position{Symbol: "BTCUSDT"}, decimal.NewFromInt(50)))
}

func TestNewManagerRejectsInvalidParams(t *testing.T) {
	bad := testParams()
	bad.MaxDailyLoss = decimal.Zero
	_, err := NewManager(bad, stubPositions{})
	assert.Error(t, err)

	bad = testParams()
	bad.StopLossPct = decimal.NewFromInt(-1)
	_, err = NewManager(bad, stubPositions{})
	assert.Error(t, err)
}
