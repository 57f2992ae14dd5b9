// Package core drives the trading loop: collect prices, evaluate
// strategies, gate through risk, execute, settle fills.
package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/executor"
	"main/internal/feed"
	"main/internal/history"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/orders"
	"main/internal/position"
	"main/internal/risk"
	"main/internal/strategy"
)

// Journal persists approved orders and settled fills. A nil Journal is a
// no-op: paper runs do not require a database.
type Journal interface {
	RecordOrder(ctx context.Context, order model.Order) error
	RecordFill(ctx context.Context, fill model.Fill, realizedPnL decimal.Decimal) error
}

// Config bounds the engine's per-symbol resources.
type Config struct {
	Symbols      []string
	EvalInterval time.Duration
	HistorySize  int

	// ConnFailBudget is the number of consecutive connectivity-lost
	// submissions tolerated before the engine halts new trading.
	// Positions stay queryable after a halt.
	ConnFailBudget int
}

func (c Config) validate() error {
	if len(c.Symbols) == 0 {
		return errors.New("core: no symbols configured")
	}
	if c.EvalInterval <= 0 {
		return errors.New("core: evaluation interval must be positive")
	}
	if c.HistorySize <= 0 {
		return errors.New("core: history size must be positive")
	}
	return nil
}

// Engine owns the per-symbol price histories and runs one collector and
// one evaluator goroutine per symbol. Risk and position state are shared
// across symbols behind their own locks.
type Engine struct {
	cfg     Config
	feed    feed.PriceFeed
	books   feed.BookSource
	reg     *strategy.Registry
	risk    *risk.Manager
	tracker *position.Tracker
	book    *orders.Book
	exec    executor.Executor
	events  *bus.Queue
	metrics *obs.Metrics
	journal Journal

	symbols map[string]*symbolState

	// consecutive connectivity-lost submissions; crossing the budget
	// flips halted and the engine initiates no further orders.
	connFails atomic.Int64
	halted    atomic.Bool
}

type symbolState struct {
	// histMu guards the history ring only and is never held across
	// evaluation or I/O.
	histMu  sync.Mutex
	history *history.History

	// execMu serializes the gate -> execute -> settle path per symbol so
	// partial cycles cannot interleave and fills apply in order.
	execMu sync.Mutex
}

// New wires an engine. All collaborators except journal are required.
func New(
	cfg Config,
	priceFeed feed.PriceFeed,
	books feed.BookSource,
	reg *strategy.Registry,
	riskMgr *risk.Manager,
	tracker *position.Tracker,
	book *orders.Book,
	exec executor.Executor,
	events *bus.Queue,
	metrics *obs.Metrics,
	journal Journal,
) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ConnFailBudget <= 0 {
		cfg.ConnFailBudget = 5
	}

	symbols := make(map[string]*symbolState, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		if _, ok := symbols[s]; ok {
			return nil, errors.Errorf("core: duplicate symbol %q", s)
		}
		symbols[s] = &symbolState{history: history.New(s, cfg.HistorySize)}
	}

	return &Engine{
		cfg:     cfg,
		feed:    priceFeed,
		books:   books,
		reg:     reg,
		risk:    riskMgr,
		tracker: tracker,
		book:    book,
		exec:    exec,
		events:  events,
		metrics: metrics,
		journal: journal,
		symbols: symbols,
	}, nil
}

// Run subscribes every configured symbol and blocks until ctx is done and
// all per-symbol goroutines have drained. In-flight submissions finish
// settling; no new submission starts after ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for symbol, st := range e.symbols {
		ch, err := e.feed.Subscribe(runCtx, symbol)
		if err != nil {
			// Stop symbols already started before reporting the failure.
			cancel()
			wg.Wait()
			return errors.Wrap(err, "subscribe price feed").With("symbol", symbol)
		}

		wg.Add(2)
		go func(symbol string, st *symbolState, ch <-chan model.Price) {
			defer wg.Done()
			e.collect(runCtx, symbol, st, ch)
		}(symbol, st, ch)
		go func(symbol string, st *symbolState) {
			defer wg.Done()
			e.evaluateLoop(runCtx, symbol, st)
		}(symbol, st)
	}

	logs.Infof("engine running, %d symbol(s), eval every %s", len(e.symbols), e.cfg.EvalInterval)
	wg.Wait()
	return nil
}

// Halted reports whether the engine stopped initiating orders after
// exhausting its connectivity budget.
func (e *Engine) Halted() bool {
	return e.halted.Load()
}

// Positions returns current open positions. Usable after a halt.
func (e *Engine) Positions() []model.Position {
	return e.tracker.Open()
}

// collect is the single writer of the symbol's history. Every accepted
// tick also runs the stop-loss/take-profit check against the open
// position, so corrective orders follow price, not a timer.
func (e *Engine) collect(ctx context.Context, symbol string, st *symbolState, ch <-chan model.Price) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-ch:
			if !ok {
				logs.Errorf("price feed for %s disconnected", symbol)
				return
			}
			st.histMu.Lock()
			accepted := st.history.Append(p)
			st.histMu.Unlock()
			if !accepted {
				continue
			}
			e.checkExit(ctx, symbol, st, p.Value)
		}
	}
}

func (e *Engine) evaluateLoop(ctx context.Context, symbol string, st *symbolState) {
	ticker := time.NewTicker(e.cfg.EvalInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.evaluate(ctx, symbol, st)
		}
	}
}

// evaluate runs one strategy cycle: snapshot the history, run the
// registry, and route any signal through the risk gate. No data is a
// Hold, never an error.
func (e *Engine) evaluate(ctx context.Context, symbol string, st *symbolState) {
	st.histMu.Lock()
	prices := st.history.Snapshot()
	st.histMu.Unlock()
	if len(prices) == 0 {
		return
	}

	var book model.OrderBook
	if e.books != nil {
		book, _ = e.books.Book(symbol)
	}

	started := time.Now()
	sig := e.reg.Evaluate(prices, book)
	e.metrics.ObserveEval(time.Since(started))
	if sig == nil {
		return
	}

	e.publish(model.Event{
		Kind:     model.EventSignalGenerated,
		Symbol:   sig.Symbol,
		Strategy: sig.Strategy,
		Action:   sig.Action,
		Ts:       time.Now(),
	})

	last := prices[len(prices)-1].Value
	e.execute(ctx, st, *sig, last)
}

// checkExit synthesizes a reduce-only close when the open position
// crosses its stop or take band. The position is read and the signal
// acted on under the same execMu hold, so a fill landing from the
// evaluator or the venue cannot invalidate the exit between the read
// and the submission. An open reduce-only order suppresses further
// exits for the symbol so corrections do not stack.
func (e *Engine) checkExit(ctx context.Context, symbol string, st *symbolState, last decimal.Decimal) {
	st.execMu.Lock()
	defer st.execMu.Unlock()

	pos := e.tracker.Get(symbol)
	sig := e.risk.CheckExit(pos, last)
	if sig == nil {
		return
	}
	if e.book.HasOpenReduceOnly(symbol) {
		return
	}

	e.publish(model.Event{
		Kind:     model.EventSignalGenerated,
		Symbol:   sig.Symbol,
		Strategy: sig.Strategy,
		Action:   sig.Action,
		Ts:       time.Now(),
	})
	e.executeLocked(ctx, *sig, last)
}

// execute performs the Gating -> Executing -> Settling leg of a cycle.
// Any failure returns the cycle to idle without touching history or
// position state.
func (e *Engine) execute(ctx context.Context, st *symbolState, sig model.TradingSignal, last decimal.Decimal) {
	st.execMu.Lock()
	defer st.execMu.Unlock()
	e.executeLocked(ctx, sig, last)
}

// executeLocked requires the symbol's execMu.
func (e *Engine) executeLocked(ctx context.Context, sig model.TradingSignal, last decimal.Decimal) {
	if e.halted.Load() {
		return
	}
	// Shutdown requested: drain, do not start a new submission.
	if ctx.Err() != nil {
		return
	}
	// A reduce-only order that no longer shrinks the position would open
	// exposure in the opposite direction. Drop it.
	if sig.ReduceOnly && !e.reduces(sig) {
		logs.Infof("dropping reduce-only %s %s x%s: position no longer supports it",
			sig.Symbol, sig.Action, sig.Quantity)
		return
	}

	order, err := e.risk.ValidateOrder(sig, last)
	if err != nil {
		reason := err.Error()
		if rej, ok := risk.AsRejection(err); ok {
			reason = rej.Reason.String()
		}
		logs.Infof("rejected %s %s x%s: %s (loss today %s)",
			sig.Symbol, sig.Action, sig.Quantity, reason, e.risk.LossToday())
		e.publish(model.Event{
			Kind:     model.EventOrderRejected,
			Symbol:   sig.Symbol,
			Strategy: sig.Strategy,
			Action:   sig.Action,
			Reason:   reason,
			Ts:       time.Now(),
		})
		return
	}

	if err := e.book.Create(order); err != nil {
		e.publish(model.Event{
			Kind:    model.EventInvariantViolation,
			Symbol:  order.Symbol,
			OrderID: order.ID,
			Detail:  err.Error(),
			Ts:      time.Now(),
		})
		return
	}
	e.publish(model.Event{
		Kind:     model.EventOrderApproved,
		Symbol:   order.Symbol,
		Strategy: order.Strategy,
		OrderID:  order.ID,
		Ts:       time.Now(),
	})
	e.recordOrder(order)

	// The submission already started; let it settle even if shutdown
	// lands mid-flight.
	submitCtx := context.WithoutCancel(ctx)
	started := time.Now()
	ack, err := e.exec.Submit(submitCtx, order)
	e.metrics.ObserveSubmit(time.Since(started))
	if err != nil {
		e.onSubmitError(order, err)
		return
	}
	e.connFails.Store(0)

	if _, err := e.book.MarkSubmitted(order.ID); err != nil {
		e.publish(model.Event{
			Kind:    model.EventInvariantViolation,
			Symbol:  order.Symbol,
			OrderID: order.ID,
			Detail:  err.Error(),
			Ts:      time.Now(),
		})
		return
	}
	e.publish(model.Event{
		Kind:    model.EventOrderSubmitted,
		Symbol:  order.Symbol,
		OrderID: order.ID,
		Detail:  ack.VenueOrderID,
		Ts:      time.Now(),
	})

	if ack.Fill != nil {
		if err := e.settle(*ack.Fill); err != nil {
			logs.Errorf("settle fill %d for order %d: %+v", ack.Fill.FillID, order.ID, err)
		}
	}
}

// reduces reports whether the reduce-only signal still strictly shrinks
// the symbol's current position.
func (e *Engine) reduces(sig model.TradingSignal) bool {
	pos := e.tracker.Get(sig.Symbol)
	if pos.Flat() || sig.Quantity.GreaterThan(pos.NetQuantity.Abs()) {
		return false
	}
	if pos.NetQuantity.IsPositive() {
		return sig.Action == model.ActionSell
	}
	return sig.Action == model.ActionBuy
}

// onSubmitError maps an execution failure to a rejected order state so
// risk sees real exposure only, never phantom orders.
func (e *Engine) onSubmitError(order model.Order, err error) {
	reason := err.Error()
	if ee, ok := executor.AsExecutionError(err); ok {
		reason = ee.Kind.String()
		if ee.Kind == executor.KindConnectivityLost {
			if e.connFails.Add(1) >= int64(e.cfg.ConnFailBudget) && !e.halted.Swap(true) {
				logs.Errorf("connectivity budget exhausted, halting new trading")
			}
		} else {
			e.connFails.Store(0)
		}
	}

	if _, markErr := e.book.MarkRejected(order.ID); markErr != nil {
		logs.Errorf("mark order %d rejected: %+v", order.ID, markErr)
	}
	logs.Errorf("submit order %d (%s %s x%s) failed: %s",
		order.ID, order.Symbol, order.Side, order.Quantity, reason)
	e.publish(model.Event{
		Kind:    model.EventExecutionFailed,
		Symbol:  order.Symbol,
		OrderID: order.ID,
		Reason:  reason,
		Ts:      time.Now(),
	})
}

// HandleFill applies a fill reported asynchronously by the venue,
// correlated by order id. A fill for an unknown order is surfaced as an
// invariant violation, never swallowed.
func (e *Engine) HandleFill(fill model.Fill) error {
	order, ok := e.book.Get(fill.OrderID)
	if !ok {
		e.publish(model.Event{
			Kind:    model.EventInvariantViolation,
			Symbol:  fill.Symbol,
			OrderID: fill.OrderID,
			Detail:  "fill for unknown order",
			Ts:      time.Now(),
		})
		return errors.Errorf("fill %d references unknown order %d", fill.FillID, fill.OrderID)
	}

	st, ok := e.symbols[order.Symbol]
	if !ok {
		return errors.Errorf("fill %d references untracked symbol %q", fill.FillID, order.Symbol)
	}
	st.execMu.Lock()
	defer st.execMu.Unlock()
	return e.settle(fill)
}

// settle applies a confirmed fill: order book first, then position,
// then the daily loss accumulator. Duplicate fill ids are dropped so
// replay cannot double-count. Caller holds the symbol's execMu.
func (e *Engine) settle(fill model.Fill) error {
	// Replayed delivery of an already-settled fill is dropped before it
	// can trip the order state machine.
	if e.tracker.Seen(fill.FillID) {
		return nil
	}

	order, err := e.book.ApplyFill(fill)
	if err != nil {
		e.publish(model.Event{
			Kind:    model.EventInvariantViolation,
			Symbol:  fill.Symbol,
			OrderID: fill.OrderID,
			Detail:  err.Error(),
			Ts:      time.Now(),
		})
		return errors.Wrap(err, "apply fill to order book")
	}

	before := e.tracker.Get(fill.Symbol)
	pos, err := e.tracker.Apply(fill)
	if err != nil {
		// Duplicate delivery of an already-settled fill is not an error.
		if err == position.ErrDuplicateFill {
			return nil
		}
		return errors.Wrap(err, "apply fill to position")
	}

	pnl := realized(before, fill)
	lossToday, breached := e.risk.RecordFill(order, pnl)

	logs.Infof("fill %d: %s %s x%s @ %s, position now %s, pnl %s, loss today %s",
		fill.FillID, fill.Symbol, fill.Side, fill.Quantity, fill.Price,
		pos.NetQuantity, pnl, lossToday)
	e.publish(model.Event{
		Kind:    model.EventFillApplied,
		Symbol:  fill.Symbol,
		OrderID: fill.OrderID,
		Detail:  pnl.String(),
		Ts:      time.Now(),
	})
	e.recordFill(fill, pnl)

	if breached {
		// The risk gate blocks further admissions until the daily
		// rollover; no engine-level latch so trading resumes next day.
		logs.Errorf("daily loss limit reached (%s), new orders blocked until rollover", lossToday)
		e.publish(model.Event{
			Kind:   model.EventDailyLossBreached,
			Symbol: fill.Symbol,
			Detail: lossToday.String(),
			Ts:     time.Now(),
		})
	}
	return nil
}

// realized computes the P&L locked in by a fill against the position it
// reduces. Fills that open or extend exposure realize nothing.
func realized(before model.Position, fill model.Fill) decimal.Decimal {
	switch {
	case before.NetQuantity.IsPositive() && fill.Side == model.SideSell:
		closed := decimal.Min(fill.Quantity, before.NetQuantity)
		return closed.Mul(fill.Price.Sub(before.AvgEntryPrice))
	case before.NetQuantity.IsNegative() && fill.Side == model.SideBuy:
		closed := decimal.Min(fill.Quantity, before.NetQuantity.Neg())
		return closed.Mul(before.AvgEntryPrice.Sub(fill.Price))
	default:
		return decimal.Zero
	}
}

func (e *Engine) publish(event model.Event) {
	if e.events == nil {
		return
	}
	switch e.events.TryPublish(event) {
	case nil:
	case bus.ErrQueueClosed:
		e.metrics.IncQueueClosed()
	default:
		e.metrics.IncQueueDrop()
	}
}

func (e *Engine) recordOrder(order model.Order) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordOrder(context.Background(), order); err != nil {
		logs.Errorf("journal order %d: %+v", order.ID, err)
	}
}

func (e *Engine) recordFill(fill model.Fill, pnl decimal.Decimal) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordFill(context.Background(), fill, pnl); err != nil {
		logs.Errorf("journal fill %d: %+v", fill.FillID, err)
	}
}
