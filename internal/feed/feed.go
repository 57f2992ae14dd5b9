// Package feed defines the market-data boundary: restartable per-symbol
// price streams and latest-wins orderbook snapshots with a staleness
// policy. Disconnects are signalled by closing the stream, never by
// silence.
package feed

import (
	"context"
	"sync"
	"time"

	"main/internal/model"
)

// PriceFeed produces an unbounded stream of trade prices for a symbol.
// The channel is closed on disconnect; callers decide whether to restart.
type PriceFeed interface {
	Subscribe(ctx context.Context, symbol string) (<-chan model.Price, error)
}

// BookSource serves the latest orderbook snapshot for a symbol.
type BookSource interface {
	Book(symbol string) (model.OrderBook, bool)
}

// Books stores per-symbol best bid/ask snapshots, replaced wholesale on
// every update. Snapshots older than maxAge read back as unavailable, so
// strategies see "no orderbook" instead of a stale one.
type Books struct {
	mu     sync.RWMutex
	maxAge time.Duration
	books  map[string]model.OrderBook
	now    func() time.Time
}

// NewBooks creates a snapshot store. maxAge <= 0 disables the staleness
// check.
func NewBooks(maxAge time.Duration) *Books {
	return &Books{
		maxAge: maxAge,
		books:  make(map[string]model.OrderBook),
		now:    time.Now,
	}
}

// Put replaces the symbol's snapshot.
func (b *Books) Put(book model.OrderBook) {
	b.mu.Lock()
	b.books[book.Symbol] = book
	b.mu.Unlock()
}

// Book returns the latest snapshot, or false when none exists or the
// stored one is stale.
func (b *Books) Book(symbol string) (model.OrderBook, bool) {
	b.mu.RLock()
	book, ok := b.books[symbol]
	b.mu.RUnlock()
	if !ok {
		return model.OrderBook{}, false
	}
	if b.maxAge > 0 && b.now().Sub(book.Timestamp) > b.maxAge {
		return model.OrderBook{}, false
	}
	return book, true
}
