// Package history holds the bounded per-symbol price series consumed by
// strategies. Each History has exactly one writer (the symbol's collector);
// readers take a snapshot copy so strategy evaluation never holds the lock.
package history

import "main/internal/model"

// History is a fixed-capacity ring of prices, oldest evicted on overflow.
// The sequence is timestamp-monotonic: out-of-order ticks are dropped.
type History struct {
	symbol string
	buf    []model.Price
	head   int
	size   int
}

// New allocates a history bounded to capacity entries.
func New(symbol string, capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{
		symbol: symbol,
		buf:    make([]model.Price, capacity),
	}
}

// Symbol returns the symbol this history tracks.
func (h *History) Symbol() string {
	return h.symbol
}

// Append records a price, evicting the oldest entry when full. It returns
// false when the tick is older than the latest recorded one.
func (h *History) Append(p model.Price) bool {
	if last, ok := h.Last(); ok && p.Timestamp.Before(last.Timestamp) {
		return false
	}
	idx := (h.head + h.size) % len(h.buf)
	h.buf[idx] = p
	if h.size < len(h.buf) {
		h.size++
	} else {
		h.head = (h.head + 1) % len(h.buf)
	}
	return true
}

// Len returns the number of recorded prices.
func (h *History) Len() int {
	return h.size
}

// Cap returns the configured bound.
func (h *History) Cap() int {
	return len(h.buf)
}

// At returns the i-th price, oldest first.
func (h *History) At(i int) model.Price {
	return h.buf[(h.head+i)%len(h.buf)]
}

// Last returns the most recent price.
func (h *History) Last() (model.Price, bool) {
	if h.size == 0 {
		return model.Price{}, false
	}
	return h.At(h.size - 1), true
}

// Snapshot copies the series oldest-first so callers can evaluate without
// blocking the writer.
func (h *History) Snapshot() []model.Price {
	out := make([]model.Price, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.At(i)
	}
	return out
}
