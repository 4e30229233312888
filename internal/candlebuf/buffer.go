// Package candlebuf owns the ordered window of OHLCV bars and resolves
// tick vs. bar-close semantics: a candle with the same timestamp as the
// current last bar revises it in place (the bar is still forming), a candle
// with a greater timestamp commits a new bar, and anything older than the
// last bar is stale input that must never rewrite committed history.
package candlebuf

import (
	"fmt"

	"chart-systemv1/internal/model"
)

// DefaultCapacity is the bar window size used when none is configured.
const DefaultCapacity = 200

// ErrOutOfOrder is returned when an ingested candle's timestamp is behind
// the committed history. The buffer is left untouched.
var ErrOutOfOrder = fmt.Errorf("candlebuf: out-of-order candle")

// Buffer is a capacity-bounded ordered window of candles.
// Single-writer: Ingest and Snapshot must be called from one goroutine.
type Buffer struct {
	capacity int
	candles  []model.Candle
	dirty    bool
}

// New creates an empty buffer. capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		candles:  make([]model.Candle, 0, capacity),
	}
}

// Ingest applies one market event to the window.
//
//   - c.Time == last bar's time: the open bar is revised in place.
//   - c.Time  > last bar's time: a new bar is appended; the oldest bar is
//     evicted once capacity is exceeded.
//   - c.Time  < last bar's time: stale or duplicate data — the call fails
//     with ErrOutOfOrder and the window is unchanged.
//
// Every successful ingest marks the buffer dirty for recompute purposes.
func (b *Buffer) Ingest(c model.Candle) error {
	n := len(b.candles)
	if n > 0 {
		last := b.candles[n-1].Time
		switch {
		case c.Time == last:
			b.candles[n-1] = c
			b.dirty = true
			return nil
		case c.Time < last:
			return fmt.Errorf("%w: got ts=%d, last committed ts=%d", ErrOutOfOrder, c.Time, last)
		}
	}

	b.candles = append(b.candles, c)
	if len(b.candles) > b.capacity {
		// Evict oldest. Shift in place so the backing array never grows
		// beyond capacity+1.
		copy(b.candles, b.candles[1:])
		b.candles = b.candles[:b.capacity]
	}
	b.dirty = true
	return nil
}

// Snapshot returns an ordered copy of the window for computation.
// The copy is never mutated by subsequent ingests.
func (b *Buffer) Snapshot() []model.Candle {
	out := make([]model.Candle, len(b.candles))
	copy(out, b.candles)
	return out
}

// Len returns the current number of bars in the window.
func (b *Buffer) Len() int { return len(b.candles) }

// Cap returns the configured window capacity.
func (b *Buffer) Cap() int { return b.capacity }

// Last returns the most recent bar, if any.
func (b *Buffer) Last() (model.Candle, bool) {
	if len(b.candles) == 0 {
		return model.Candle{}, false
	}
	return b.candles[len(b.candles)-1], true
}

// Dirty reports whether the window changed since the last ClearDirty.
func (b *Buffer) Dirty() bool { return b.dirty }

// ClearDirty resets the dirty flag after a recompute has drained it.
func (b *Buffer) ClearDirty() { b.dirty = false }

// Reset drops all bars, e.g. when the symbol or interval changes.
// Anchored indicators (VWAP) restart from the next ingest.
func (b *Buffer) Reset() {
	b.candles = b.candles[:0]
	b.dirty = true
}
