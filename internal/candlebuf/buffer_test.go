package candlebuf

import (
	"errors"
	"testing"

	"chart-systemv1/internal/model"
)

func bar(ts int64, close float64) model.Candle {
	return model.Candle{
		Time:   ts,
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 100,
	}
}

func TestIngest_AppendAndRevise(t *testing.T) {
	b := New(10)

	if err := b.Ingest(bar(60, 100)); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 bar, got %d", b.Len())
	}

	// Same timestamp — the open bar is revised in place, not appended.
	if err := b.Ingest(bar(60, 101)); err != nil {
		t.Fatalf("revision ingest: %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("revision must not grow the buffer, got len=%d", b.Len())
	}
	last, _ := b.Last()
	if last.Close != 101 {
		t.Errorf("expected revised close=101, got %v", last.Close)
	}

	// Greater timestamp — a new bar is appended.
	if err := b.Ingest(bar(120, 102)); err != nil {
		t.Fatalf("append ingest: %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("expected 2 bars, got %d", b.Len())
	}
}

func TestIngest_OutOfOrder(t *testing.T) {
	b := New(10)
	b.Ingest(bar(60, 100))
	b.Ingest(bar(120, 101))

	err := b.Ingest(bar(60, 999))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}

	// The window must be untouched.
	snap := b.Snapshot()
	if len(snap) != 2 || snap[0].Close != 100 || snap[1].Close != 101 {
		t.Errorf("window changed after rejected ingest: %+v", snap)
	}
}

func TestIngest_Eviction(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		if err := b.Ingest(bar(int64(60*(i+1)), float64(100+i))); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	if b.Len() != 3 {
		t.Fatalf("expected capacity-bound len=3, got %d", b.Len())
	}
	snap := b.Snapshot()
	if snap[0].Time != 180 || snap[2].Time != 300 {
		t.Errorf("expected oldest evicted, window [180..300], got [%d..%d]",
			snap[0].Time, snap[2].Time)
	}
	// Still strictly increasing.
	for i := 1; i < len(snap); i++ {
		if snap[i].Time <= snap[i-1].Time {
			t.Fatalf("timestamps not strictly increasing: %d then %d", snap[i-1].Time, snap[i].Time)
		}
	}
}

func TestSnapshot_Isolated(t *testing.T) {
	b := New(10)
	b.Ingest(bar(60, 100))
	snap := b.Snapshot()

	b.Ingest(bar(60, 999)) // revise after snapshot
	if snap[0].Close != 100 {
		t.Errorf("snapshot mutated by later ingest: close=%v", snap[0].Close)
	}
}

func TestDirtyTracking(t *testing.T) {
	b := New(10)
	if b.Dirty() {
		t.Fatal("fresh buffer must not be dirty")
	}
	b.Ingest(bar(60, 100))
	if !b.Dirty() {
		t.Fatal("ingest must mark the buffer dirty")
	}
	b.ClearDirty()
	if b.Dirty() {
		t.Fatal("ClearDirty must reset the flag")
	}

	// A rejected ingest must not dirty the buffer.
	b.Ingest(bar(120, 101))
	b.ClearDirty()
	if err := b.Ingest(bar(60, 1)); err == nil {
		t.Fatal("expected out-of-order error")
	}
	if b.Dirty() {
		t.Error("rejected ingest must not mark the buffer dirty")
	}
}

func TestReset(t *testing.T) {
	b := New(10)
	b.Ingest(bar(60, 100))
	b.Ingest(bar(120, 101))
	b.Reset()

	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after reset, got len=%d", b.Len())
	}
	// After reset, older timestamps are acceptable again.
	if err := b.Ingest(bar(30, 50)); err != nil {
		t.Errorf("ingest after reset: %v", err)
	}
}

func TestDefaultCapacity(t *testing.T) {
	b := New(0)
	if b.Cap() != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, b.Cap())
	}
}
