// Package bus broadcasts committed candles from the engine loop to the
// persistence consumers (Redis mirror, SQLite journal). A slow consumer
// loses candles instead of stalling the loop: the journal tolerates gaps
// (INSERT OR REPLACE) and the mirror only needs the latest state.
package bus

import (
	"context"
	"log"

	"chart-systemv1/internal/model"
)

type subscriber struct {
	name string
	ch   chan model.Candle
}

// FanOut broadcasts candles from one input channel to named subscribers.
type FanOut struct {
	subs    []subscriber
	bufSize int

	// OnDrop is called with the subscriber's name when a candle is
	// dropped because that consumer's channel is full.
	OnDrop func(name string)
}

// New creates a FanOut with the given buffer size for subscriber channels.
func New(bufSize int) *FanOut {
	return &FanOut{bufSize: bufSize}
}

// Subscribe registers a named consumer and returns its channel.
// All subscriptions must happen before Run starts consuming.
func (f *FanOut) Subscribe(name string) <-chan model.Candle {
	ch := make(chan model.Candle, f.bufSize)
	f.subs = append(f.subs, subscriber{name: name, ch: ch})
	return ch
}

// Run reads from the input channel and fans out to every subscriber.
// Blocks until ctx is cancelled or input is closed; subscriber channels
// are closed on the way out so consumers can flush and stop.
func (f *FanOut) Run(ctx context.Context, input <-chan model.Candle) {
	defer func() {
		for _, s := range f.subs {
			close(s.ch)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case candle, ok := <-input:
			if !ok {
				return
			}
			for _, s := range f.subs {
				select {
				case s.ch <- candle:
				default:
					if f.OnDrop != nil {
						f.OnDrop(s.name)
					} else {
						log.Printf("[bus] %s channel full, dropping candle ts=%d", s.name, candle.Time)
					}
				}
			}
		}
	}
}
