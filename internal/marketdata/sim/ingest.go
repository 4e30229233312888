// Package sim provides an in-process simulated candle feed. It emits the
// same stream shape as the exchange ingest — repeated revisions of the
// open bar followed by a committed close at the interval boundary — so the
// engine can run offline with no exchange connectivity.
//
// Same external interface as internal/marketdata/ws.Ingest.
package sim

import (
	"context"
	"log"
	"math/rand"
	"time"

	"chart-systemv1/internal/model"
)

// Config holds configuration for the simulated feed.
type Config struct {
	Interval time.Duration // candle interval; defaults to 1 minute
	TickRate time.Duration // revision cadence; defaults to 500ms

	StartPrice float64 // defaults to 50000
	Seed       int64   // 0 = time-seeded
}

func (c *Config) defaults() {
	if c.Interval == 0 {
		c.Interval = time.Minute
	}
	if c.TickRate == 0 {
		c.TickRate = 500 * time.Millisecond
	}
	if c.StartPrice == 0 {
		c.StartPrice = 50000
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

// Ingest generates random-walk candles and pushes them into candleCh.
type Ingest struct {
	cfg Config
	rng *rand.Rand

	price float64
	bar   model.Candle
}

// New creates a simulated feed.
func New(cfg Config) *Ingest {
	cfg.defaults()
	return &Ingest{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		price: cfg.StartPrice,
	}
}

// Start runs the generator until ctx is cancelled. Each tick revises the
// open bar in place; when the wall clock crosses an interval boundary the
// next revision starts a fresh bar, which the buffer appends.
func (ing *Ingest) Start(ctx context.Context, candleCh chan<- model.Candle) error {
	log.Printf("[sim] generator started (interval=%s tick=%s start=%.2f)",
		ing.cfg.Interval, ing.cfg.TickRate, ing.price)

	ticker := time.NewTicker(ing.cfg.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			candle := ing.step(now)
			select {
			case candleCh <- candle:
			default:
				log.Println("[sim] candleCh full, dropping update")
			}
		}
	}
}

// step advances the random walk and returns the current open bar.
func (ing *Ingest) step(now time.Time) model.Candle {
	ing.price = walkPrice(ing.rng, ing.price)
	bucket := now.Truncate(ing.cfg.Interval).Unix()

	if ing.bar.Time != bucket {
		// New interval bucket: open a fresh bar.
		ing.bar = model.Candle{
			Time:  bucket,
			Open:  ing.price,
			High:  ing.price,
			Low:   ing.price,
			Close: ing.price,
		}
	} else {
		if ing.price > ing.bar.High {
			ing.bar.High = ing.price
		}
		if ing.price < ing.bar.Low {
			ing.bar.Low = ing.price
		}
		ing.bar.Close = ing.price
	}
	ing.bar.Volume += float64(ing.rng.Intn(100) + 1)

	return ing.bar
}

// walkPrice applies a tiny random walk (±0.1%) to simulate price movement.
func walkPrice(rng *rand.Rand, price float64) float64 {
	pct := (rng.Float64()*0.2 - 0.1) / 100.0
	next := price * (1 + pct)
	if next < 1 {
		next = 1
	}
	return next
}
