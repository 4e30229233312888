// Package redis publishes engine output to Redis so dashboards and sibling
// services can read the latest chart state without talking to the engine.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"chart-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: roughly a trading day of 1m bars + buffer.
	streamMaxLen     = 2000
	defaultLatestTTL = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	Symbol   string // e.g. "BTCUSDT"
	Interval string // e.g. "1m" — used in key names
}

// Writer writes committed candles and snapshot envelopes to Redis.
type Writer struct {
	client *goredis.Client

	candleLatestKey string
	candleStreamKey string
	candlePubSubCh  string
	snapshotKey     string
	snapshotPubSub  string
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	suffix := cfg.Interval + ":" + cfg.Symbol
	return &Writer{
		client:          client,
		candleLatestKey: "candle:" + suffix + ":latest",
		candleStreamKey: "candle:" + suffix,
		candlePubSubCh:  "pub:candle:" + suffix,
		snapshotKey:     "chart:" + suffix + ":snapshot",
		snapshotPubSub:  "pub:chart:" + suffix,
	}, nil
}

// Run reads committed candles from candleCh and writes them to Redis.
// Blocks until ctx is cancelled or candleCh is closed.
func (w *Writer) Run(ctx context.Context, candleCh <-chan model.Candle) {
	for {
		select {
		case <-ctx.Done():
			return
		case candle, ok := <-candleCh:
			if !ok {
				return
			}
			w.writeCandle(ctx, candle)
		}
	}
}

// writeCandle performs pipelined writes for a committed candle.
func (w *Writer) writeCandle(ctx context.Context, candle model.Candle) {
	jsonData := string(candle.JSON())

	pipe := w.client.Pipeline()
	pipe.Set(ctx, w.candleLatestKey, jsonData, defaultLatestTTL)
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: w.candleStreamKey,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Publish(ctx, w.candlePubSubCh, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] candle pipeline error at ts=%d: %v", candle.Time, err)
	}
}

// PublishSnapshot stores and publishes the latest snapshot envelope.
// Failures are logged, not fatal: Redis is a mirror, not the source of truth.
func (w *Writer) PublishSnapshot(ctx context.Context, envelope []byte) {
	jsonData := string(envelope)

	pipe := w.client.Pipeline()
	pipe.Set(ctx, w.snapshotKey, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, w.snapshotPubSub, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] snapshot pipeline error: %v", err)
	}
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
