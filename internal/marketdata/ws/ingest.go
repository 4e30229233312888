// Package ws provides the exchange WebSocket ingest client. It subscribes
// to the spot kline channel for one symbol and interval and pushes every
// push-update as a model.Candle: updates within the current bucket carry
// the bucket-open timestamp (revising the open bar), a new bucket commits
// a new bar. The candle buffer resolves those two cases.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"chart-systemv1/internal/model"

	"github.com/gorilla/websocket"
)

const pingInterval = 20 * time.Second

// Config holds configuration for the exchange WS ingest.
type Config struct {
	// URL of the exchange WebSocket, e.g. "wss://wbs.mexc.com/ws".
	URL      string
	Symbol   string        // e.g. "BTCUSDT"
	Interval time.Duration // base candle interval

	// ReconnectDelay is the initial delay before reconnection attempts.
	// Defaults to 2 seconds if zero.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff. Defaults to 30s.
	MaxReconnectDelay time.Duration
}

func (c *Config) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// Ingest connects to the exchange and streams kline updates into candleCh.
type Ingest struct {
	cfg Config

	// Optional hooks — called on reconnection / connection state change.
	OnReconnect func()
	OnConnected func(bool)
}

// New creates a new Ingest. Returns an error for unsupported intervals.
func New(cfg Config) (*Ingest, error) {
	cfg.defaults()
	if _, err := klineInterval(cfg.Interval); err != nil {
		return nil, err
	}
	return &Ingest{cfg: cfg}, nil
}

// Start connects to the exchange WebSocket and streams candles into
// candleCh. Blocks until ctx is cancelled. Reconnects automatically.
func (ing *Ingest) Start(ctx context.Context, candleCh chan<- model.Candle) error {
	delay := ing.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := ing.runOnce(ctx, candleCh)
		if err == nil {
			return nil
		}
		if ing.OnConnected != nil {
			ing.OnConnected(false)
		}

		log.Printf("[ws] disconnected (%v), reconnecting in %s...", err, delay)
		if ing.OnReconnect != nil {
			ing.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > ing.cfg.MaxReconnectDelay {
			delay = ing.cfg.MaxReconnectDelay
		}
	}
}

// runOnce makes a single connection attempt and reads until disconnect or
// ctx cancel.
func (ing *Ingest) runOnce(ctx context.Context, candleCh chan<- model.Candle) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ing.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	iv, _ := klineInterval(ing.cfg.Interval)
	channel := "spot@public.kline.v3.api@" + ing.cfg.Symbol + "@" + iv
	sub := map[string]any{"method": "SUBSCRIPTION", "params": []string{channel}}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Printf("[ws] connected, subscribed to %s", channel)
	if ing.OnConnected != nil {
		ing.OnConnected(true)
	}

	// The exchange drops idle connections; keep a ping loop and close the
	// socket on ctx cancellation so ReadMessage unblocks.
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteJSON(map[string]string{"method": "PING"}); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		candle, ok := parseKlinePush(raw)
		if !ok {
			continue // PONG, subscription ack, other channels
		}

		select {
		case candleCh <- candle:
		default:
			log.Println("[ws] candleCh full, dropping update")
		}
	}
}

// klinePush mirrors the exchange's kline push payload.
type klinePush struct {
	Channel string `json:"c"`
	Data    struct {
		K struct {
			T int64     `json:"t"` // bucket open, unix seconds
			O flexFloat `json:"o"`
			H flexFloat `json:"h"`
			L flexFloat `json:"l"`
			C flexFloat `json:"c"`
			V flexFloat `json:"v"`
		} `json:"k"`
	} `json:"d"`
}

func parseKlinePush(raw []byte) (model.Candle, bool) {
	var msg klinePush
	if err := json.Unmarshal(raw, &msg); err != nil {
		return model.Candle{}, false
	}
	k := msg.Data.K
	if msg.Channel == "" || k.T == 0 {
		return model.Candle{}, false
	}
	return model.Candle{
		Time:   k.T,
		Open:   float64(k.O),
		High:   float64(k.H),
		Low:    float64(k.L),
		Close:  float64(k.C),
		Volume: float64(k.V),
	}, true
}

// flexFloat tolerates both JSON numbers and numeric strings — the
// exchange emits either depending on endpoint version.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if len(b) > 1 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// klineInterval maps a base interval to the exchange's channel name.
func klineInterval(d time.Duration) (string, error) {
	switch d {
	case time.Second:
		return "Second1", nil
	case time.Minute:
		return "Min1", nil
	case 5 * time.Minute:
		return "Min5", nil
	case 15 * time.Minute:
		return "Min15", nil
	case 30 * time.Minute:
		return "Min30", nil
	case time.Hour:
		return "Min60", nil
	case 4 * time.Hour:
		return "Hour4", nil
	case 24 * time.Hour:
		return "Day1", nil
	default:
		return "", fmt.Errorf("ws: unsupported interval %v", d)
	}
}
