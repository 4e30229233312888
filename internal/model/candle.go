package model

import "encoding/json"

// Candle represents one OHLCV bar for the configured base interval.
// Time is the bucket-open timestamp in Unix seconds; within a buffer it is
// unique and strictly increasing. The last bar of a buffer may still be
// forming (revised in place by ticks), all earlier bars are final.
type Candle struct {
	Time   int64   `json:"time"` // bucket open, unix seconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// TypicalPrice returns (high + low + close) / 3.
func (c *Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
