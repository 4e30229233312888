// Package indicator provides pure windowed and recursive indicator
// calculations over candle slices. Each function maps a candle sequence
// plus parameters to an output series; none of them keep state between
// calls — recursive indicators (EMA, Parabolic SAR, OBV, VWAP) rebuild
// their running state from the start of the visible window every call,
// which keeps them correct under buffer eviction.
//
// A series always has length = len(candles) − lookback. When the window
// is shorter than the lookback the result is an empty series, not an
// error: callers must treat empty as "not yet computable".
package indicator

import (
	"fmt"

	"chart-systemv1/internal/model"
)

// Params carries the tunable inputs of a single indicator.
// Unused fields are zero for indicators that do not need them.
type Params struct {
	Period int     // main window size
	Fast   int     // MACD fast EMA period
	Slow   int     // MACD slow EMA period
	Mult   float64 // band width multiplier (Bollinger k, Keltner mult)
}

// ComputeFunc is the uniform signature every indicator implements.
// The returned series has Kind and Points/Bands set but no ID — the
// engine stamps the identifier from its registry entry.
type ComputeFunc func(cs []model.Candle, p Params) (model.Series, error)

func scalar(points []model.Point) model.Series {
	return model.Series{Kind: model.KindScalar, Points: points}
}

func band(points []model.BandPoint) model.Series {
	return model.Series{Kind: model.KindBand, Bands: points}
}

// emptyScalar is the "not yet computable" result for scalar indicators.
func emptyScalar() model.Series { return model.Series{Kind: model.KindScalar} }

// emptyBand is the "not yet computable" result for band indicators.
func emptyBand() model.Series { return model.Series{Kind: model.KindBand} }

func checkPeriod(name string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%s: period must be positive, got %d", name, n)
	}
	return nil
}

// trueRange returns max(h−l, |h−prevClose|, |l−prevClose|).
func trueRange(cur, prev *model.Candle) float64 {
	tr := cur.High - cur.Low
	if d := abs(cur.High - prev.Close); d > tr {
		tr = d
	}
	if d := abs(cur.Low - prev.Close); d > tr {
		tr = d
	}
	return tr
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
