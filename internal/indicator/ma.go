package indicator

import "chart-systemv1/internal/model"

// SMA computes the arithmetic mean of close over a trailing window of
// p.Period bars. Lookback = period−1.
func SMA(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("sma", p.Period); err != nil {
		return emptyScalar(), err
	}
	n := p.Period
	if len(cs) < n {
		return emptyScalar(), nil
	}

	points := make([]model.Point, 0, len(cs)-n+1)
	sum := 0.0
	for i := range cs {
		sum += cs[i].Close
		if i >= n {
			sum -= cs[i-n].Close
		}
		if i >= n-1 {
			points = append(points, model.Point{Time: cs[i].Time, Value: sum / float64(n)})
		}
	}
	return scalar(points), nil
}

// WMA computes the linearly-weighted mean of close over a trailing window:
// the newest bar carries weight n, the bar k steps back weight n−k.
func WMA(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("wma", p.Period); err != nil {
		return emptyScalar(), err
	}
	n := p.Period
	if len(cs) < n {
		return emptyScalar(), nil
	}

	denom := float64(n*(n+1)) / 2
	points := make([]model.Point, 0, len(cs)-n+1)
	for i := n - 1; i < len(cs); i++ {
		sum := 0.0
		for off := 0; off < n; off++ {
			sum += cs[i-off].Close * float64(n-off)
		}
		points = append(points, model.Point{Time: cs[i].Time, Value: sum / denom})
	}
	return scalar(points), nil
}

// EMA computes the recursive exponential moving average seeded with the
// first visible close (not a warm-up SMA — the seeding bias of the
// charting variant is preserved on purpose). Lookback = 0: one point per
// bar in the window.
func EMA(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("ema", p.Period); err != nil {
		return emptyScalar(), err
	}
	if len(cs) == 0 {
		return emptyScalar(), nil
	}

	values := emaValues(cs, p.Period)
	points := make([]model.Point, len(cs))
	for i := range cs {
		points[i] = model.Point{Time: cs[i].Time, Value: values[i]}
	}
	return scalar(points), nil
}

// emaValues returns the raw close-seeded EMA value per bar.
// Shared by EMA, MACD and Keltner.
func emaValues(cs []model.Candle, period int) []float64 {
	mult := 2.0 / float64(period+1)
	out := make([]float64, len(cs))
	ema := cs[0].Close
	out[0] = ema
	for i := 1; i < len(cs); i++ {
		ema = cs[i].Close*mult + ema*(1-mult)
		out[i] = ema
	}
	return out
}
