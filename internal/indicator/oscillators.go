package indicator

import "chart-systemv1/internal/model"

// RSI computes the relative strength index over a simple rolling window of
// p.Period bar-to-bar changes (not Wilder's exponential smoothing — the
// charting variant is reproduced bar for bar). A window with zero average
// loss clamps to 100; a fully flat window clamps to the neutral 50.
func RSI(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("rsi", p.Period); err != nil {
		return emptyScalar(), err
	}
	n := p.Period
	if len(cs) < n+1 {
		return emptyScalar(), nil
	}

	points := make([]model.Point, 0, len(cs)-n)
	for i := n; i < len(cs); i++ {
		gains, losses := 0.0, 0.0
		for j := i - n + 1; j <= i; j++ {
			d := cs[j].Close - cs[j-1].Close
			if d > 0 {
				gains += d
			} else {
				losses -= d
			}
		}
		avgGain := gains / float64(n)
		avgLoss := losses / float64(n)

		var rsi float64
		switch {
		case avgLoss == 0 && avgGain == 0:
			rsi = 50
		case avgLoss == 0:
			rsi = 100
		default:
			rs := avgGain / avgLoss
			rsi = 100 - 100/(1+rs)
		}
		points = append(points, model.Point{Time: cs[i].Time, Value: rsi})
	}
	return scalar(points), nil
}

// StochasticK computes the %K line: close position within the window's
// high/low range, scaled to 0..100. No %D smoothing layer is produced.
// A degenerate range (highest high == lowest low) clamps to 50.
func StochasticK(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("stochastic", p.Period); err != nil {
		return emptyScalar(), err
	}
	n := p.Period
	if len(cs) < n {
		return emptyScalar(), nil
	}

	points := make([]model.Point, 0, len(cs)-n+1)
	for i := n - 1; i < len(cs); i++ {
		hh, ll := windowRange(cs, i, n)
		v := 50.0
		if hh != ll {
			v = (cs[i].Close - ll) / (hh - ll) * 100
		}
		points = append(points, model.Point{Time: cs[i].Time, Value: v})
	}
	return scalar(points), nil
}

// WilliamsR computes %R over the window, scaled to −100..0.
// A degenerate range clamps to the midpoint −50.
func WilliamsR(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("williams_r", p.Period); err != nil {
		return emptyScalar(), err
	}
	n := p.Period
	if len(cs) < n {
		return emptyScalar(), nil
	}

	points := make([]model.Point, 0, len(cs)-n+1)
	for i := n - 1; i < len(cs); i++ {
		hh, ll := windowRange(cs, i, n)
		v := -50.0
		if hh != ll {
			v = (hh - cs[i].Close) / (hh - ll) * -100
		}
		points = append(points, model.Point{Time: cs[i].Time, Value: v})
	}
	return scalar(points), nil
}

// CCI computes the commodity channel index from typical price, its SMA and
// its mean absolute deviation over the window. A zero deviation clamps to 0.
func CCI(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("cci", p.Period); err != nil {
		return emptyScalar(), err
	}
	n := p.Period
	if len(cs) < n {
		return emptyScalar(), nil
	}

	tp := make([]float64, len(cs))
	for i := range cs {
		tp[i] = cs[i].TypicalPrice()
	}

	points := make([]model.Point, 0, len(cs)-n+1)
	for i := n - 1; i < len(cs); i++ {
		mean := 0.0
		for j := i - n + 1; j <= i; j++ {
			mean += tp[j]
		}
		mean /= float64(n)

		mad := 0.0
		for j := i - n + 1; j <= i; j++ {
			mad += abs(tp[j] - mean)
		}
		mad /= float64(n)

		v := 0.0
		if mad != 0 {
			v = (tp[i] - mean) / (0.015 * mad)
		}
		points = append(points, model.Point{Time: cs[i].Time, Value: v})
	}
	return scalar(points), nil
}

// ROC computes the percentage rate of change versus the close p.Period
// bars back. A zero reference close clamps to 0.
func ROC(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("roc", p.Period); err != nil {
		return emptyScalar(), err
	}
	n := p.Period
	if len(cs) < n+1 {
		return emptyScalar(), nil
	}

	points := make([]model.Point, 0, len(cs)-n)
	for i := n; i < len(cs); i++ {
		ref := cs[i-n].Close
		v := 0.0
		if ref != 0 {
			v = (cs[i].Close - ref) / ref * 100
		}
		points = append(points, model.Point{Time: cs[i].Time, Value: v})
	}
	return scalar(points), nil
}

// Momentum computes the raw close difference versus p.Period bars back.
func Momentum(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("momentum", p.Period); err != nil {
		return emptyScalar(), err
	}
	n := p.Period
	if len(cs) < n+1 {
		return emptyScalar(), nil
	}

	points := make([]model.Point, 0, len(cs)-n)
	for i := n; i < len(cs); i++ {
		points = append(points, model.Point{Time: cs[i].Time, Value: cs[i].Close - cs[i-n].Close})
	}
	return scalar(points), nil
}

// windowRange returns the highest high and lowest low of the n bars
// ending at index i.
func windowRange(cs []model.Candle, i, n int) (hh, ll float64) {
	hh = cs[i-n+1].High
	ll = cs[i-n+1].Low
	for j := i - n + 2; j <= i; j++ {
		if cs[j].High > hh {
			hh = cs[j].High
		}
		if cs[j].Low < ll {
			ll = cs[j].Low
		}
	}
	return hh, ll
}
