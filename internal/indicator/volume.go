package indicator

import "chart-systemv1/internal/model"

// OBV computes cumulative signed volume across the visible window:
// volume is added on a rising close, subtracted on a falling close and
// ignored otherwise. The first bar contributes 0. Lookback = 0.
func OBV(cs []model.Candle, _ Params) (model.Series, error) {
	if len(cs) == 0 {
		return emptyScalar(), nil
	}

	points := make([]model.Point, len(cs))
	obv := 0.0
	points[0] = model.Point{Time: cs[0].Time, Value: 0}
	for i := 1; i < len(cs); i++ {
		switch {
		case cs[i].Close > cs[i-1].Close:
			obv += cs[i].Volume
		case cs[i].Close < cs[i-1].Close:
			obv -= cs[i].Volume
		}
		points[i] = model.Point{Time: cs[i].Time, Value: obv}
	}
	return scalar(points), nil
}

// MFI computes the money flow index: raw money flow (typical price ×
// volume) is bucketed positive or negative by the typical price direction,
// summed over the window, and mapped through 100 − 100/(1+ratio).
// Zero negative flow clamps to 100; a window with no flow at all clamps
// to the neutral 50.
func MFI(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("mfi", p.Period); err != nil {
		return emptyScalar(), err
	}
	n := p.Period
	if len(cs) < n+1 {
		return emptyScalar(), nil
	}

	tp := make([]float64, len(cs))
	for i := range cs {
		tp[i] = cs[i].TypicalPrice()
	}

	// flow[k] is the signed raw money flow of bar k+1 versus bar k:
	// positive flows in posFlow, negative in negFlow.
	posFlow := make([]float64, len(cs)-1)
	negFlow := make([]float64, len(cs)-1)
	for i := 1; i < len(cs); i++ {
		raw := tp[i] * cs[i].Volume
		switch {
		case tp[i] > tp[i-1]:
			posFlow[i-1] = raw
		case tp[i] < tp[i-1]:
			negFlow[i-1] = raw
		}
	}

	points := make([]model.Point, 0, len(cs)-n)
	for i := n; i < len(cs); i++ {
		var pos, neg float64
		for k := i - n; k < i; k++ {
			pos += posFlow[k]
			neg += negFlow[k]
		}

		var mfi float64
		switch {
		case neg == 0 && pos == 0:
			mfi = 50
		case neg == 0:
			mfi = 100
		default:
			ratio := pos / neg
			mfi = 100 - 100/(1+ratio)
		}
		points = append(points, model.Point{Time: cs[i].Time, Value: mfi})
	}
	return scalar(points), nil
}

// VWAP computes the anchored volume-weighted average price: cumulative
// typical price × volume over cumulative volume from the start of the
// visible buffer. It is not a rolling window — the anchor resets only
// when the buffer itself is reset. A zero cumulative volume falls back
// to the bar's typical price. Lookback = 0.
func VWAP(cs []model.Candle, _ Params) (model.Series, error) {
	if len(cs) == 0 {
		return emptyScalar(), nil
	}

	points := make([]model.Point, len(cs))
	var cumPV, cumVol float64
	for i := range cs {
		tp := cs[i].TypicalPrice()
		cumPV += tp * cs[i].Volume
		cumVol += cs[i].Volume

		v := tp
		if cumVol != 0 {
			v = cumPV / cumVol
		}
		points[i] = model.Point{Time: cs[i].Time, Value: v}
	}
	return scalar(points), nil
}
