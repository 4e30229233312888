package indicator

import "chart-systemv1/internal/model"

// MACD computes EMA(fast) − EMA(slow) over close. Both EMAs are seeded
// with the first visible close so both span the full window; the result is
// truncated to the shorter of the two. No signal line is produced here.
func MACD(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("macd fast", p.Fast); err != nil {
		return emptyScalar(), err
	}
	if err := checkPeriod("macd slow", p.Slow); err != nil {
		return emptyScalar(), err
	}
	if len(cs) == 0 {
		return emptyScalar(), nil
	}

	fast := emaValues(cs, p.Fast)
	slow := emaValues(cs, p.Slow)
	n := len(fast)
	if len(slow) < n {
		n = len(slow)
	}

	points := make([]model.Point, n)
	for i := 0; i < n; i++ {
		points[i] = model.Point{Time: cs[i].Time, Value: fast[i] - slow[i]}
	}
	return scalar(points), nil
}

// ADX computes the simplified directional index: per-bar true range, +DM
// and −DM, window means of each, +DI/−DI from the means and finally
// DX = |+DI − −DI| / (+DI + −DI) × 100. This is the single-smoothed DX
// line of the charting variant, not the doubly-smoothed ADX. Degenerate
// denominators (zero mean range or zero DI sum) clamp to 0.
func ADX(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("adx", p.Period); err != nil {
		return emptyScalar(), err
	}
	n := p.Period
	if len(cs) < n+1 {
		return emptyScalar(), nil
	}

	// Per-bar movement terms; entry k describes bar k+1 versus bar k.
	trs := make([]float64, len(cs)-1)
	plusDM := make([]float64, len(cs)-1)
	minusDM := make([]float64, len(cs)-1)
	for i := 1; i < len(cs); i++ {
		up := cs[i].High - cs[i-1].High
		down := cs[i-1].Low - cs[i].Low
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
		trs[i-1] = trueRange(&cs[i], &cs[i-1])
	}

	points := make([]model.Point, 0, len(cs)-n)
	for i := n; i < len(cs); i++ {
		var trSum, pSum, mSum float64
		for k := i - n; k < i; k++ {
			trSum += trs[k]
			pSum += plusDM[k]
			mSum += minusDM[k]
		}

		dx := 0.0
		if trSum != 0 {
			plusDI := 100 * pSum / trSum
			minusDI := 100 * mSum / trSum
			if sum := plusDI + minusDI; sum != 0 {
				dx = 100 * abs(plusDI-minusDI) / sum
			}
		}
		points = append(points, model.Point{Time: cs[i].Time, Value: dx})
	}
	return scalar(points), nil
}

// ParabolicSAR computes the stop-and-reverse trail. The acceleration
// factor starts at p.Mult (0.02 by default), grows by the same step on
// every new extreme and is capped at ten steps. The SAR flips to the prior
// extreme point when price crosses it, resetting the factor.
func ParabolicSAR(cs []model.Candle, p Params) (model.Series, error) {
	step := p.Mult
	if step <= 0 {
		step = 0.02
	}
	maxAF := step * 10
	if len(cs) < 2 {
		return emptyScalar(), nil
	}

	uptrend := cs[1].Close >= cs[0].Close
	af := step
	var sar, ep float64
	if uptrend {
		sar = cs[0].Low
		ep = cs[0].High
	} else {
		sar = cs[0].High
		ep = cs[0].Low
	}

	points := make([]model.Point, 0, len(cs)-1)
	for i := 1; i < len(cs); i++ {
		sar = sar + af*(ep-sar)

		if uptrend {
			// The trail may never rise into the two previous bars' lows.
			if sar > cs[i-1].Low {
				sar = cs[i-1].Low
			}
			if i >= 2 && sar > cs[i-2].Low {
				sar = cs[i-2].Low
			}
			if cs[i].Low < sar {
				// Price crossed the trail: flip to the prior extreme.
				uptrend = false
				sar = ep
				ep = cs[i].Low
				af = step
			} else if cs[i].High > ep {
				ep = cs[i].High
				if af += step; af > maxAF {
					af = maxAF
				}
			}
		} else {
			if sar < cs[i-1].High {
				sar = cs[i-1].High
			}
			if i >= 2 && sar < cs[i-2].High {
				sar = cs[i-2].High
			}
			if cs[i].High > sar {
				uptrend = true
				sar = ep
				ep = cs[i].High
				af = step
			} else if cs[i].Low < ep {
				ep = cs[i].Low
				if af += step; af > maxAF {
					af = maxAF
				}
			}
		}

		points = append(points, model.Point{Time: cs[i].Time, Value: sar})
	}
	return scalar(points), nil
}
