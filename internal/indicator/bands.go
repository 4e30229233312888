package indicator

import (
	"math"

	"chart-systemv1/internal/model"
)

// Bollinger computes an SMA middle line with bands at p.Mult population
// standard deviations of close over the same window.
func Bollinger(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("bollinger", p.Period); err != nil {
		return emptyBand(), err
	}
	n := p.Period
	if len(cs) < n {
		return emptyBand(), nil
	}

	points := make([]model.BandPoint, 0, len(cs)-n+1)
	for i := n - 1; i < len(cs); i++ {
		mean := 0.0
		for j := i - n + 1; j <= i; j++ {
			mean += cs[j].Close
		}
		mean /= float64(n)

		variance := 0.0
		for j := i - n + 1; j <= i; j++ {
			d := cs[j].Close - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(n))

		points = append(points, model.BandPoint{
			Time:   cs[i].Time,
			Upper:  mean + p.Mult*sd,
			Middle: mean,
			Lower:  mean - p.Mult*sd,
		})
	}
	return band(points), nil
}

// Keltner computes an EMA middle line with bands at p.Mult times the mean
// true range of the window. The first bar of each window contributes no
// range term, so the mean is over period−1 consecutive ranges.
func Keltner(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("keltner", p.Period); err != nil {
		return emptyBand(), err
	}
	n := p.Period
	if n < 2 || len(cs) < n {
		return emptyBand(), nil
	}

	ema := emaValues(cs, n)
	points := make([]model.BandPoint, 0, len(cs)-n+1)
	for i := n - 1; i < len(cs); i++ {
		trSum := 0.0
		for j := i - n + 2; j <= i; j++ {
			trSum += trueRange(&cs[j], &cs[j-1])
		}
		atr := trSum / float64(n-1)

		points = append(points, model.BandPoint{
			Time:   cs[i].Time,
			Upper:  ema[i] + p.Mult*atr,
			Middle: ema[i],
			Lower:  ema[i] - p.Mult*atr,
		})
	}
	return band(points), nil
}

// Donchian computes the highest high / lowest low channel over the window;
// the middle line is the mean of the two.
func Donchian(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("donchian", p.Period); err != nil {
		return emptyBand(), err
	}
	n := p.Period
	if len(cs) < n {
		return emptyBand(), nil
	}

	points := make([]model.BandPoint, 0, len(cs)-n+1)
	for i := n - 1; i < len(cs); i++ {
		hi := cs[i-n+1].High
		lo := cs[i-n+1].Low
		for j := i - n + 2; j <= i; j++ {
			if cs[j].High > hi {
				hi = cs[j].High
			}
			if cs[j].Low < lo {
				lo = cs[j].Low
			}
		}
		points = append(points, model.BandPoint{
			Time:   cs[i].Time,
			Upper:  hi,
			Middle: (hi + lo) / 2,
			Lower:  lo,
		})
	}
	return band(points), nil
}

// ATR computes the rolling mean of the true range over p.Period bars.
// Lookback = period: the first bar has no previous close to range against.
func ATR(cs []model.Candle, p Params) (model.Series, error) {
	if err := checkPeriod("atr", p.Period); err != nil {
		return emptyScalar(), err
	}
	n := p.Period
	if len(cs) < n+1 {
		return emptyScalar(), nil
	}

	// tr[k] is the true range of bar k+1 versus bar k.
	tr := make([]float64, len(cs)-1)
	for i := 1; i < len(cs); i++ {
		tr[i-1] = trueRange(&cs[i], &cs[i-1])
	}

	points := make([]model.Point, 0, len(cs)-n)
	sum := 0.0
	for k := range tr {
		sum += tr[k]
		if k >= n {
			sum -= tr[k-n]
		}
		if k >= n-1 {
			points = append(points, model.Point{Time: cs[k+1].Time, Value: sum / float64(n)})
		}
	}
	return scalar(points), nil
}
