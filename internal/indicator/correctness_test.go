package indicator

import (
	"math"
	"testing"

	"chart-systemv1/internal/model"
)

// flatCandle has high = close+10, low = close−10.
func flatCandle(ts int64, close float64) model.Candle {
	return model.Candle{
		Time:   ts,
		Open:   close,
		High:   close + 10,
		Low:    close - 10,
		Close:  close,
		Volume: 100,
	}
}

// degenerateCandle has open = high = low = close.
func degenerateCandle(ts int64, price float64) model.Candle {
	return model.Candle{Time: ts, Open: price, High: price, Low: price, Close: price, Volume: 100}
}

func constantSeries(n int, price float64) []model.Candle {
	cs := make([]model.Candle, n)
	for i := range cs {
		cs[i] = degenerateCandle(int64(60*(i+1)), price)
	}
	return cs
}

func risingSeries(n int, start float64) []model.Candle {
	cs := make([]model.Candle, n)
	for i := range cs {
		cs[i] = flatCandle(int64(60*(i+1)), start+float64(i))
	}
	return cs
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("%s: got %.9f, want %.9f", name, got, want)
	}
}

// ─── Moving averages ─────────────────────────────────────────────────────

func TestSMA_RisingWindow(t *testing.T) {
	cs := risingSeries(30, 100) // closes 100..129
	s, err := SMA(cs, Params{Period: 20})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 11 {
		t.Fatalf("expected 11 points, got %d", s.Len())
	}
	approx(t, "first SMA", s.Points[0].Value, 109.5) // mean(100..119)
	approx(t, "last SMA", s.Points[10].Value, 119.5) // mean(110..129)
	if s.Points[0].Time != cs[19].Time {
		t.Errorf("first point must align to bar 20, got ts=%d", s.Points[0].Time)
	}
}

func TestMovingAverages_ConstantPrice(t *testing.T) {
	cs := constantSeries(40, 250)
	cases := []struct {
		name string
		fn   ComputeFunc
	}{
		{"SMA", SMA},
		{"WMA", WMA},
		{"EMA", EMA},
	}
	for _, c := range cases {
		s, err := c.fn(cs, Params{Period: 10})
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		for _, p := range s.Points {
			approx(t, c.name+" constant", p.Value, 250)
		}
	}
}

func TestEMA_Seeding(t *testing.T) {
	cs := []model.Candle{degenerateCandle(60, 10), degenerateCandle(120, 13)}
	s, err := EMA(cs, Params{Period: 3}) // mult = 0.5
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("EMA has lookback 0, expected 2 points, got %d", s.Len())
	}
	approx(t, "EMA seed", s.Points[0].Value, 10)
	approx(t, "EMA step", s.Points[1].Value, 11.5)
}

func TestWMA_Weights(t *testing.T) {
	// period 3, closes 1,2,3: (1*1 + 2*2 + 3*3) / 6 = 14/6
	cs := []model.Candle{
		degenerateCandle(60, 1), degenerateCandle(120, 2), degenerateCandle(180, 3),
	}
	s, err := WMA(cs, Params{Period: 3})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 point, got %d", s.Len())
	}
	approx(t, "WMA", s.Points[0].Value, 14.0/6.0)
}

func TestBadPeriodIsError(t *testing.T) {
	cs := constantSeries(10, 100)
	if _, err := SMA(cs, Params{Period: 0}); err == nil {
		t.Error("SMA with period 0 must error")
	}
	if _, err := RSI(cs, Params{Period: -3}); err == nil {
		t.Error("RSI with negative period must error")
	}
}

// ─── Oscillators ─────────────────────────────────────────────────────────

func TestRSI_Clamps(t *testing.T) {
	// Monotonic rise: zero average loss → 100.
	s, err := RSI(risingSeries(20, 100), Params{Period: 14})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 5 { // 20 − lookback 14
		t.Fatalf("expected 5 points, got %d", s.Len())
	}
	for _, p := range s.Points {
		approx(t, "RSI rising", p.Value, 100)
	}

	// Flat closes: no gains, no losses → neutral 50.
	s, _ = RSI(constantSeries(20, 100), Params{Period: 14})
	for _, p := range s.Points {
		approx(t, "RSI flat", p.Value, 50)
	}
}

func TestRSI_Window(t *testing.T) {
	closes := []float64{100, 102, 101, 103}
	cs := make([]model.Candle, len(closes))
	for i, c := range closes {
		cs[i] = degenerateCandle(int64(60*(i+1)), c)
	}
	s, err := RSI(cs, Params{Period: 2})
	if err != nil {
		t.Fatal(err)
	}
	// Both windows: gains 2, losses 1 → rs=2 → 100 − 100/3
	if s.Len() != 2 {
		t.Fatalf("expected 2 points, got %d", s.Len())
	}
	approx(t, "RSI[0]", s.Points[0].Value, 100-100.0/3.0)
	approx(t, "RSI[1]", s.Points[1].Value, 100-100.0/3.0)
}

func TestStochasticK(t *testing.T) {
	// Close centred in a constant ±10 range → 50.
	s, err := StochasticK(constantFlatSeries(20, 100), Params{Period: 14})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 7 { // 20 − (14−1)
		t.Fatalf("expected 7 points, got %d", s.Len())
	}
	for _, p := range s.Points {
		approx(t, "stoch mid", p.Value, 50)
	}

	// Degenerate window (high == low everywhere) → 50.
	s, _ = StochasticK(constantSeries(20, 100), Params{Period: 14})
	for _, p := range s.Points {
		approx(t, "stoch degenerate", p.Value, 50)
	}
}

func TestWilliamsR(t *testing.T) {
	// Close centred in the range → −50; degenerate range also −50.
	s, err := WilliamsR(constantFlatSeries(20, 100), Params{Period: 14})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range s.Points {
		approx(t, "willr mid", p.Value, -50)
	}
	s, _ = WilliamsR(constantSeries(20, 100), Params{Period: 14})
	for _, p := range s.Points {
		approx(t, "willr degenerate", p.Value, -50)
	}
}

func TestCCI_FlatClampsToZero(t *testing.T) {
	s, err := CCI(constantSeries(25, 100), Params{Period: 20})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 6 {
		t.Fatalf("expected 6 points, got %d", s.Len())
	}
	for _, p := range s.Points {
		approx(t, "CCI flat", p.Value, 0)
	}
}

func TestROC(t *testing.T) {
	cs := constantSeries(13, 100)
	cs[12] = degenerateCandle(cs[12].Time, 110)
	s, err := ROC(cs, Params{Period: 12})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 point, got %d", s.Len())
	}
	approx(t, "ROC", s.Points[0].Value, 10)
}

func TestROC_ZeroReference(t *testing.T) {
	cs := constantSeries(4, 0)
	cs[3] = degenerateCandle(cs[3].Time, 5)
	s, err := ROC(cs, Params{Period: 3})
	if err != nil {
		t.Fatal(err)
	}
	approx(t, "ROC zero ref", s.Points[0].Value, 0)
}

func TestMomentum(t *testing.T) {
	s, err := Momentum(risingSeries(15, 100), Params{Period: 10})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 5 {
		t.Fatalf("expected 5 points, got %d", s.Len())
	}
	for _, p := range s.Points {
		approx(t, "momentum", p.Value, 10) // +1 per bar over 10 bars
	}
}

// ─── Bands ───────────────────────────────────────────────────────────────

func TestBollinger(t *testing.T) {
	// Constant price: sd = 0, all three lines collapse to the price.
	s, err := Bollinger(constantSeries(25, 100), Params{Period: 20, Mult: 2})
	if err != nil {
		t.Fatal(err)
	}
	if s.Kind != model.KindBand {
		t.Fatal("bollinger must produce a band series")
	}
	for _, b := range s.Bands {
		approx(t, "boll upper", b.Upper, 100)
		approx(t, "boll middle", b.Middle, 100)
		approx(t, "boll lower", b.Lower, 100)
	}

	// Known two-bar window: closes 10, 20 → mean 15, population sd 5.
	cs := []model.Candle{degenerateCandle(60, 10), degenerateCandle(120, 20)}
	s, _ = Bollinger(cs, Params{Period: 2, Mult: 2})
	if s.Len() != 1 {
		t.Fatalf("expected 1 band, got %d", s.Len())
	}
	approx(t, "boll known upper", s.Bands[0].Upper, 25)
	approx(t, "boll known middle", s.Bands[0].Middle, 15)
	approx(t, "boll known lower", s.Bands[0].Lower, 5)
}

func TestKeltner_ConstantPrice(t *testing.T) {
	// Zero true range: bands collapse onto the EMA middle.
	s, err := Keltner(constantSeries(25, 100), Params{Period: 20, Mult: 2})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 6 {
		t.Fatalf("expected 6 bands, got %d", s.Len())
	}
	for _, b := range s.Bands {
		approx(t, "kelt upper", b.Upper, 100)
		approx(t, "kelt middle", b.Middle, 100)
		approx(t, "kelt lower", b.Lower, 100)
	}
}

func TestDonchian(t *testing.T) {
	cs := []model.Candle{
		{Time: 60, Open: 7, High: 10, Low: 5, Close: 8},
		{Time: 120, Open: 9, High: 20, Low: 8, Close: 15},
	}
	s, err := Donchian(cs, Params{Period: 2})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 band, got %d", s.Len())
	}
	approx(t, "donch upper", s.Bands[0].Upper, 20)
	approx(t, "donch middle", s.Bands[0].Middle, 12.5)
	approx(t, "donch lower", s.Bands[0].Lower, 5)
}

func TestATR_ConstantRange(t *testing.T) {
	// Every bar: high−low = 20, close centred → TR = 20 for every pair.
	s, err := ATR(constantFlatSeries(20, 100), Params{Period: 14})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 6 { // 20 − lookback 14
		t.Fatalf("expected 6 points, got %d", s.Len())
	}
	for _, p := range s.Points {
		approx(t, "ATR", p.Value, 20)
	}
}

// ─── Trend ───────────────────────────────────────────────────────────────

func TestMACD_ConstantPrice(t *testing.T) {
	cs := constantSeries(30, 100)
	s, err := MACD(cs, Params{Fast: 12, Slow: 26})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 30 { // lookback 0
		t.Fatalf("expected 30 points, got %d", s.Len())
	}
	for _, p := range s.Points {
		approx(t, "MACD flat", p.Value, 0)
	}
}

func TestMACD_RisingIsPositive(t *testing.T) {
	s, err := MACD(risingSeries(60, 100), Params{Fast: 12, Slow: 26})
	if err != nil {
		t.Fatal(err)
	}
	// Far from the seed, fast EMA tracks a rising close more tightly.
	last := s.Points[s.Len()-1].Value
	if last <= 0 {
		t.Errorf("expected positive MACD on a steady rise, got %v", last)
	}
}

func TestADX_StraightTrend(t *testing.T) {
	// +1 per bar with a 2-point range: all movement is +DM → DX = 100.
	cs := make([]model.Candle, 20)
	for i := range cs {
		c := 100 + float64(i)
		cs[i] = model.Candle{Time: int64(60 * (i + 1)), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	s, err := ADX(cs, Params{Period: 14})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 6 {
		t.Fatalf("expected 6 points, got %d", s.Len())
	}
	for _, p := range s.Points {
		approx(t, "ADX trend", p.Value, 100)
	}
}

func TestADX_FlatClampsToZero(t *testing.T) {
	s, err := ADX(constantSeries(20, 100), Params{Period: 14})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range s.Points {
		approx(t, "ADX flat", p.Value, 0)
	}
}

func TestParabolicSAR_FlipToPriorExtreme(t *testing.T) {
	cs := []model.Candle{
		{Time: 60, Open: 9.2, High: 10, Low: 9, Close: 9.5},
		{Time: 120, Open: 10.2, High: 11, Low: 10, Close: 10.5},
		{Time: 180, Open: 4.8, High: 5, Low: 4, Close: 4.5},
	}
	s, err := ParabolicSAR(cs, Params{Mult: 0.02})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 { // lookback 1
		t.Fatalf("expected 2 points, got %d", s.Len())
	}
	// Uptrend bar: trail clamped to the prior bar's low.
	approx(t, "psar trail", s.Points[0].Value, 9)
	// Crash through the trail: SAR flips to the prior extreme (high 11).
	approx(t, "psar flip", s.Points[1].Value, 11)
}

func TestParabolicSAR_TrailStaysBelowUptrend(t *testing.T) {
	cs := risingSeries(30, 100)
	s, err := ParabolicSAR(cs, Params{Mult: 0.02})
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range s.Points {
		if p.Value >= cs[i+1].Low {
			t.Errorf("point %d: SAR %.4f not below bar low %.4f", i, p.Value, cs[i+1].Low)
		}
	}
}

// ─── Volume ──────────────────────────────────────────────────────────────

func TestOBV(t *testing.T) {
	closes := []float64{100, 102, 101, 101}
	volumes := []float64{10, 20, 30, 40}
	cs := make([]model.Candle, len(closes))
	for i := range cs {
		cs[i] = degenerateCandle(int64(60*(i+1)), closes[i])
		cs[i].Volume = volumes[i]
	}

	s, err := OBV(cs, Params{})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 20, -10, -10}
	if s.Len() != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), s.Len())
	}
	for i, w := range want {
		approx(t, "OBV", s.Points[i].Value, w)
	}
}

func TestMFI_Clamps(t *testing.T) {
	// Monotonic rising typical price → zero negative flow → 100.
	s, err := MFI(risingSeries(20, 100), Params{Period: 14})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 6 {
		t.Fatalf("expected 6 points, got %d", s.Len())
	}
	for _, p := range s.Points {
		approx(t, "MFI rising", p.Value, 100)
	}

	// Flat typical price → no flow either way → neutral 50.
	s, _ = MFI(constantSeries(20, 100), Params{Period: 14})
	for _, p := range s.Points {
		approx(t, "MFI flat", p.Value, 50)
	}
}

func TestVWAP_Anchored(t *testing.T) {
	cs := []model.Candle{degenerateCandle(60, 10), degenerateCandle(120, 20)}
	cs[0].Volume = 1
	cs[1].Volume = 3

	s, err := VWAP(cs, Params{})
	if err != nil {
		t.Fatal(err)
	}
	approx(t, "VWAP[0]", s.Points[0].Value, 10)
	approx(t, "VWAP[1]", s.Points[1].Value, 17.5) // (10·1 + 20·3) / 4
}

func TestVWAP_ZeroVolumeFallsBackToTypical(t *testing.T) {
	cs := constantSeries(3, 42)
	for i := range cs {
		cs[i].Volume = 0
	}
	s, err := VWAP(cs, Params{})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range s.Points {
		approx(t, "VWAP zero-vol", p.Value, 42)
	}
}

// ─── Registry-wide invariants ────────────────────────────────────────────

func TestRegistry_SeriesLengthMatchesLookback(t *testing.T) {
	const L = 60
	cs := make([]model.Candle, L)
	for i := range cs {
		// Varied but well-formed: a gentle sine-ish wiggle with volume.
		c := 100 + float64(i%7) - float64(i%3)
		cs[i] = model.Candle{
			Time: int64(60 * (i + 1)), Open: c, High: c + 2, Low: c - 2, Close: c, Volume: float64(50 + i),
		}
	}

	for id, spec := range Registry() {
		s, err := spec.Compute(cs, spec.Params)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", id, err)
			continue
		}
		if got, want := s.Len(), L-spec.Lookback; got != want {
			t.Errorf("%s: series length = %d, want %d (lookback %d)", id, got, want, spec.Lookback)
		}
		if s.Kind != spec.Kind() {
			t.Errorf("%s: series kind = %v, want %v", id, s.Kind, spec.Kind())
		}
	}
}

func TestRegistry_ShortWindowIsEmptyNotError(t *testing.T) {
	for id, spec := range Registry() {
		cs := make([]model.Candle, spec.Lookback) // one bar short of first output
		for i := range cs {
			cs[i] = flatCandle(int64(60*(i+1)), 100)
		}
		s, err := spec.Compute(cs, spec.Params)
		if err != nil {
			t.Errorf("%s: short window must not error, got %v", id, err)
			continue
		}
		if !s.Empty() {
			t.Errorf("%s: short window must yield an empty series, got %d points", id, s.Len())
		}
	}
}

func TestRegistry_EmptyInput(t *testing.T) {
	for id, spec := range Registry() {
		s, err := spec.Compute(nil, spec.Params)
		if err != nil {
			t.Errorf("%s: empty input must not error, got %v", id, err)
			continue
		}
		if !s.Empty() {
			t.Errorf("%s: empty input must yield an empty series", id)
		}
	}
}

// constantFlatSeries: constant close with a ±10 high/low range.
func constantFlatSeries(n int, close float64) []model.Candle {
	cs := make([]model.Candle, n)
	for i := range cs {
		cs[i] = flatCandle(int64(60*(i+1)), close)
	}
	return cs
}
