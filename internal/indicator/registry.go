package indicator

import "chart-systemv1/internal/model"

// Family groups related indicators for display purposes.
type Family string

const (
	FamilyMA         Family = "ma"
	FamilyBand       Family = "band"
	FamilyOscillator Family = "oscillator"
	FamilyTrend      Family = "trend"
	FamilyVolume     Family = "volume"
)

// Spec is the static metadata and compute binding for one indicator
// identifier. The registry is immutable reference data: it is built once
// and injected at engine construction, never mutated at runtime.
type Spec struct {
	ID       string
	Family   Family
	Params   Params
	Color    string // display hint for the chart consumer
	Lookback int    // bars consumed before the first output point
	Compute  ComputeFunc
}

// Kind returns the output shape of this indicator.
func (s *Spec) Kind() model.SeriesKind {
	if s.Family == FamilyBand {
		return model.KindBand
	}
	return model.KindScalar
}

// Registry returns the built-in indicator set keyed by identifier.
// Callers must treat the returned map as read-only.
func Registry() map[string]Spec {
	specs := []Spec{
		{ID: "SMA_20", Family: FamilyMA, Params: Params{Period: 20}, Color: "#2962ff", Lookback: 19, Compute: SMA},
		{ID: "SMA_50", Family: FamilyMA, Params: Params{Period: 50}, Color: "#6200ea", Lookback: 49, Compute: SMA},
		{ID: "WMA_20", Family: FamilyMA, Params: Params{Period: 20}, Color: "#00838f", Lookback: 19, Compute: WMA},
		{ID: "EMA_12", Family: FamilyMA, Params: Params{Period: 12}, Color: "#f57c00", Lookback: 0, Compute: EMA},
		{ID: "EMA_26", Family: FamilyMA, Params: Params{Period: 26}, Color: "#d84315", Lookback: 0, Compute: EMA},

		{ID: "BOLL_20", Family: FamilyBand, Params: Params{Period: 20, Mult: 2}, Color: "#7b1fa2", Lookback: 19, Compute: Bollinger},
		{ID: "KELT_20", Family: FamilyBand, Params: Params{Period: 20, Mult: 2}, Color: "#0097a7", Lookback: 19, Compute: Keltner},
		{ID: "DONCH_20", Family: FamilyBand, Params: Params{Period: 20}, Color: "#5d4037", Lookback: 19, Compute: Donchian},

		{ID: "RSI_14", Family: FamilyOscillator, Params: Params{Period: 14}, Color: "#c2185b", Lookback: 14, Compute: RSI},
		{ID: "STOCH_14", Family: FamilyOscillator, Params: Params{Period: 14}, Color: "#00796b", Lookback: 13, Compute: StochasticK},
		{ID: "WILLR_14", Family: FamilyOscillator, Params: Params{Period: 14}, Color: "#455a64", Lookback: 13, Compute: WilliamsR},
		{ID: "CCI_20", Family: FamilyOscillator, Params: Params{Period: 20}, Color: "#afb42b", Lookback: 19, Compute: CCI},
		{ID: "ROC_12", Family: FamilyOscillator, Params: Params{Period: 12}, Color: "#512da8", Lookback: 12, Compute: ROC},
		{ID: "MOM_10", Family: FamilyOscillator, Params: Params{Period: 10}, Color: "#0288d1", Lookback: 10, Compute: Momentum},

		{ID: "MACD_12_26", Family: FamilyTrend, Params: Params{Fast: 12, Slow: 26}, Color: "#1976d2", Lookback: 0, Compute: MACD},
		{ID: "ADX_14", Family: FamilyTrend, Params: Params{Period: 14}, Color: "#e64a19", Lookback: 14, Compute: ADX},
		{ID: "PSAR", Family: FamilyTrend, Params: Params{Mult: 0.02}, Color: "#fbc02d", Lookback: 1, Compute: ParabolicSAR},
		{ID: "ATR_14", Family: FamilyTrend, Params: Params{Period: 14}, Color: "#7e57c2", Lookback: 14, Compute: ATR},

		{ID: "OBV", Family: FamilyVolume, Params: Params{}, Color: "#388e3c", Lookback: 0, Compute: OBV},
		{ID: "MFI_14", Family: FamilyVolume, Params: Params{Period: 14}, Color: "#689f38", Lookback: 14, Compute: MFI},
		{ID: "VWAP", Family: FamilyVolume, Params: Params{}, Color: "#f06292", Lookback: 0, Compute: VWAP},
	}

	reg := make(map[string]Spec, len(specs))
	for _, s := range specs {
		reg[s.ID] = s
	}
	return reg
}
