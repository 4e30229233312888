package model

import "encoding/json"

// SeriesKind distinguishes the two output shapes an indicator can produce.
type SeriesKind int

const (
	// KindScalar is one value per candle beyond the indicator's lookback.
	KindScalar SeriesKind = iota
	// KindBand is an upper/middle/lower envelope per candle beyond lookback.
	KindBand
)

// Point is a single scalar indicator value aligned to a candle timestamp.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// BandPoint is a single envelope value aligned to a candle timestamp.
type BandPoint struct {
	Time   int64   `json:"time"`
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Series is one computed indicator output. Exactly one of Points/Bands is
// populated depending on Kind. An empty series means "not yet computable"
// (buffer shorter than the indicator's lookback), never an error.
type Series struct {
	ID     string      `json:"id"`
	Kind   SeriesKind  `json:"kind"`
	Points []Point     `json:"points,omitempty"`
	Bands  []BandPoint `json:"bands,omitempty"`
}

// Len returns the number of output points regardless of shape.
func (s *Series) Len() int {
	if s.Kind == KindBand {
		return len(s.Bands)
	}
	return len(s.Points)
}

// Empty reports whether the series has no output points.
func (s *Series) Empty() bool { return s.Len() == 0 }

// JSON returns the JSON-encoded series.
func (s *Series) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
