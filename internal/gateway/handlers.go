package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"

	"chart-systemv1/internal/indicator"
)

// catalogEntry is the REST view of one registry indicator.
type catalogEntry struct {
	ID       string  `json:"id"`
	Family   string  `json:"family"`
	Kind     string  `json:"kind"`
	Color    string  `json:"color"`
	Lookback int     `json:"lookback"`
	Period   int     `json:"period,omitempty"`
	Fast     int     `json:"fast,omitempty"`
	Slow     int     `json:"slow,omitempty"`
	Mult     float64 `json:"mult,omitempty"`
}

// Server exposes the WS endpoint and the indicator catalog over HTTP.
type Server struct {
	srv *http.Server
}

// NewServer builds the gateway HTTP server. The registry is rendered once
// into the static catalog payload.
func NewServer(addr string, hub *Hub, registry map[string]indicator.Spec) *Server {
	catalog := buildCatalog(registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	mux.HandleFunc("/api/indicators", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(catalog)
	})

	return &Server{
		srv: &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[gateway] server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[gateway] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the gateway server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

func buildCatalog(registry map[string]indicator.Spec) []byte {
	entries := make([]catalogEntry, 0, len(registry))
	for _, spec := range registry {
		kind := "scalar"
		if spec.Family == indicator.FamilyBand {
			kind = "band"
		}
		entries = append(entries, catalogEntry{
			ID:       spec.ID,
			Family:   string(spec.Family),
			Kind:     kind,
			Color:    spec.Color,
			Lookback: spec.Lookback,
			Period:   spec.Params.Period,
			Fast:     spec.Params.Fast,
			Slow:     spec.Params.Slow,
			Mult:     spec.Params.Mult,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	b, _ := json.Marshal(entries)
	return b
}
