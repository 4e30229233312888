package gateway

import (
	"encoding/json"
	"sort"
	"testing"

	"chart-systemv1/internal/indicator"
	"chart-systemv1/internal/model"
)

func TestBuildCatalog(t *testing.T) {
	registry := indicator.Registry()
	raw := buildCatalog(registry)

	var entries []catalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("catalog not valid JSON: %v", err)
	}
	if len(entries) != len(registry) {
		t.Fatalf("catalog has %d entries, registry has %d", len(entries), len(registry))
	}
	if !sort.SliceIsSorted(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID }) {
		t.Error("catalog must be sorted by id")
	}

	byID := make(map[string]catalogEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	boll, ok := byID["BOLL_20"]
	if !ok {
		t.Fatal("BOLL_20 missing from catalog")
	}
	if boll.Kind != "band" || boll.Period != 20 || boll.Mult != 2 || boll.Lookback != 19 {
		t.Errorf("unexpected BOLL_20 entry: %+v", boll)
	}
	if sma := byID["SMA_20"]; sma.Kind != "scalar" || sma.Color == "" {
		t.Errorf("unexpected SMA_20 entry: %+v", sma)
	}
}

func TestBroadcastSnapshot_EnvelopeShape(t *testing.T) {
	h := NewHub()

	series := map[string]model.Series{
		"SMA_20": {
			ID:     "SMA_20",
			Kind:   model.KindScalar,
			Points: []model.Point{{Time: 60, Value: 100.5}},
		},
	}
	last := model.Candle{Time: 60, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10}

	envelope := h.BroadcastSnapshot([]string{"SMA_20"}, series, &last)
	if envelope == nil {
		t.Fatal("expected an envelope")
	}

	var decoded struct {
		Type   string                  `json:"type"`
		TS     int64                   `json:"ts"`
		Active []string                `json:"active"`
		Series map[string]model.Series `json:"series"`
		Candle *model.Candle           `json:"candle"`
	}
	if err := json.Unmarshal(envelope, &decoded); err != nil {
		t.Fatalf("envelope not valid JSON: %v", err)
	}
	if decoded.Type != "snapshot" || decoded.TS == 0 {
		t.Errorf("bad envelope header: type=%q ts=%d", decoded.Type, decoded.TS)
	}
	if len(decoded.Active) != 1 || decoded.Active[0] != "SMA_20" {
		t.Errorf("active = %v", decoded.Active)
	}
	if got := decoded.Series["SMA_20"]; got.Len() != 1 || got.Points[0].Value != 100.5 {
		t.Errorf("series did not round-trip: %+v", got)
	}
	if decoded.Candle == nil || decoded.Candle.Close != 100.5 {
		t.Errorf("candle did not round-trip: %+v", decoded.Candle)
	}
}

func TestReplyAfterDisconnect(t *testing.T) {
	h := NewHub()
	c := &Client{send: make(chan []byte, 256), hub: h}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	// The client queues a command and disconnects before the engine loop
	// drains it. The late reply must be swallowed, never panic the loop.
	h.RemoveClient(c)
	c.SendAck("activate", "SMA_20", "req-1", []string{"SMA_20"})
	c.SendError("req-2", "engine busy")

	if h.ClientCount() != 0 {
		t.Fatalf("client still registered after removal")
	}
	if got := len(c.send); got != 2 {
		t.Errorf("expected 2 queued replies on the orphaned channel, got %d", got)
	}

	// Removing an already-removed client stays a no-op.
	h.RemoveClient(c)
}

func TestCommandChannelBackpressure(t *testing.T) {
	h := NewHub()

	// The command channel is bounded; a full channel must never block the
	// reader goroutine, it reports busy to the client instead.
	for i := 0; i < cap(h.Commands); i++ {
		select {
		case h.Commands <- Command{Action: "activate", ID: "SMA_20"}:
		default:
			t.Fatalf("channel refused send %d below capacity", i)
		}
	}
	select {
	case h.Commands <- Command{Action: "activate", ID: "SMA_20"}:
		t.Fatal("send beyond capacity must not succeed")
	default:
	}
}
