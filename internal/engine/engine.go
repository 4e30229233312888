// Package engine tracks the set of active indicator identifiers and keeps
// their output series aligned to the candle buffer. Activation changes
// recompute only the affected identifier; buffer mutations recompute every
// active identifier from a single snapshot. The published mapping is
// replaced wholesale so consumers never observe a half-updated result.
package engine

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"chart-systemv1/internal/indicator"
	"chart-systemv1/internal/model"
)

// ErrUnknownIndicator is returned for activation requests naming an
// identifier that is not in the registry. Other active indicators are
// unaffected.
var ErrUnknownIndicator = fmt.Errorf("engine: unknown indicator id")

// SnapshotFunc supplies the current candle window for computation.
// It is the buffer's Snapshot method in production.
type SnapshotFunc func() []model.Candle

// Metrics hooks let the host record compute behaviour without the engine
// depending on the metrics package.
type Metrics struct {
	OnRecompute   func(d time.Duration, series int)
	OnComputeFail func(id string)
}

// Engine computes active indicators against candle snapshots.
// Single-sequence: Activate, Deactivate, RecomputeAll and Active must be
// called from the one event-loop goroutine (the active set is not locked);
// only Series is safe for concurrent readers.
type Engine struct {
	registry map[string]indicator.Spec
	snapshot SnapshotFunc
	metrics  Metrics

	active map[string]struct{}

	mu     sync.RWMutex
	series map[string]model.Series
}

// New creates an engine over an immutable registry and a snapshot source.
func New(registry map[string]indicator.Spec, snapshot SnapshotFunc, m Metrics) *Engine {
	return &Engine{
		registry: registry,
		snapshot: snapshot,
		metrics:  m,
		active:   make(map[string]struct{}, 8),
		series:   map[string]model.Series{},
	}
}

// Activate adds id to the active set and immediately computes its series
// against the current snapshot. Activating an already-active id recomputes
// it. Unknown ids fail with ErrUnknownIndicator.
func (e *Engine) Activate(id string) (model.Series, error) {
	spec, ok := e.registry[id]
	if !ok {
		return model.Series{}, fmt.Errorf("%w: %q", ErrUnknownIndicator, id)
	}
	e.active[id] = struct{}{}

	s, err := e.compute(spec, e.snapshot())
	if err != nil {
		// Stays active; the series is simply absent until a recompute
		// succeeds (e.g. after a config fix).
		e.failed(id, err)
		return model.Series{}, err
	}

	e.mu.Lock()
	next := cloneMapping(e.series)
	next[id] = s
	e.series = next
	e.mu.Unlock()
	return s, nil
}

// Deactivate removes id from the active set and drops its series from the
// published mapping. Removal is immediate: the id simply stops appearing
// in future recomputes. Unknown ids fail with ErrUnknownIndicator.
func (e *Engine) Deactivate(id string) error {
	if _, ok := e.registry[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownIndicator, id)
	}
	delete(e.active, id)

	e.mu.Lock()
	next := cloneMapping(e.series)
	delete(next, id)
	e.series = next
	e.mu.Unlock()
	return nil
}

// RecomputeAll recomputes every active indicator from one snapshot and
// atomically replaces the published mapping. A failing indicator is
// reported and omitted; it never aborts the others.
func (e *Engine) RecomputeAll() map[string]model.Series {
	start := time.Now()
	cs := e.snapshot()

	next := make(map[string]model.Series, len(e.active))
	for id := range e.active {
		spec := e.registry[id]
		s, err := e.compute(spec, cs)
		if err != nil {
			e.failed(id, err)
			continue
		}
		next[id] = s
	}

	e.mu.Lock()
	e.series = next
	e.mu.Unlock()

	if e.metrics.OnRecompute != nil {
		e.metrics.OnRecompute(time.Since(start), len(next))
	}
	return next
}

// Series returns the current published mapping. The map is a copy; the
// series values it holds are never mutated after publication.
func (e *Engine) Series() map[string]model.Series {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneMapping(e.series)
}

// Active returns the sorted active identifier set.
func (e *Engine) Active() []string {
	ids := make([]string, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Registry exposes the injected registry for the API surface
// (listing available indicators with family and color).
func (e *Engine) Registry() map[string]indicator.Spec { return e.registry }

func (e *Engine) compute(spec indicator.Spec, cs []model.Candle) (model.Series, error) {
	s, err := spec.Compute(cs, spec.Params)
	if err != nil {
		return model.Series{}, err
	}
	s.ID = spec.ID
	return s, nil
}

func (e *Engine) failed(id string, err error) {
	log.Printf("[engine] compute %s failed: %v", id, err)
	if e.metrics.OnComputeFail != nil {
		e.metrics.OnComputeFail(id)
	}
}

func cloneMapping(m map[string]model.Series) map[string]model.Series {
	out := make(map[string]model.Series, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
