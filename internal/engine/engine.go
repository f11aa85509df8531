package engine

import (
	"sync"

	"github.com/lakehopper/mapclient/internal/metrics"
)

// Engine owns the map's layer state: attached layers, the overlay control,
// singleton slots and the marker identity table. Every mutation runs to
// completion under one lock, so handlers from the transport and operator
// actions never interleave.
type Engine struct {
	mu sync.Mutex

	m        *Map
	overlays *OverlayControl
	markers  *MarkerRegistry
	factory  *Factory
	slots    map[string]*Layer

	// seq increases on every change; viewers use it to detect staleness.
	seq      uint64
	onChange []func(seq uint64)

	// notifyMu orders change callbacks; notified is the last seq delivered.
	notifyMu sync.Mutex
	notified uint64
	// detached engines do not report the layer gauge.
	detached bool
}

// NewEngine creates an engine with an empty map.
func NewEngine() *Engine {
	markers := NewMarkerRegistry()
	return &Engine{
		m:        NewMap(),
		overlays: NewOverlayControl(),
		markers:  markers,
		factory:  NewFactory(markers),
		slots:    make(map[string]*Layer),
	}
}

// NewDetachedEngine creates an engine for offline rebuilds that leaves the
// process-wide layer gauge to the live engine.
func NewDetachedEngine() *Engine {
	e := NewEngine()
	e.detached = true
	return e
}

// OnChange registers fn to be called after changes, outside the state lock.
// Callbacks run one at a time with strictly increasing seq; a change already
// covered by a newer delivered seq is not reported. fn must not mutate the
// engine.
func (e *Engine) OnChange(fn func(seq uint64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = append(e.onChange, fn)
}

// RemoveLayer detaches a layer by ID, wherever it came from.
func (e *Engine) RemoveLayer(id string) bool {
	e.mu.Lock()
	l, ok := e.m.Get(id)
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.detachLocked(l)
	e.overlays.Remove(id)
	if l.Tag == TagSingleton && e.slots[l.Slot] == l {
		delete(e.slots, l.Slot)
	}
	seq := e.touchLocked()
	e.mu.Unlock()

	e.notifyChange(seq)
	return true
}

// LayerCount returns the number of attached layers with tag.
func (e *Engine) LayerCount(tag Tag) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.m.Count(tag)
}

// Overlays returns the overlay control entries.
func (e *Engine) Overlays() []OverlayEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlays.Entries()
}

// MarkerIcon returns the current icon of a marker.
func (e *Engine) MarkerIcon(id string) (Icon, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.markers.Lookup(id)
	if !ok {
		return Icon{}, false
	}
	return m.Icon, true
}

// MarkerLabels returns the labels accumulated at a marker's coordinate.
func (e *Engine) MarkerLabels(id string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.markers.Labels(id)
}

// Seq returns the current change sequence.
func (e *Engine) Seq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

func (e *Engine) touchLocked() uint64 {
	e.seq++
	if e.detached {
		return e.seq
	}
	for _, tag := range []Tag{TagStatic, TagSingleton, TagDebug} {
		metrics.Layers.WithLabelValues(tag.String()).Set(float64(e.m.Count(tag)))
	}
	return e.seq
}

func (e *Engine) notifyChange(seq uint64) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	if seq <= e.notified {
		return
	}
	e.notified = seq

	e.mu.Lock()
	fns := make([]func(uint64), len(e.onChange))
	copy(fns, e.onChange)
	e.mu.Unlock()

	for _, fn := range fns {
		fn(seq)
	}
}
