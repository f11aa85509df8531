package engine

import (
	"log/slog"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/metrics"
	"github.com/lakehopper/mapclient/internal/palette"
)

// Slot is a named singleton position: at most one layer per slot is
// attached at a time.
type Slot struct {
	Key   string
	Title string // overlay control entry name
}

var (
	SlotNavGraph     = Slot{Key: "nav-graph", Title: "Nav graph"}
	SlotShortestPath = Slot{Key: "shortest-path", Title: "Shortest path"}
)

// Leg is one segment of a multi-leg plan.
type Leg struct {
	LastReachablePoint document.Object
	Path               document.Object
}

// AddStatic renders obj as an untagged layer and attaches it.
func (e *Engine) AddStatic(name string, obj document.Object, color string, lineThickness float64) *Layer {
	e.mu.Lock()
	l := e.factory.Build(obj, color, lineThickness)
	l.Name = name
	l.Tag = TagStatic
	e.m.Add(l)
	seq := e.touchLocked()
	e.mu.Unlock()

	slog.Debug("static layer added", "layer", l.ID, "name", name, "markers", len(l.Markers))
	e.notifyChange(seq)
	return l
}

// ReplaceSingleton renders obj into slot. A layer already in the slot is
// detached from the map and from the overlay control first.
func (e *Engine) ReplaceSingleton(slot Slot, obj document.Object, color string, lineThickness float64) *Layer {
	e.mu.Lock()
	if old, ok := e.slots[slot.Key]; ok {
		e.detachLocked(old)
		e.overlays.Remove(old.ID)
		delete(e.slots, slot.Key)
		slog.Debug("singleton layer replaced", "slot", slot.Key, "old", old.ID)
	}

	l := e.factory.Build(obj, color, lineThickness)
	l.Name = slot.Title
	l.Tag = TagSingleton
	l.Slot = slot.Key
	e.m.Add(l)
	e.overlays.Add(slot.Title, l.ID)
	e.slots[slot.Key] = l
	seq := e.touchLocked()
	e.mu.Unlock()

	e.notifyChange(seq)
	return l
}

// Singleton returns the layer currently occupying slot.
func (e *Engine) Singleton(slot Slot) (*Layer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.slots[slot.Key]
	return l, ok
}

// AddDebug renders obj as a debug layer colored by the number of debug
// layers already attached.
func (e *Engine) AddDebug(obj document.Object) *Layer {
	e.mu.Lock()
	existing := e.m.Count(TagDebug)
	l := e.addDebugLocked(obj, existing, 0)
	seq := e.touchLocked()
	e.mu.Unlock()

	e.notifyChange(seq)
	return l
}

// AddDebugLegs renders each leg as two debug layers (last reachable point,
// then path) sharing the color ColorFor(existing debug layers + leg index).
func (e *Engine) AddDebugLegs(legs []Leg) []*Layer {
	e.mu.Lock()
	existing := e.m.Count(TagDebug)
	out := make([]*Layer, 0, 2*len(legs))
	for i, leg := range legs {
		if leg.LastReachablePoint != nil {
			out = append(out, e.addDebugLocked(leg.LastReachablePoint, existing, i))
		}
		if leg.Path != nil {
			out = append(out, e.addDebugLocked(leg.Path, existing, i))
		}
	}
	seq := e.touchLocked()
	e.mu.Unlock()

	e.notifyChange(seq)
	return out
}

func (e *Engine) addDebugLocked(obj document.Object, existing, offset int) *Layer {
	index := existing + offset
	if palette.Exhausted(index + 1) {
		slog.Warn("too many geometry groups for the palette, colors repeat",
			"index", index, "palette", palette.Size)
		metrics.PaletteExhausted.Inc()
	}
	l := e.factory.Build(obj, palette.ColorFor(index), DefaultLineThickness)
	l.Name = "debug"
	l.Tag = TagDebug
	e.m.Add(l)
	return l
}

// ClearDebug detaches every debug layer and returns how many were removed.
// The overlay control is not touched; debug layers are never registered there.
func (e *Engine) ClearDebug() int {
	e.mu.Lock()
	var debug []*Layer
	e.m.Each(func(l *Layer) {
		if l.Tag == TagDebug {
			debug = append(debug, l)
		}
	})
	for _, l := range debug {
		e.detachLocked(l)
	}
	seq := e.touchLocked()
	e.mu.Unlock()

	slog.Info("debug layers cleared", "count", len(debug))
	e.notifyChange(seq)
	return len(debug)
}

// AddGeometries renders a batch of unrelated objects with palette[i] each.
func (e *Engine) AddGeometries(objs []document.Object) []*Layer {
	if palette.Exhausted(len(objs)) {
		slog.Warn("too many geometries for the palette, colors repeat",
			"geometries", len(objs), "palette", palette.Size)
		metrics.PaletteExhausted.Inc()
	}

	e.mu.Lock()
	out := make([]*Layer, 0, len(objs))
	for i, obj := range objs {
		l := e.factory.Build(obj, palette.ColorFor(i), DefaultLineThickness)
		l.Name = obj.Type()
		l.Tag = TagStatic
		e.m.Add(l)
		out = append(out, l)
	}
	seq := e.touchLocked()
	e.mu.Unlock()

	e.notifyChange(seq)
	return out
}

// detachLocked removes l from the map and forgets its markers.
func (e *Engine) detachLocked(l *Layer) {
	e.m.Remove(l.ID)
	e.markers.RemoveLayer(l.ID)
}
