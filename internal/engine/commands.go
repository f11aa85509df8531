package engine

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"

	"github.com/lakehopper/mapclient/internal/document"
)

// DrawShape is a styled shape as handed to the front-end.
type DrawShape struct {
	Geometry *geojson.Geometry `json:"geometry"`
	Style    Style             `json:"style"`
	Tooltip  string            `json:"tooltip,omitempty"`
}

// DrawMarker is a marker as handed to the front-end.
type DrawMarker struct {
	ID     string          `json:"id"`
	LatLng document.LatLng `json:"latLng"`
	Icon   Icon            `json:"icon"`
	Title  string          `json:"title"`
}

// DrawLayer is one attached layer in painter's order.
type DrawLayer struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Tag     string       `json:"tag"`
	Slot    string       `json:"slot,omitempty"`
	Color   string       `json:"color"`
	Shapes  []DrawShape  `json:"shapes"`
	Markers []DrawMarker `json:"markers"`
}

// Snapshot is a consistent copy of the map state.
type Snapshot struct {
	Seq      uint64         `json:"seq"`
	Layers   []DrawLayer    `json:"layers"`
	Overlays []OverlayEntry `json:"overlays"`
}

// Snapshot copies the current map state. The result shares nothing mutable
// with the engine.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Seq:      e.seq,
		Layers:   make([]DrawLayer, 0, e.m.Len()),
		Overlays: e.overlays.Entries(),
	}
	e.m.Each(func(l *Layer) {
		snap.Layers = append(snap.Layers, compileLayer(l))
	})
	return snap
}

// Layer returns a copy of one attached layer.
func (e *Engine) Layer(id string) (DrawLayer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.m.Get(id)
	if !ok {
		return DrawLayer{}, false
	}
	return compileLayer(l), true
}

func compileLayer(l *Layer) DrawLayer {
	dl := DrawLayer{
		ID:      l.ID,
		Name:    l.Name,
		Tag:     l.Tag.String(),
		Slot:    l.Slot,
		Color:   l.Color,
		Shapes:  make([]DrawShape, 0, len(l.Shapes)),
		Markers: make([]DrawMarker, 0, len(l.Markers)),
	}
	for _, s := range l.Shapes {
		dl.Shapes = append(dl.Shapes, DrawShape{
			Geometry: geojson.NewGeometry(s.Geometry),
			Style:    s.Style,
			Tooltip:  s.Tooltip,
		})
	}
	for _, m := range l.Markers {
		dl.Markers = append(dl.Markers, DrawMarker{
			ID:     m.ID,
			LatLng: m.LatLng,
			Icon:   m.Icon,
			Title:  m.Title,
		})
	}
	return dl
}

// Render returns the snapshot as JSON.
func (e *Engine) Render() string {
	data, err := json.Marshal(e.Snapshot())
	if err != nil {
		return `{"layers":[],"overlays":[]}`
	}
	return string(data)
}
