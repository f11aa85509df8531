package engine

import (
	"github.com/paulmach/orb"

	"github.com/lakehopper/mapclient/internal/document"
)

// Tag classifies how a layer behaves over the lifetime of a session.
type Tag int

const (
	// TagStatic layers (obstacles, waters, ...) accumulate and are never replaced.
	TagStatic Tag = iota
	// TagSingleton layers occupy a named slot; a new one replaces the old one.
	TagSingleton
	// TagDebug layers accumulate until cleared in bulk.
	TagDebug
)

func (t Tag) String() string {
	switch t {
	case TagStatic:
		return "static"
	case TagSingleton:
		return "singleton"
	case TagDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// Style is the path styling applied to a feature's shapes.
type Style struct {
	Color     string  `json:"color"`
	FillColor string  `json:"fillColor"`
	Weight    float64 `json:"weight"`
}

// Shape is the non-point part of one feature.
type Shape struct {
	Geometry orb.Geometry
	Style    Style
	Tooltip  string
}

// Layer is one rendered GeoJSON object: a composite of shapes and markers.
type Layer struct {
	ID      string
	Name    string
	Tag     Tag
	Slot    string // slot key for singleton layers
	Color   string
	Shapes  []*Shape
	Markers []*Marker
	Source  document.Object
}

// Map is the ordered set of layers currently attached to the map.
type Map struct {
	layers []*Layer
	byID   map[string]*Layer
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{byID: make(map[string]*Layer)}
}

// Add attaches l on top of the existing layers. Adding an attached layer is a no-op.
func (m *Map) Add(l *Layer) {
	if _, ok := m.byID[l.ID]; ok {
		return
	}
	m.layers = append(m.layers, l)
	m.byID[l.ID] = l
}

// Remove detaches the layer with the given ID.
func (m *Map) Remove(id string) bool {
	if _, ok := m.byID[id]; !ok {
		return false
	}
	delete(m.byID, id)
	for i, l := range m.layers {
		if l.ID == id {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			break
		}
	}
	return true
}

// Get returns an attached layer.
func (m *Map) Get(id string) (*Layer, bool) {
	l, ok := m.byID[id]
	return l, ok
}

// Each calls fn for every attached layer in attach order.
func (m *Map) Each(fn func(*Layer)) {
	for _, l := range m.layers {
		fn(l)
	}
}

// Count returns the number of attached layers with the given tag.
func (m *Map) Count(tag Tag) int {
	n := 0
	for _, l := range m.layers {
		if l.Tag == tag {
			n++
		}
	}
	return n
}

// Len returns the number of attached layers.
func (m *Map) Len() int {
	return len(m.layers)
}
