package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dhconnelly/rtreego"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/typeid"
)

// markerTolerance is the half-size of the box each marker occupies in the
// R-tree. It only narrows candidates; coincidence is decided by exact
// coordinate equality.
const markerTolerance = 1e-9

// Marker is a rendered point.
type Marker struct {
	ID      string
	LayerID string
	LatLng  document.LatLng
	Icon    Icon
	Title   string
}

// markerRecord is the identity kept for every rendered marker: its own
// color and the labels of every point rendered at its coordinate.
type markerRecord struct {
	marker *Marker
	color  string
	labels []string
	seq    uint64
}

// Bounds implements rtreego.Spatial.
func (r *markerRecord) Bounds() rtreego.Rect {
	point := rtreego.Point{r.marker.LatLng.Lng - markerTolerance, r.marker.LatLng.Lat - markerTolerance}
	lengths := []float64{2 * markerTolerance, 2 * markerTolerance}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}

// MarkerRegistry tracks every rendered marker and repartitions the icons of
// coincident markers whenever a new point lands on the same coordinate.
type MarkerRegistry struct {
	tree    *rtreego.Rtree
	records map[string]*markerRecord
	nextSeq uint64
}

// NewMarkerRegistry creates an empty registry.
func NewMarkerRegistry() *MarkerRegistry {
	return &MarkerRegistry{
		tree:    rtreego.NewTree(2, 25, 50),
		records: make(map[string]*markerRecord),
	}
}

// Place renders a new marker for layerID at ll. Markers already at exactly
// the same coordinate keep their discovery order and get their icons redrawn
// as n-slice pies; the new marker takes the last slice.
func (r *MarkerRegistry) Place(layerID string, ll document.LatLng, label, color string) *Marker {
	existing := r.coincident(ll)
	n := len(existing) + 1

	for i, rec := range existing {
		rec.labels = append(rec.labels, label)
		rec.marker.Icon = PieIcon(rec.color, n, i)
		rec.marker.Title = markerTitle(ll, rec.labels)
	}

	labels := []string{label}
	m := &Marker{
		ID:      typeid.NewMarkerID(),
		LayerID: layerID,
		LatLng:  ll,
		Icon:    PieIcon(color, n, n-1),
		Title:   markerTitle(ll, labels),
	}
	rec := &markerRecord{marker: m, color: color, labels: labels, seq: r.nextSeq}
	r.nextSeq++
	r.records[m.ID] = rec
	r.tree.Insert(rec)
	return m
}

// coincident returns the records at exactly ll in discovery order.
func (r *MarkerRegistry) coincident(ll document.LatLng) []*markerRecord {
	query := rtreego.Point{ll.Lng - markerTolerance, ll.Lat - markerTolerance}
	rect, err := rtreego.NewRect(query, []float64{2 * markerTolerance, 2 * markerTolerance})
	if err != nil {
		return nil
	}

	var out []*markerRecord
	for _, s := range r.tree.SearchIntersect(rect) {
		rec := s.(*markerRecord)
		if rec.marker.LatLng.Lat == ll.Lat && rec.marker.LatLng.Lng == ll.Lng {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// RemoveLayer forgets every marker belonging to layerID. Remaining
// coincident markers keep their icons and labels.
func (r *MarkerRegistry) RemoveLayer(layerID string) int {
	removed := 0
	for id, rec := range r.records {
		if rec.marker.LayerID != layerID {
			continue
		}
		r.tree.Delete(rec)
		delete(r.records, id)
		removed++
	}
	return removed
}

// Lookup returns the marker with the given ID.
func (r *MarkerRegistry) Lookup(id string) (*Marker, bool) {
	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return rec.marker, true
}

// Labels returns a copy of the labels accumulated at a marker.
func (r *MarkerRegistry) Labels(id string) []string {
	rec, ok := r.records[id]
	if !ok {
		return nil
	}
	return append([]string(nil), rec.labels...)
}

// Len returns the number of registered markers.
func (r *MarkerRegistry) Len() int {
	return len(r.records)
}

func markerTitle(ll document.LatLng, labels []string) string {
	return fmt.Sprintf("%.2f, %.2f: %s", ll.Lat, ll.Lng, strings.Join(labels, ", "))
}
