package engine

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/lakehopper/mapclient/internal/document"
)

func namedFeature(name string, g orb.Geometry) *document.Feature {
	f := geojson.NewFeature(g)
	f.Properties["name"] = name
	return document.NewFeature(f)
}

func TestBuildGeometryCollectionFeatureLabelsPoints(t *testing.T) {
	f := NewFactory(NewMarkerRegistry())
	feat := namedFeature("route", orb.Collection{
		orb.Point{4.5, 51.0},
		orb.LineString{{4.5, 51.0}, {4.6, 51.1}},
		orb.Point{4.6, 51.1},
	})

	l := f.Build(feat, "#004d61", DefaultLineThickness)

	if len(l.Markers) != 2 {
		t.Fatalf("Expected 2 markers, got %d", len(l.Markers))
	}
	if l.Markers[0].Title != "51.00, 4.50: route: 0" {
		t.Errorf("Unexpected first title %q", l.Markers[0].Title)
	}
	if l.Markers[1].Title != "51.10, 4.60: route: 2" {
		t.Errorf("Unexpected second title %q", l.Markers[1].Title)
	}

	if len(l.Shapes) != 1 {
		t.Fatalf("Expected 1 shape, got %d", len(l.Shapes))
	}
	s := l.Shapes[0]
	if s.Style.Weight != DefaultLineThickness {
		t.Errorf("Expected thick stroke for collection with a LineString, got %v", s.Style.Weight)
	}
	if s.Tooltip != "route" {
		t.Errorf("Expected tooltip route, got %q", s.Tooltip)
	}
	if s.Style.Color != "#004d61" || s.Style.FillColor != "#004d61" {
		t.Errorf("Unexpected style %+v", s.Style)
	}
}

func TestBuildWeights(t *testing.T) {
	f := NewFactory(NewMarkerRegistry())

	line := f.Build(&document.Geometry{Geometry: orb.LineString{{0, 0}, {1, 1}}}, "#111111", 5)
	if got := line.Shapes[0].Style.Weight; got != 5 {
		t.Errorf("LineString: expected weight 5, got %v", got)
	}

	poly := f.Build(&document.Geometry{Geometry: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, "#111111", 5)
	if got := poly.Shapes[0].Style.Weight; got != DefaultWeight {
		t.Errorf("Polygon: expected weight %d, got %v", DefaultWeight, got)
	}

	multi := f.Build(&document.Geometry{Geometry: orb.MultiLineString{{{0, 0}, {1, 1}}}}, "#111111", 5)
	if got := multi.Shapes[0].Style.Weight; got != DefaultWeight {
		t.Errorf("MultiLineString: expected weight %d, got %v", DefaultWeight, got)
	}
}

func TestBuildFeatureCollection(t *testing.T) {
	f := NewFactory(NewMarkerRegistry())
	fc := &document.FeatureCollection{Features: []*document.Feature{
		namedFeature("a", orb.Point{1, 1}),
		namedFeature("b", orb.LineString{{0, 0}, {2, 2}}),
		namedFeature("c", orb.MultiPoint{{3, 3}, {4, 4}}),
	}}

	l := f.Build(fc, "#FFBA49", DefaultLineThickness)
	if len(l.Markers) != 3 {
		t.Errorf("Expected 3 markers, got %d", len(l.Markers))
	}
	if len(l.Shapes) != 1 {
		t.Errorf("Expected 1 shape, got %d", len(l.Shapes))
	}
	if l.Markers[0].Title != "1.00, 1.00: a" {
		t.Errorf("Expected point without index to use the feature name, got %q", l.Markers[0].Title)
	}
	for _, m := range l.Markers {
		if m.LayerID != l.ID {
			t.Errorf("Marker %s belongs to %s, expected %s", m.ID, m.LayerID, l.ID)
		}
		if m.Icon.Color != "#FFBA49" {
			t.Errorf("Expected marker color #FFBA49, got %s", m.Icon.Color)
		}
	}
}

func TestBuildCoincidentPointsWithinOneCollection(t *testing.T) {
	f := NewFactory(NewMarkerRegistry())
	feat := namedFeature("loop", orb.Collection{
		orb.Point{2, 2},
		orb.Point{2, 2},
	})

	l := f.Build(feat, "#004d61", DefaultLineThickness)
	if len(l.Markers) != 2 {
		t.Fatalf("Expected 2 markers, got %d", len(l.Markers))
	}
	for i, m := range l.Markers {
		if m.Icon.Slices != 2 || m.Icon.Slice != i {
			t.Errorf("Marker %d: expected slice %d of 2, got %d of %d", i, i, m.Icon.Slice, m.Icon.Slices)
		}
	}
	if l.Markers[0].Title != "2.00, 2.00: loop: 0, loop: 1" {
		t.Errorf("Unexpected title %q", l.Markers[0].Title)
	}
}

func TestBuildBareGeometryCollection(t *testing.T) {
	f := NewFactory(NewMarkerRegistry())
	gc := &document.GeometryCollection{Geometries: orb.Collection{
		orb.Point{5, 5},
		orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
	}}

	l := f.Build(gc, "#C2E812", DefaultLineThickness)
	if len(l.Markers) != 1 || len(l.Shapes) != 1 {
		t.Errorf("Expected 1 marker and 1 shape, got %d and %d", len(l.Markers), len(l.Shapes))
	}
	if l.Shapes[0].Tooltip != "" {
		t.Errorf("Expected no tooltip, got %q", l.Shapes[0].Tooltip)
	}
}
