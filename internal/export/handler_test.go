package export

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/engine"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.NewEngine()

	obstacles := document.NewFeature(document.SampleObstacles())
	eng.AddStatic("Obstacles", obstacles, "#3388ff", 1)

	debug := document.NewFeature(geojson.NewFeature(orb.Collection{
		orb.Point{4.5, 50.9},
		orb.LineString{{4.5, 50.9}, {4.6, 51.0}},
	}))
	eng.AddDebug(debug)
	return eng
}

func TestFeatureCollection(t *testing.T) {
	eng := testEngine(t)
	fc := FeatureCollection(eng.Snapshot())

	var shapes, markers int
	for _, f := range fc.Features {
		if f.Properties["layer"] == nil || f.Properties["tag"] == nil {
			t.Errorf("Feature missing layer properties: %v", f.Properties)
		}
		if _, ok := f.Geometry.(orb.Point); ok {
			markers++
			if f.ID == nil || f.Properties["title"] == "" {
				t.Errorf("Marker feature missing id or title: %+v", f)
			}
			continue
		}
		shapes++
		if f.Properties["weight"] == nil || f.Properties["color"] == "" {
			t.Errorf("Shape feature missing style: %v", f.Properties)
		}
	}
	if markers != 1 {
		t.Errorf("Expected 1 marker feature, got %d", markers)
	}
	if shapes != 2 {
		t.Errorf("Expected 2 shape features, got %d", shapes)
	}
	if fc.Features[0].Properties["name"] != "Obstacles" {
		t.Errorf("Expected painter's order, got first %v", fc.Features[0].Properties["name"])
	}
}

func TestGeoJSONHandler(t *testing.T) {
	h := NewHandler(testEngine(t))

	rec := httptest.NewRecorder()
	h.GeoJSON(rec, httptest.NewRequest("GET", "/export/geojson?tag=debug&download=my%20plan", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("Unexpected Content-Type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="my-plan.geojson"` {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("Expected 2 debug features, got %d", len(fc.Features))
	}
	for _, f := range fc.Features {
		if f.Properties["tag"] != "debug" {
			t.Errorf("Expected only debug features, got tag %v", f.Properties["tag"])
		}
	}
}
