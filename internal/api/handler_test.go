package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/engine"
	"github.com/lakehopper/mapclient/internal/notify"
	"github.com/lakehopper/mapclient/internal/palette"
	"github.com/lakehopper/mapclient/internal/playground"
	"github.com/lakehopper/mapclient/internal/session"
	"github.com/lakehopper/mapclient/internal/transport"
	"github.com/lakehopper/mapclient/internal/viewer"
)

func newTestRouter(t *testing.T) (*mux.Router, *session.Session) {
	t.Helper()
	bus := transport.NewBus()
	playground.New(transport.NewBridge(bus.Backend()))
	s := session.New(uuid.New(), transport.NewBridge(bus.Client()), engine.NewEngine(),
		notify.NewCenter(0), session.NewControl(document.SampleCenter))

	r := mux.NewRouter()
	NewHandler(s).WithPump(bus.Pump).Routes(r.PathPrefix("/api").Subrouter())
	return r, s
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCommandLoadsLayers(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(r, "POST", "/api/commands/map-ready", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(r, "GET", "/api/layers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Layers) != 1 || snap.Layers[0].Name != "Obstacles" {
		t.Fatalf("Expected the obstacles layer, got %+v", snap.Layers)
	}

	rec = do(r, "GET", "/api/layers/"+snap.Layers[0].ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for existing layer, got %d", rec.Code)
	}
	rec = do(r, "GET", "/api/layers/lyr_missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing layer, got %d", rec.Code)
	}
}

func TestImportLayers(t *testing.T) {
	r, s := newTestRouter(t)

	body := `[
		{"type":"LineString","coordinates":[[4.5,50.9],[4.6,51.0]]},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[4.5,50.9]},"properties":{"name":"Depot"}}
	]`
	rec := do(r, "POST", "/api/layers", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if len(created["layers"]) != 2 {
		t.Fatalf("Expected 2 layer ids, got %v", created)
	}

	for i, id := range created["layers"] {
		l, ok := s.Engine().Layer(id)
		if !ok {
			t.Fatalf("Layer %s not found", id)
		}
		if l.Color != palette.Palette[i] {
			t.Errorf("Geometry %d: expected %s, got %s", i, palette.Palette[i], l.Color)
		}
	}
	if n := s.Engine().LayerCount(engine.TagStatic); n != 2 {
		t.Errorf("Expected 2 static layers, got %d", n)
	}

	for _, bad := range []string{`[]`, `{}`, `[{"type":"Circle"}]`} {
		rec = do(r, "POST", "/api/layers", bad)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Body %s: expected 400, got %d", bad, rec.Code)
		}
	}
	if n := s.Engine().LayerCount(engine.TagStatic); n != 2 {
		t.Errorf("Rejected imports must not add layers, got %d", n)
	}
}

func TestUnknownCommand(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(r, "POST", "/api/commands/launch", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestPatchControl(t *testing.T) {
	r, s := newTestRouter(t)

	rec := do(r, "PATCH", "/api/control", `{"visibilityOptimizationMode":"Sweep","maxDistanceInitially":800}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	st := s.Control().Snapshot()
	if st.Mode != session.ModeSweep || st.MaxDistanceInitially != 800 {
		t.Errorf("Unexpected control state %+v", st)
	}

	rec = do(r, "PATCH", "/api/control", `{"visibilityOptimizationMode":"Fastest"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown mode, got %d", rec.Code)
	}
	rec = do(r, "PATCH", "/api/control", `{"maxDistanceAfterCharge":20000}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for out of range distance, got %d", rec.Code)
	}
	rec = do(r, "PATCH", "/api/control", `{`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad body, got %d", rec.Code)
	}

	rec = do(r, "GET", "/api/control", "")
	var got session.ControlState
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Mode != session.ModeSweep || got.MaxDistanceAfterCharge != session.DefaultMaxDistanceAfterCharge {
		t.Errorf("Failed patches must not change state, got %+v", got)
	}
}

func TestMarkerIconAndDebugClear(t *testing.T) {
	r, s := newTestRouter(t)
	do(r, "POST", "/api/commands/map-ready", "")
	do(r, "POST", "/api/commands/visibility-graph", "")

	var markerID string
	for _, l := range s.Engine().Snapshot().Layers {
		if l.Tag == "debug" && len(l.Markers) > 0 {
			markerID = l.Markers[0].ID
		}
	}
	if markerID == "" {
		t.Fatal("Expected debug vertex markers")
	}

	rec := do(r, "GET", "/api/markers/"+markerID+"/icon.svg", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Expected image/svg+xml, got %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "<svg") {
		t.Errorf("Expected svg body, got %q", rec.Body.String())
	}

	rec = do(r, "DELETE", "/api/layers/debug", "")
	var cleared map[string]int
	json.Unmarshal(rec.Body.Bytes(), &cleared)
	if cleared["removed"] != 1 {
		t.Errorf("Expected 1 debug layer removed, got %v", cleared)
	}
	if n := s.Engine().LayerCount(engine.TagDebug); n != 0 {
		t.Errorf("Expected no debug layers, got %d", n)
	}

	rec = do(r, "GET", "/api/overlays", "")
	var overlays []engine.OverlayEntry
	json.Unmarshal(rec.Body.Bytes(), &overlays)
	if len(overlays) != 1 || overlays[0].Name != "Nav graph" {
		t.Errorf("Expected the nav graph overlay, got %+v", overlays)
	}
}

func TestNotifications(t *testing.T) {
	r, _ := newTestRouter(t)
	do(r, "POST", "/api/commands/calc-path", "")

	rec := do(r, "GET", "/api/notifications", "")
	var active []notify.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &active); err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Level != notify.Error {
		t.Fatalf("Expected one error notification, got %+v", active)
	}
	if !strings.Contains(active[0].Title, "Nav graph not loaded yet") {
		t.Errorf("Unexpected title %q", active[0].Title)
	}

	rec = do(r, "DELETE", "/api/notifications/"+active[0].ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	rec = do(r, "DELETE", "/api/notifications/"+active[0].ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second dismiss, got %d", rec.Code)
	}
}

type fakeViewers []viewer.Presence

func (f fakeViewers) Viewers() []viewer.Presence { return f }

func TestListViewers(t *testing.T) {
	_, s := newTestRouter(t)
	r := mux.NewRouter()
	NewHandler(s).WithViewers(fakeViewers{{ClientID: "c1", Subject: "operator"}}).Routes(r)

	rec := do(r, "GET", "/viewers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var got []viewer.Presence
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ClientID != "c1" {
		t.Errorf("Unexpected viewers %+v", got)
	}
}
