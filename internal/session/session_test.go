package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/engine"
	"github.com/lakehopper/mapclient/internal/notify"
	"github.com/lakehopper/mapclient/internal/palette"
	"github.com/lakehopper/mapclient/internal/transport"
)

type harness struct {
	bus     *transport.Bus
	backend *transport.Bridge
	session *Session
	sent    map[string][]json.RawMessage
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bus := transport.NewBus()
	h := &harness{
		bus:     bus,
		backend: transport.NewBridge(bus.Backend()),
		sent:    make(map[string][]json.RawMessage),
	}
	for _, typ := range Commands {
		typ := typ
		h.backend.Listen(typ, func(data json.RawMessage) {
			h.sent[typ] = append(h.sent[typ], data)
		})
	}
	h.session = New(uuid.New(), transport.NewBridge(bus.Client()), engine.NewEngine(),
		notify.NewCenter(0), NewControl(document.SampleCenter))
	return h
}

// push delivers one backend message to the session.
func (h *harness) push(t *testing.T, msgType, data string) {
	t.Helper()
	if err := h.backend.Emit(context.Background(), msgType, json.RawMessage(data)); err != nil {
		t.Fatalf("Emit %s: %v", msgType, err)
	}
	h.bus.Pump()
}

func (h *harness) lastNotification(t *testing.T) notify.Notification {
	t.Helper()
	active := h.session.Notifications().Active()
	if len(active) == 0 {
		t.Fatal("Expected a notification")
	}
	return active[len(active)-1]
}

const lineGeometry = `{"type":"LineString","coordinates":[[4.5,50.9],[4.6,51.0]]}`

func TestNavGraphReplacesSingleton(t *testing.T) {
	h := newHarness(t)
	graph := `{"graph":{"type":"FeatureCollection","features":[{"type":"Feature","geometry":` + lineGeometry + `,"properties":{}}]},"duration":1234}`

	h.push(t, TypeNavGraph, graph)
	h.push(t, TypeNavGraph, graph)

	eng := h.session.Engine()
	if n := eng.LayerCount(engine.TagSingleton); n != 1 {
		t.Errorf("Expected 1 nav graph layer, got %d", n)
	}
	overlays := eng.Overlays()
	if len(overlays) != 1 || overlays[0].Name != "Nav graph" {
		t.Errorf("Expected one Nav graph overlay, got %+v", overlays)
	}
	l, ok := eng.Singleton(engine.SlotNavGraph)
	if !ok {
		t.Fatal("Expected nav graph slot to be occupied")
	}
	if l.Color != palette.ColorFor(1) {
		t.Errorf("Expected nav graph color %s, got %s", palette.ColorFor(1), l.Color)
	}
	if w := l.Shapes[0].Style.Weight; w != navGraphLineThickness {
		t.Errorf("Expected weight %d, got %v", navGraphLineThickness, w)
	}

	n := h.lastNotification(t)
	if n.Level != notify.Info || n.Title != "Nav graph loaded. Took 1.2s." {
		t.Errorf("Unexpected notification %+v", n)
	}
}

func TestShortestPathNull(t *testing.T) {
	h := newHarness(t)
	path := `{"path":{"type":"Feature","geometry":` + lineGeometry + `,"properties":{}},"distance":1530.4}`
	h.push(t, TypeShortestPathCalculated, path)

	before, _ := h.session.Engine().Singleton(engine.SlotShortestPath)
	seq := h.session.Engine().Seq()

	h.push(t, TypeShortestPathCalculated, `null`)

	after, ok := h.session.Engine().Singleton(engine.SlotShortestPath)
	if !ok || after.ID != before.ID {
		t.Errorf("Expected shortest path layer untouched")
	}
	if h.session.Engine().Seq() != seq {
		t.Errorf("Expected no map change for a null path")
	}
	n := h.lastNotification(t)
	if n.Level != notify.Warning || n.Title != "No path found" {
		t.Errorf("Unexpected notification %+v", n)
	}
}

func TestShortestPathReplaces(t *testing.T) {
	h := newHarness(t)
	path := `{"path":{"type":"Feature","geometry":` + lineGeometry + `,"properties":{}},"distance":1530.4}`
	h.push(t, TypeShortestPathCalculated, path)
	h.push(t, TypeShortestPathCalculated, path)

	eng := h.session.Engine()
	if n := eng.LayerCount(engine.TagSingleton); n != 1 {
		t.Errorf("Expected 1 shortest path layer, got %d", n)
	}
	l, _ := eng.Singleton(engine.SlotShortestPath)
	if l.Color != palette.ShortestPath {
		t.Errorf("Expected %s, got %s", palette.ShortestPath, l.Color)
	}
	if n := h.lastNotification(t); n.Title != "Shortest path: 1530 m" {
		t.Errorf("Unexpected notification %q", n.Title)
	}
}

func TestDebugAccumulateAndClear(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.push(t, TypeDebugGeometries, lineGeometry)
	}
	eng := h.session.Engine()
	if n := eng.LayerCount(engine.TagDebug); n != 3 {
		t.Fatalf("Expected 3 debug layers, got %d", n)
	}

	snap := eng.Snapshot()
	for i, l := range snap.Layers {
		if l.Color != palette.Palette[i] {
			t.Errorf("Debug layer %d: expected %s, got %s", i, palette.Palette[i], l.Color)
		}
	}

	if removed := h.session.ClearDebug(); removed != 3 {
		t.Errorf("Expected 3 removed, got %d", removed)
	}
	if n := eng.LayerCount(engine.TagDebug); n != 0 {
		t.Errorf("Expected 0 debug layers, got %d", n)
	}
}

func TestPlannerPathColors(t *testing.T) {
	h := newHarness(t)
	point := `{"type":"Feature","geometry":{"type":"Point","coordinates":[4.5,50.9]},"properties":{}}`
	path := `{"type":"Feature","geometry":` + lineGeometry + `,"properties":{}}`
	legs := "[[" + point + "," + path + "],[" + point + "," + path + "]]"

	h.push(t, TypePlannerPathCalculated, legs)

	snap := h.session.Engine().Snapshot()
	want := []string{palette.Palette[0], palette.Palette[0], palette.Palette[1], palette.Palette[1]}
	if len(snap.Layers) != len(want) {
		t.Fatalf("Expected %d layers, got %d", len(want), len(snap.Layers))
	}
	for i, l := range snap.Layers {
		if l.Color != want[i] || l.Tag != "debug" {
			t.Errorf("Layer %d: expected debug %s, got %s %s", i, want[i], l.Tag, l.Color)
		}
	}
	if n := h.lastNotification(t); n.Title != "2 legs" {
		t.Errorf("Unexpected notification %q", n.Title)
	}
}

func TestStaticLayers(t *testing.T) {
	h := newHarness(t)
	feature := `{"type":"Feature","geometry":{"type":"MultiPolygon","coordinates":[[[[4.5,50.9],[4.6,50.9],[4.6,51.0],[4.5,50.9]]]]},"properties":{"name":"lake"}}`
	h.push(t, TypeObstacles, feature)
	h.push(t, TypeWaters, feature)
	h.push(t, TypeRestrictedAirspace, feature)

	snap := h.session.Engine().Snapshot()
	want := []string{palette.Obstacles, palette.Waters, palette.RestrictedAirspace}
	if len(snap.Layers) != 3 {
		t.Fatalf("Expected 3 layers, got %d", len(snap.Layers))
	}
	for i, l := range snap.Layers {
		if l.Color != want[i] || l.Tag != "static" {
			t.Errorf("Layer %d: expected static %s, got %s %s", i, want[i], l.Tag, l.Color)
		}
	}
	if len(snap.Overlays) != 0 {
		t.Errorf("Static layers must not be registered as overlays")
	}
}

func TestBackendErrorAndInvalidPayload(t *testing.T) {
	h := newHarness(t)
	h.push(t, TypeError, `"Nav graph not loaded yet"`)
	if n := h.lastNotification(t); n.Level != notify.Error || n.Title != "Server error: Nav graph not loaded yet" {
		t.Errorf("Unexpected notification %+v", n)
	}

	h.push(t, TypeObstacles, `{"type":"Bogus"}`)
	n := h.lastNotification(t)
	if n.Level != notify.Error || !strings.HasPrefix(n.Title, "Invalid obstacles message") {
		t.Errorf("Unexpected notification %+v", n)
	}
	if h.session.Engine().LayerCount(engine.TagStatic) != 0 {
		t.Errorf("Expected no layer for an invalid payload")
	}
}

func TestCommandsCarryControlState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ctl := h.session.Control()

	if err := ctl.SetMode(ModeSweep); err != nil {
		t.Fatal(err)
	}
	if err := ctl.SetEnd(document.LatLng{Lat: 51.1, Lng: 4.7}); err != nil {
		t.Fatal(err)
	}
	if err := ctl.SetMaxDistanceInitially(750); err != nil {
		t.Fatal(err)
	}

	for _, cmd := range Commands {
		if err := h.session.Command(ctx, cmd); err != nil {
			t.Fatalf("Command %s: %v", cmd, err)
		}
	}
	h.bus.Pump()

	if got := string(h.sent[TypeMapReady][0]); got != "null" {
		t.Errorf("Expected map-ready with null, got %s", got)
	}
	if got := string(h.sent[TypeVisibilityGraph][0]); got != `{"visibilityOptimizationMode":"Sweep"}` {
		t.Errorf("Unexpected visibility-graph payload %s", got)
	}

	var plan PlanRequest
	if err := json.Unmarshal(h.sent[TypePlan][0], &plan); err != nil {
		t.Fatal(err)
	}
	if plan.MaxDistanceInitially != 750 || plan.MaxDistanceAfterCharge != DefaultMaxDistanceAfterCharge {
		t.Errorf("Unexpected plan distances %+v", plan)
	}
	if plan.Start != document.SampleCenter || plan.End.Lat != 51.1 || plan.Mode != ModeSweep {
		t.Errorf("Unexpected plan %+v", plan)
	}

	var calc CalcPathRequest
	if err := json.Unmarshal(h.sent[TypeCalcPath][0], &calc); err != nil {
		t.Fatal(err)
	}
	if calc.End.Lng != 4.7 || calc.Mode != ModeSweep {
		t.Errorf("Unexpected calc-path %+v", calc)
	}

	if n := h.lastNotification(t); n.Title != "Loading nav graph..." {
		t.Errorf("Expected loading notification, got %q", n.Title)
	}

	if err := h.session.Command(ctx, "self-destruct"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
}
