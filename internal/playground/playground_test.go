package playground

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/engine"
	"github.com/lakehopper/mapclient/internal/notify"
	"github.com/lakehopper/mapclient/internal/session"
	"github.com/lakehopper/mapclient/internal/transport"
)

func newPlayground(t *testing.T) (*session.Session, *transport.Bus) {
	t.Helper()
	bus := transport.NewBus()
	New(transport.NewBridge(bus.Backend()))
	s := session.New(uuid.New(), transport.NewBridge(bus.Client()), engine.NewEngine(),
		notify.NewCenter(0), session.NewControl(document.SampleCenter))
	return s, bus
}

func lastTitle(s *session.Session) string {
	active := s.Notifications().Active()
	if len(active) == 0 {
		return ""
	}
	return active[len(active)-1].Title
}

func TestPlaygroundSession(t *testing.T) {
	s, bus := newPlayground(t)
	ctx := context.Background()
	eng := s.Engine()

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	bus.Pump()
	if n := eng.LayerCount(engine.TagStatic); n != 1 {
		t.Fatalf("Expected obstacles layer after map-ready, got %d static layers", n)
	}

	s.LoadWaters(ctx)
	s.LoadRestrictedAirspace(ctx)
	bus.Pump()
	if n := eng.LayerCount(engine.TagStatic); n != 3 {
		t.Errorf("Expected 3 static layers, got %d", n)
	}

	s.CalcPath(ctx)
	bus.Pump()
	if got, want := lastTitle(s), "Server error: "+ErrNoGraph.Error(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	s.RequestNavGraph(ctx)
	bus.Pump()
	if n := eng.LayerCount(engine.TagDebug); n != 1 {
		t.Errorf("Expected vertices debug layer, got %d", n)
	}
	graph, ok := eng.Singleton(engine.SlotNavGraph)
	if !ok {
		t.Fatal("Expected nav graph layer")
	}
	if len(graph.Shapes) == 0 {
		t.Errorf("Expected nav graph edges")
	}

	s.CalcPath(ctx)
	bus.Pump()
	if _, ok := eng.Singleton(engine.SlotShortestPath); !ok {
		t.Errorf("Expected shortest path layer")
	}

	// Inside the second sample obstacle.
	blocked := document.LatLng{Lat: document.SampleCenter.Lat - 0.001, Lng: document.SampleCenter.Lng + 0.003}
	if err := s.Control().SetStart(blocked); err != nil {
		t.Fatal(err)
	}
	s.CalcPath(ctx)
	bus.Pump()
	if got := lastTitle(s); got != "No path found" {
		t.Errorf("Expected No path found, got %q", got)
	}

	s.Control().SetStart(document.SampleCenter)
	s.Control().SetEnd(document.LatLng{Lat: document.SampleCenter.Lat, Lng: document.SampleCenter.Lng + 0.05})
	s.Plan(ctx)
	bus.Pump()
	debug := eng.LayerCount(engine.TagDebug)
	if debug < 5 || (debug-1)%2 != 0 {
		t.Errorf("Expected vertices layer plus two layers per leg, got %d debug layers", debug)
	}
}

func TestPlanLegs(t *testing.T) {
	start := orb.Point{4.52, 50.98}
	end := orb.Point{4.60, 50.98}
	total := geo.Distance(start, end)

	legs, err := planLegs(start, end, 600, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(legs) < 2 {
		t.Fatalf("Expected several legs for %.0f m, got %d", total, len(legs))
	}

	last := legs[len(legs)-1][0].Geometry.(orb.Point)
	if last != end {
		t.Errorf("Expected last leg to reach %v, got %v", end, last)
	}

	for i, leg := range legs {
		path := leg[1].Geometry.(orb.LineString)
		limit := 1000.0
		if i == 0 {
			limit = 600
		}
		if d := geo.Distance(path[0], path[1]); d > limit+1 {
			t.Errorf("Leg %d: %.1f m exceeds %v", i, d, limit)
		}
	}
}

func TestPlanLegsRejectsZeroRange(t *testing.T) {
	if _, err := planLegs(orb.Point{0, 0}, orb.Point{1, 1}, 0, 1000); err == nil {
		t.Error("Expected error for zero initial range")
	}
}

func TestPlanLegsCapped(t *testing.T) {
	if _, err := planLegs(orb.Point{0, 0}, orb.Point{10, 10}, 1, 1); err == nil {
		t.Error("Expected error when the plan needs too many legs")
	}
}
