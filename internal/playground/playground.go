// Package playground is an in-process stand-in for the planning backend. It
// answers every client message with sample data so the map client can be
// run and tested without a planner.
package playground

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/session"
	"github.com/lakehopper/mapclient/internal/transport"
)

// MaxLegs bounds the number of legs a plan may produce.
const MaxLegs = 64

// ErrNoGraph is reported to the client when it asks for a path first.
var ErrNoGraph = errors.New("Nav graph not loaded yet. Please load the nav graph first.")

// Backend answers client messages on a transport.
type Backend struct {
	t         transport.Transport
	obstacles orb.MultiPolygon

	mu    sync.Mutex
	graph *geojson.FeatureCollection
}

// New attaches a backend to t, usually the backend end of a transport.Bus.
func New(t transport.Transport) *Backend {
	obstacles, _ := document.SampleObstacles().Geometry.(orb.MultiPolygon)
	b := &Backend{t: t, obstacles: obstacles}

	b.t.Listen(session.TypeMapReady, b.handle(b.onMapReady))
	b.t.Listen(session.TypeLoadWaters, b.handle(b.onLoadWaters))
	b.t.Listen(session.TypeLoadRestrictedAirspace, b.handle(b.onLoadRestrictedAirspace))
	b.t.Listen(session.TypeVisibilityGraph, b.handle(b.onVisibilityGraph))
	b.t.Listen(session.TypeCalcPath, b.handle(b.onCalcPath))
	b.t.Listen(session.TypePlan, b.handle(b.onPlan))
	return b
}

// handle turns handler failures into error messages for the client.
func (b *Backend) handle(fn func(ctx context.Context, data json.RawMessage) error) transport.Handler {
	return func(data json.RawMessage) {
		ctx := context.Background()
		if err := fn(ctx, data); err != nil {
			slog.Warn("playground request failed", "error", err)
			if emitErr := b.t.Emit(ctx, session.TypeError, err.Error()); emitErr != nil {
				slog.Error("playground emit failed", "error", emitErr)
			}
		}
	}
}

func (b *Backend) onMapReady(ctx context.Context, _ json.RawMessage) error {
	return b.t.Emit(ctx, session.TypeObstacles, document.SampleObstacles())
}

func (b *Backend) onLoadWaters(ctx context.Context, _ json.RawMessage) error {
	return b.t.Emit(ctx, session.TypeWaters, document.SampleWaters())
}

func (b *Backend) onLoadRestrictedAirspace(ctx context.Context, _ json.RawMessage) error {
	return b.t.Emit(ctx, session.TypeRestrictedAirspace, document.SampleRestrictedAirspace())
}

func (b *Backend) onVisibilityGraph(ctx context.Context, data json.RawMessage) error {
	var req session.VisibilityGraphRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("invalid visibility-graph request: %w", err)
	}
	if _, err := session.ParseMode(string(req.Mode)); err != nil {
		return err
	}

	start := time.Now()
	vertices := b.vertices()

	debug := geojson.NewFeature(orb.Collection(pointsOf(vertices)))
	debug.Properties["name"] = "vertices"
	if err := b.t.Emit(ctx, session.TypeDebugGeometries, debug); err != nil {
		return err
	}

	graph := visibilityGraph(vertices, b.obstacles)
	b.mu.Lock()
	b.graph = graph
	b.mu.Unlock()

	slog.Info("playground nav graph built", "mode", req.Mode, "vertices", len(vertices), "edges", len(graph.Features))
	return b.t.Emit(ctx, session.TypeNavGraph, struct {
		Graph    *geojson.FeatureCollection `json:"graph"`
		Duration int64                      `json:"duration"`
	}{graph, time.Since(start).Milliseconds()})
}

func (b *Backend) onCalcPath(ctx context.Context, data json.RawMessage) error {
	var req session.CalcPathRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("invalid calc-path request: %w", err)
	}
	if !b.graphLoaded() {
		return ErrNoGraph
	}

	start, end := req.Start.Point(), req.End.Point()
	if b.blocked(start) || b.blocked(end) {
		return b.t.Emit(ctx, session.TypeShortestPathCalculated, nil)
	}

	path := geojson.NewFeature(orb.LineString{start, end})
	path.Properties["name"] = "shortest path"
	return b.t.Emit(ctx, session.TypeShortestPathCalculated, struct {
		Path     *geojson.Feature `json:"path"`
		Distance float64          `json:"distance"`
	}{path, geo.Distance(start, end)})
}

func (b *Backend) onPlan(ctx context.Context, data json.RawMessage) error {
	var req session.PlanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("invalid plan request: %w", err)
	}
	if !b.graphLoaded() {
		return ErrNoGraph
	}

	legs, err := planLegs(req.Start.Point(), req.End.Point(), req.MaxDistanceInitially, req.MaxDistanceAfterCharge)
	if err != nil {
		return err
	}
	return b.t.Emit(ctx, session.TypePlannerPathCalculated, legs)
}

func (b *Backend) graphLoaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.graph != nil
}

// blocked reports whether p lies inside an obstacle.
func (b *Backend) blocked(p orb.Point) bool {
	return planar.MultiPolygonContains(b.obstacles, p)
}

// vertices returns every obstacle corner, without the closing duplicates.
func (b *Backend) vertices() []orb.Point {
	var out []orb.Point
	for _, poly := range b.obstacles {
		for _, ring := range poly {
			if len(ring) > 1 && ring.Closed() {
				ring = ring[:len(ring)-1]
			}
			out = append(out, ring...)
		}
	}
	return out
}

func pointsOf(ps []orb.Point) []orb.Geometry {
	out := make([]orb.Geometry, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}

// visibilityGraph connects every pair of vertices whose connecting segment
// does not pass through an obstacle. Segments are sampled, which is enough
// for sample data.
func visibilityGraph(vertices []orb.Point, obstacles orb.MultiPolygon) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := 0; i < len(vertices); i++ {
		for j := i + 1; j < len(vertices); j++ {
			if !visible(vertices[i], vertices[j], obstacles) {
				continue
			}
			f := geojson.NewFeature(orb.LineString{vertices[i], vertices[j]})
			f.Properties["name"] = fmt.Sprintf("edge %d-%d", i, j)
			f.Properties["distance"] = geo.Distance(vertices[i], vertices[j])
			fc.Append(f)
		}
	}
	return fc
}

const segmentSamples = 16

func visible(a, b orb.Point, obstacles orb.MultiPolygon) bool {
	for k := 1; k < segmentSamples; k++ {
		t := float64(k) / segmentSamples
		p := orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
		if planar.MultiPolygonContains(obstacles, p) {
			return false
		}
	}
	return true
}

// planLegs walks the great circle from start to end, charging after each
// leg. Each leg is a [last reachable point, path] pair of features.
func planLegs(start, end orb.Point, maxInitially, maxAfterCharge float64) ([][2]*geojson.Feature, error) {
	if maxInitially <= 0 || maxAfterCharge <= 0 {
		return nil, fmt.Errorf("max distances must be positive, got %v and %v", maxInitially, maxAfterCharge)
	}

	var legs [][2]*geojson.Feature
	from := start
	reach := maxInitially
	for {
		if len(legs) == MaxLegs {
			return nil, fmt.Errorf("plan needs more than %d legs", MaxLegs)
		}

		to := end
		remaining := geo.Distance(from, end)
		if remaining > reach {
			to = geo.PointAtBearingAndDistance(from, geo.Bearing(from, end), reach)
		}

		n := len(legs)
		point := geojson.NewFeature(to)
		point.Properties["name"] = fmt.Sprintf("leg %d", n)
		path := geojson.NewFeature(orb.LineString{from, to})
		path.Properties["name"] = fmt.Sprintf("leg %d path", n)
		legs = append(legs, [2]*geojson.Feature{point, path})

		if remaining <= reach {
			return legs, nil
		}
		from = to
		reach = maxAfterCharge
	}
}
