package session

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/engine"
	"github.com/lakehopper/mapclient/internal/palette"
)

const navGraphLineThickness = 3

func (s *Session) registerHandlers() {
	s.handle(TypeObstacles, s.staticLayer("Obstacles", palette.Obstacles))
	s.handle(TypeWaters, s.staticLayer("Waters", palette.Waters))
	s.handle(TypeRestrictedAirspace, s.staticLayer("Restricted airspace", palette.RestrictedAirspace))
	s.handle(TypeNavGraph, s.onNavGraph)
	s.handle(TypeDebugGeometries, s.onDebugGeometries)
	s.handle(TypeShortestPathCalculated, s.onShortestPath)
	s.handle(TypePlannerPathCalculated, s.onPlannerPath)
	s.handle(TypeError, s.onError)
}

// handle registers fn for msgType. A payload fn cannot decode becomes an
// error notification; the session keeps running.
func (s *Session) handle(msgType string, fn func(data json.RawMessage) error) {
	s.transport.Listen(msgType, func(data json.RawMessage) {
		if err := fn(data); err != nil {
			slog.Error("handle message", "type", msgType, "session", s.ID, "error", err)
			s.notes.Error(fmt.Sprintf("Invalid %s message: %v", msgType, err))
		}
	})
}

func (s *Session) staticLayer(name, color string) func(json.RawMessage) error {
	return func(data json.RawMessage) error {
		obj, err := document.Decode(data)
		if err != nil {
			return err
		}
		s.engine.AddStatic(name, obj, color, engine.DefaultLineThickness)
		return nil
	}
}

func (s *Session) onNavGraph(data json.RawMessage) error {
	var p NavGraphPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode nav graph: %w", err)
	}
	graph, err := document.Decode(p.Graph)
	if err != nil {
		return fmt.Errorf("decode nav graph: %w", err)
	}
	l := s.engine.ReplaceSingleton(engine.SlotNavGraph, graph, palette.ColorFor(1), navGraphLineThickness)
	slog.Info("nav graph loaded", "layer", l.ID, "duration_ms", p.Duration)
	s.notes.Info(fmt.Sprintf("Nav graph loaded. Took %.1fs.", p.Duration/1000))
	return nil
}

func (s *Session) onDebugGeometries(data json.RawMessage) error {
	obj, err := document.Decode(data)
	if err != nil {
		return err
	}
	s.engine.AddDebug(obj)
	return nil
}

func (s *Session) onShortestPath(data json.RawMessage) error {
	if isNull(data) {
		s.notes.Warning("No path found")
		return nil
	}
	var p ShortestPathPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode shortest path: %w", err)
	}
	path, err := document.Decode(p.Path)
	if err != nil {
		return fmt.Errorf("decode shortest path: %w", err)
	}
	s.engine.ReplaceSingleton(engine.SlotShortestPath, path, palette.ShortestPath, engine.DefaultLineThickness)
	s.notes.Info(fmt.Sprintf("Shortest path: %.0f m", p.Distance))
	return nil
}

func (s *Session) onPlannerPath(data json.RawMessage) error {
	pairs, err := decodeLegs(data)
	if err != nil {
		return err
	}
	s.notes.Info(fmt.Sprintf("%d legs", len(pairs)))

	legs := make([]engine.Leg, len(pairs))
	for i, pair := range pairs {
		legs[i] = engine.Leg{LastReachablePoint: pair[0], Path: pair[1]}
	}
	s.engine.AddDebugLegs(legs)
	return nil
}

func (s *Session) onError(data json.RawMessage) error {
	var msg string
	if err := json.Unmarshal(data, &msg); err != nil {
		msg = string(data)
	}
	s.notes.Error("Server error: " + msg)
	return nil
}
