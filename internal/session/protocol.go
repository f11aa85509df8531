package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lakehopper/mapclient/internal/document"
)

// Client -> backend message types.
const (
	TypeMapReady               = "map-ready"
	TypeVisibilityGraph        = "visibility-graph"
	TypeLoadWaters             = "load-waters"
	TypeLoadRestrictedAirspace = "load-restricted-airspace"
	TypeCalcPath               = "calc-path"
	TypePlan                   = "plan"
)

// Backend -> client message types.
const (
	TypeObstacles              = "obstacles"
	TypeWaters                 = "waters"
	TypeRestrictedAirspace     = "restricted-airspace"
	TypeNavGraph               = "nav-graph"
	TypeDebugGeometries        = "debug-geometries"
	TypeShortestPathCalculated = "shortest-path-calculated"
	TypePlannerPathCalculated  = "planner-path-calculated"
	TypeError                  = "error"
)

// Mode selects the backend's visibility graph algorithm.
type Mode string

const (
	ModeNaive          Mode = "Naive"
	ModeSweep          Mode = "Sweep"
	ModeOptimizedSweep Mode = "OptimizedSweep"
)

var ErrUnknownMode = errors.New("unknown visibility optimization mode")

// Modes lists the accepted modes in display order.
var Modes = []Mode{ModeNaive, ModeSweep, ModeOptimizedSweep}

// ParseMode validates s.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

type VisibilityGraphRequest struct {
	Mode Mode `json:"visibilityOptimizationMode"`
}

type CalcPathRequest struct {
	Start document.LatLng `json:"start"`
	End   document.LatLng `json:"end"`
	Mode  Mode            `json:"visibilityOptimizationMode"`
}

type PlanRequest struct {
	Start                  document.LatLng `json:"start"`
	End                    document.LatLng `json:"end"`
	MaxDistanceInitially   float64         `json:"maxDistanceInitially"`
	MaxDistanceAfterCharge float64         `json:"maxDistanceAfterCharge"`
	Mode                   Mode            `json:"visibilityOptimizationMode"`
}

// NavGraphPayload carries a freshly computed graph. Duration is in
// milliseconds.
type NavGraphPayload struct {
	Graph    json.RawMessage `json:"graph"`
	Duration float64         `json:"duration"`
}

type ShortestPathPayload struct {
	Path     json.RawMessage `json:"path"`
	Distance float64         `json:"distance"`
}

// decodeLegs parses the planner result: a list of [lastReachablePoint, path]
// pairs.
func decodeLegs(data json.RawMessage) ([][2]document.Object, error) {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode legs: %w", err)
	}
	legs := make([][2]document.Object, 0, len(raw))
	for i, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("leg %d: expected 2 objects, got %d", i, len(pair))
		}
		var leg [2]document.Object
		for j, part := range pair {
			obj, err := document.Decode(part)
			if err != nil {
				return nil, fmt.Errorf("leg %d: %w", i, err)
			}
			leg[j] = obj
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

func isNull(data json.RawMessage) bool {
	return len(data) == 0 || string(data) == "null"
}
