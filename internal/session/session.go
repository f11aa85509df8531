// Package session connects the map engine to the planning backend: it turns
// backend messages into layer changes and operator actions into commands.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lakehopper/mapclient/internal/engine"
	"github.com/lakehopper/mapclient/internal/notify"
	"github.com/lakehopper/mapclient/internal/transport"
)

var ErrUnknownCommand = errors.New("unknown command")

// Commands are the operator actions accepted by Command, by name.
var Commands = []string{
	TypeMapReady,
	TypeVisibilityGraph,
	TypeLoadWaters,
	TypeLoadRestrictedAirspace,
	TypeCalcPath,
	TypePlan,
}

type Session struct {
	ID uuid.UUID

	transport transport.Transport
	engine    *engine.Engine
	notes     *notify.Center
	control   *Control
}

// New registers the backend message handlers on t. Handlers run on t's
// delivery goroutine.
func New(id uuid.UUID, t transport.Transport, eng *engine.Engine, notes *notify.Center, control *Control) *Session {
	s := &Session{
		ID:        id,
		transport: t,
		engine:    eng,
		notes:     notes,
		control:   control,
	}
	s.registerHandlers()
	return s
}

func (s *Session) Engine() *engine.Engine {
	return s.engine
}

func (s *Session) Notifications() *notify.Center {
	return s.notes
}

func (s *Session) Control() *Control {
	return s.control
}

// Start tells the backend the map is ready to receive layers.
func (s *Session) Start(ctx context.Context) error {
	slog.Info("session started", "session", s.ID)
	return s.emit(ctx, TypeMapReady, nil)
}

// RequestNavGraph asks the backend for a visibility graph in the current mode.
func (s *Session) RequestNavGraph(ctx context.Context) error {
	s.notes.Info("Loading nav graph...")
	return s.emit(ctx, TypeVisibilityGraph, VisibilityGraphRequest{Mode: s.control.Snapshot().Mode})
}

func (s *Session) LoadWaters(ctx context.Context) error {
	return s.emit(ctx, TypeLoadWaters, nil)
}

func (s *Session) LoadRestrictedAirspace(ctx context.Context) error {
	return s.emit(ctx, TypeLoadRestrictedAirspace, nil)
}

// CalcPath requests a direct path between the operator markers.
func (s *Session) CalcPath(ctx context.Context) error {
	st := s.control.Snapshot()
	return s.emit(ctx, TypeCalcPath, CalcPathRequest{
		Start: st.Start,
		End:   st.End,
		Mode:  st.Mode,
	})
}

// Plan requests a multi-leg plan with the current distance limits.
func (s *Session) Plan(ctx context.Context) error {
	st := s.control.Snapshot()
	return s.emit(ctx, TypePlan, PlanRequest{
		Start:                  st.Start,
		End:                    st.End,
		MaxDistanceInitially:   st.MaxDistanceInitially,
		MaxDistanceAfterCharge: st.MaxDistanceAfterCharge,
		Mode:                   st.Mode,
	})
}

// ClearDebug removes every debug layer from the map.
func (s *Session) ClearDebug() int {
	return s.engine.ClearDebug()
}

// Command runs an operator action by its message name.
func (s *Session) Command(ctx context.Context, name string) error {
	switch name {
	case TypeMapReady:
		return s.Start(ctx)
	case TypeVisibilityGraph:
		return s.RequestNavGraph(ctx)
	case TypeLoadWaters:
		return s.LoadWaters(ctx)
	case TypeLoadRestrictedAirspace:
		return s.LoadRestrictedAirspace(ctx)
	case TypeCalcPath:
		return s.CalcPath(ctx)
	case TypePlan:
		return s.Plan(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

func (s *Session) emit(ctx context.Context, msgType string, data any) error {
	if err := s.transport.Emit(ctx, msgType, data); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}
