// Package replay rebuilds the map of a recorded session from its journal.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/engine"
	"github.com/lakehopper/mapclient/internal/journal"
	"github.com/lakehopper/mapclient/internal/notify"
	"github.com/lakehopper/mapclient/internal/session"
	"github.com/lakehopper/mapclient/internal/transport"
)

var ErrNotFound = errors.New("session not found")

// Source is where recorded sessions come from; *journal.Store in production.
type Source interface {
	Sessions(ctx context.Context) ([]journal.SessionSummary, error)
	Replay(ctx context.Context, sessionID uuid.UUID, fn func(journal.Entry) error) error
}

type Service struct {
	source  Source
	initial document.LatLng
	ttl     time.Duration
}

func NewService(source Source, initial document.LatLng, notificationTTL time.Duration) *Service {
	return &Service{source: source, initial: initial, ttl: notificationTTL}
}

func (s *Service) Sessions(ctx context.Context) ([]journal.SessionSummary, error) {
	return s.source.Sessions(ctx)
}

// Rebuild feeds the recorded backend messages of sessionID to a fresh
// session over an in-process bus, one delivery at a time, and returns the
// resulting engine.
func (s *Service) Rebuild(ctx context.Context, sessionID uuid.UUID) (*engine.Engine, error) {
	bus := transport.NewBus()
	defer bus.Close()
	backend := transport.NewBridge(bus.Backend())

	eng := engine.NewDetachedEngine()
	notes := notify.NewCenter(s.ttl)
	notes.Subscribe(func(n notify.Notification) {
		slog.Debug("replayed notification", "level", n.Level, "title", n.Title)
	})
	session.New(sessionID, transport.NewBridge(bus.Client()), eng, notes, session.NewControl(s.initial))

	var n int
	err := s.source.Replay(ctx, sessionID, func(e journal.Entry) error {
		if err := backend.Emit(ctx, e.Type, e.Data); err != nil {
			return fmt.Errorf("message %d (%s): %w", e.Seq, e.Type, err)
		}
		bus.Pump()
		n++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	slog.Info("session replayed", "session", sessionID, "messages", n, "layers", len(eng.Snapshot().Layers))
	return eng, nil
}
