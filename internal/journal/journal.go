// Package journal records the messages of a planning session in Postgres so
// a session can be replayed later.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lakehopper/mapclient/internal/transport"
	"github.com/lakehopper/mapclient/internal/typeid"
)

// ErrDisabled is returned when no database is configured.
var ErrDisabled = errors.New("journal disabled")

const queueSize = 1024

const schema = `
CREATE TABLE IF NOT EXISTS planner_messages (
	id          TEXT PRIMARY KEY,
	session_id  UUID NOT NULL,
	seq         BIGINT NOT NULL,
	direction   TEXT NOT NULL,
	type        TEXT NOT NULL,
	payload     BYTEA NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS planner_messages_session_seq ON planner_messages (session_id, seq);
`

// Entry is one recorded message.
type Entry struct {
	ID         string
	SessionID  uuid.UUID
	Seq        int64
	Direction  transport.Direction
	Type       string
	Data       json.RawMessage
	RecordedAt time.Time
}

// Journal queues messages of one session and writes them from Run.
type Journal struct {
	pool      *pgxpool.Pool
	codec     *Codec
	sessionID uuid.UUID
	seq       atomic.Int64
	queue     chan Entry
	dropped   atomic.Int64
}

// Migrate creates the journal table.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return ErrDisabled
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// New creates a journal for sessionID. A nil pool yields ErrDisabled.
func New(pool *pgxpool.Pool, sessionID uuid.UUID) (*Journal, error) {
	if pool == nil {
		return nil, ErrDisabled
	}
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}
	return newJournal(pool, codec, sessionID), nil
}

func newJournal(pool *pgxpool.Pool, codec *Codec, sessionID uuid.UUID) *Journal {
	return &Journal{
		pool:      pool,
		codec:     codec,
		sessionID: sessionID,
		queue:     make(chan Entry, queueSize),
	}
}

// Record implements transport.Recorder. It never blocks: when the writer
// falls behind, messages are dropped and counted.
func (j *Journal) Record(dir transport.Direction, msgType string, data json.RawMessage) {
	if j == nil {
		return
	}
	e := Entry{
		ID:         typeid.NewMessageID(),
		SessionID:  j.sessionID,
		Seq:        j.seq.Add(1),
		Direction:  dir,
		Type:       msgType,
		Data:       append(json.RawMessage(nil), data...),
		RecordedAt: time.Now().UTC(),
	}
	select {
	case j.queue <- e:
	default:
		n := j.dropped.Add(1)
		slog.Warn("journal queue full, message dropped", "type", msgType, "dropped", n)
	}
}

// Run writes queued entries until ctx is done, then flushes what is left.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case e := <-j.queue:
			j.write(ctx, e)
		case <-ctx.Done():
			return j.flush()
		}
	}
}

func (j *Journal) flush() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-j.queue:
			j.write(ctx, e)
		default:
			return nil
		}
	}
}

func (j *Journal) write(ctx context.Context, e Entry) {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO planner_messages (id, session_id, seq, direction, type, payload, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.SessionID.String(), e.Seq, string(e.Direction), e.Type, j.codec.Compress(e.Data), e.RecordedAt,
	)
	if err != nil {
		slog.Error("journal write failed", "error", err, "session", e.SessionID, "seq", e.Seq)
	}
}

// SessionSummary describes one recorded session.
type SessionSummary struct {
	SessionID uuid.UUID `json:"sessionId"`
	Messages  int64     `json:"messages"`
	StartedAt time.Time `json:"startedAt"`
}

// Sessions lists recorded sessions, newest first.
func Sessions(ctx context.Context, pool *pgxpool.Pool) ([]SessionSummary, error) {
	if pool == nil {
		return nil, ErrDisabled
	}
	rows, err := pool.Query(ctx,
		`SELECT session_id::text, count(*), min(recorded_at)
		 FROM planner_messages GROUP BY session_id ORDER BY min(recorded_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var id string
		var s SessionSummary
		if err := rows.Scan(&id, &s.Messages, &s.StartedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if s.SessionID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse session id: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Replay calls fn for every inbound message of sessionID in arrival order.
func Replay(ctx context.Context, pool *pgxpool.Pool, sessionID uuid.UUID, fn func(Entry) error) error {
	if pool == nil {
		return ErrDisabled
	}
	codec, err := NewCodec()
	if err != nil {
		return err
	}

	rows, err := pool.Query(ctx,
		`SELECT id, seq, type, payload, recorded_at FROM planner_messages
		 WHERE session_id = $1 AND direction = $2 ORDER BY seq`,
		sessionID.String(), string(transport.Inbound))
	if err != nil {
		return fmt.Errorf("query session %s: %w", sessionID, err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		var payload []byte
		if err := row.Scan(&e.ID, &e.Seq, &e.Type, &payload, &e.RecordedAt); err != nil {
			return Entry{}, err
		}
		data, err := codec.Decompress(payload)
		if err != nil {
			return Entry{}, fmt.Errorf("message %s: %w", e.ID, err)
		}
		e.SessionID = sessionID
		e.Direction = transport.Inbound
		e.Data = data
		return e, nil
	})
	if err != nil {
		return fmt.Errorf("read session %s: %w", sessionID, err)
	}

	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Store reads recorded sessions back from pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Sessions(ctx context.Context) ([]SessionSummary, error) {
	return Sessions(ctx, s.pool)
}

func (s *Store) Replay(ctx context.Context, sessionID uuid.UUID, fn func(Entry) error) error {
	return Replay(ctx, s.pool, sessionID, fn)
}
