package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/coder/websocket"
)

const (
	writeWait       = 10 * time.Second
	defaultReadSize = 16 * 1024 * 1024
)

// SocketOptions tune DialSocket.
type SocketOptions struct {
	DialTimeout time.Duration
	ReadLimit   int64
}

// Socket is a Transport over a websocket connection to the backend.
type Socket struct {
	url      string
	conn     *websocket.Conn
	handlers *handlerSet

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// DialSocket connects to the backend at url. Connection failures are
// returned here, before any message is exchanged.
func DialSocket(ctx context.Context, url string, opts SocketOptions) (*Socket, error) {
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	limit := opts.ReadLimit
	if limit <= 0 {
		limit = defaultReadSize
	}
	conn.SetReadLimit(limit)

	slog.Info("connected to backend", "url", url)
	return &Socket{
		url:      url,
		conn:     conn,
		handlers: newHandlerSet(),
	}, nil
}

// Listen registers h for msgType. Register every handler before Run.
func (s *Socket) Listen(msgType string, h Handler) {
	s.handlers.add(msgType, h)
}

// Emit sends one message. It is fire-and-forget: no reply is awaited.
func (s *Socket) Emit(ctx context.Context, msgType string, data any) error {
	s.closeMu.Lock()
	closed := s.closed
	s.closeMu.Unlock()
	if closed {
		return ErrClosed
	}

	payload, err := marshalData(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Frame{Type: msgType, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	if err := s.conn.Write(writeCtx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("emit %s: %w", msgType, err)
	}

	slog.Info("sent message", "type", msgType, "bytes", len(payload))
	slog.Debug("sent payload", "type", msgType, "data", string(payload))
	return nil
}

// Run reads frames until the connection ends and dispatches them to the
// registered handlers. It returns a *ProtocolError when the backend sends a
// frame the client cannot handle, after closing the connection.
func (s *Socket) Run(ctx context.Context) error {
	defer s.markClosed()

	for {
		typ, raw, err := s.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("backend closed connection", "status", status)
				return ErrClosed
			}
			return fmt.Errorf("read from backend: %w", err)
		}
		if typ != websocket.MessageText {
			return s.violation(&ProtocolError{Reason: "binary frame"})
		}

		frame, err := decodeFrame(raw)
		if err != nil {
			return s.violation(err)
		}

		slog.Info("received message", "type", frame.Type, "bytes", len(frame.Data))
		slog.Debug("received payload", "type", frame.Type, "data", string(frame.Data))

		if err := s.handlers.dispatch(frame.Type, frame.Data); err != nil {
			return s.violation(err)
		}
	}
}

func (s *Socket) violation(err error) error {
	var perr *ProtocolError
	reason := "protocol violation"
	if errors.As(err, &perr) {
		reason = perr.Reason
	}
	slog.Error("closing backend connection", "error", err)
	s.conn.Close(websocket.StatusPolicyViolation, truncateReason(reason))
	return err
}

// Close ends the connection normally.
func (s *Socket) Close() error {
	s.markClosed()
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Socket) markClosed() {
	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()
}

// truncateReason keeps close reasons within the 123 bytes a close frame allows.
func truncateReason(reason string) string {
	const maxReason = 120
	if len(reason) <= maxReason {
		return reason
	}
	cut := maxReason
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
