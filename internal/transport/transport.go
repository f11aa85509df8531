// Package transport carries named JSON messages between the map client and
// the planning backend.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Emit after the transport has shut down.
var ErrClosed = errors.New("transport closed")

// Handler receives the data member of one message.
type Handler func(data json.RawMessage)

// Transport is a bidirectional named-message channel. Handlers registered for
// a type run once per received message of that type, in arrival order, one
// message at a time.
type Transport interface {
	Listen(msgType string, h Handler)
	Emit(ctx context.Context, msgType string, data any) error
}

// Frame is one message on the wire.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ProtocolError reports a frame the client cannot accept. It is fatal for
// the connection that produced it.
type ProtocolError struct {
	Type   string
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("protocol violation: %s", e.Reason)
	}
	return fmt.Sprintf("protocol violation: %s (type %q)", e.Reason, e.Type)
}

// marshalData encodes an outbound payload. nil becomes JSON null.
func marshalData(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("null"), nil
		}
		return v, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b, nil
}

// handlerSet is the listener table shared by the implementations.
type handlerSet struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func newHandlerSet() *handlerSet {
	return &handlerSet{handlers: make(map[string][]Handler)}
}

func (s *handlerSet) add(msgType string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[msgType] = append(s.handlers[msgType], h)
}

func (s *handlerSet) has(msgType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers[msgType]) > 0
}

// dispatch runs every handler for msgType. A type nobody listens to is a
// protocol violation.
func (s *handlerSet) dispatch(msgType string, data json.RawMessage) error {
	s.mu.RLock()
	hs := make([]Handler, len(s.handlers[msgType]))
	copy(hs, s.handlers[msgType])
	s.mu.RUnlock()

	if len(hs) == 0 {
		return &ProtocolError{Type: msgType, Reason: "no handler registered"}
	}
	for _, h := range hs {
		h(data)
	}
	return nil
}

// decodeFrame parses a wire frame.
func decodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, &ProtocolError{Reason: "malformed frame: " + err.Error()}
	}
	if f.Type == "" {
		return Frame{}, &ProtocolError{Reason: "frame without type"}
	}
	if len(f.Data) == 0 {
		f.Data = json.RawMessage("null")
	}
	return f, nil
}
