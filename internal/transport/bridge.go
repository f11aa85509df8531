package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Host is a listen/emit primitive provided by the embedding environment:
// the in-process Bus, or the page object in the wasm build.
type Host interface {
	Listen(event string, fn func(payload json.RawMessage))
	Emit(event string, payload json.RawMessage) error
}

// Bridge is a Transport over a Host. It performs no network I/O.
type Bridge struct {
	host     Host
	handlers *handlerSet
}

// NewBridge wraps host.
func NewBridge(host Host) *Bridge {
	return &Bridge{host: host, handlers: newHandlerSet()}
}

// Listen registers h for msgType. The host is subscribed once per type.
func (b *Bridge) Listen(msgType string, h Handler) {
	first := !b.handlers.has(msgType)
	b.handlers.add(msgType, h)
	if !first {
		return
	}
	b.host.Listen(msgType, func(payload json.RawMessage) {
		if len(payload) == 0 {
			payload = json.RawMessage("null")
		}
		slog.Info("received message", "type", msgType, "bytes", len(payload))
		slog.Debug("received payload", "type", msgType, "data", string(payload))
		if err := b.handlers.dispatch(msgType, payload); err != nil {
			slog.Error("dispatch failed", "type", msgType, "error", err)
		}
	})
}

// Emit hands one message to the host.
func (b *Bridge) Emit(ctx context.Context, msgType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := marshalData(data)
	if err != nil {
		return err
	}
	if err := b.host.Emit(msgType, payload); err != nil {
		return fmt.Errorf("emit %s: %w", msgType, err)
	}
	slog.Info("sent message", "type", msgType, "bytes", len(payload))
	slog.Debug("sent payload", "type", msgType, "data", string(payload))
	return nil
}
