package transport

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Direction of a recorded message relative to the map client.
type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// Recorder observes traffic. Record must not block for long; it runs on
// the delivering goroutine.
type Recorder interface {
	Record(dir Direction, msgType string, data json.RawMessage)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(dir Direction, msgType string, data json.RawMessage)

func (f RecorderFunc) Record(dir Direction, msgType string, data json.RawMessage) {
	f(dir, msgType, data)
}

type multiRecorder []Recorder

func (m multiRecorder) Record(dir Direction, msgType string, data json.RawMessage) {
	for _, r := range m {
		r.Record(dir, msgType, data)
	}
}

// Recorders fans out to every non-nil recorder.
func Recorders(rs ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type recorded struct {
	Transport
	rec Recorder
}

// Recorded wraps t so that rec sees every emitted and received message.
// Inbound messages are recorded once per registered handler.
func Recorded(t Transport, rec Recorder) Transport {
	return &recorded{Transport: t, rec: rec}
}

func (r *recorded) Listen(msgType string, h Handler) {
	r.Transport.Listen(msgType, func(data json.RawMessage) {
		r.rec.Record(Inbound, msgType, data)
		h(data)
	})
}

func (r *recorded) Emit(ctx context.Context, msgType string, data any) error {
	payload, err := marshalData(data)
	if err != nil {
		return err
	}
	if err := r.Transport.Emit(ctx, msgType, payload); err != nil {
		slog.Warn("emit failed, not recorded", "type", msgType, "error", err)
		return err
	}
	r.rec.Record(Outbound, msgType, payload)
	return nil
}
