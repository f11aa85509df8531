package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/lakehopper/mapclient/internal/transport"
)

func TestCodecShrinksRepetitivePayloads(t *testing.T) {
	c, err := NewCodec()
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte(`{"type":"FeatureCollection","features":[` +
		strings.Repeat(`{"type":"Feature","geometry":{"type":"LineString","coordinates":[[4.5,50.9],[4.6,51.0]]},"properties":{}},`, 200) +
		`{}]}`)

	packed := c.Compress(payload)
	if len(packed) >= len(payload)/4 {
		t.Errorf("Expected strong compression, got %d -> %d bytes", len(payload), len(packed))
	}
	out, err := c.Decompress(packed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("Decompressed payload differs")
	}

	if _, err := c.Decompress([]byte("not zstd")); err == nil {
		t.Error("Expected error for corrupt payload")
	}
}

func TestRecordQueuesInOrder(t *testing.T) {
	c, _ := NewCodec()
	id := uuid.New()
	j := newJournal(nil, c, id)

	j.Record(transport.Outbound, "map-ready", json.RawMessage("null"))
	j.Record(transport.Inbound, "obstacles", json.RawMessage(`{"type":"Feature"}`))

	first := <-j.queue
	second := <-j.queue
	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("Expected seq 1,2 got %d,%d", first.Seq, second.Seq)
	}
	if first.Direction != transport.Outbound || second.Direction != transport.Inbound {
		t.Errorf("Unexpected directions %s %s", first.Direction, second.Direction)
	}
	if second.SessionID != id || second.Type != "obstacles" {
		t.Errorf("Unexpected entry %+v", second)
	}
	if !strings.HasPrefix(first.ID, "msg_") {
		t.Errorf("Expected msg_ id, got %s", first.ID)
	}
}

func TestRecordDropsWhenFull(t *testing.T) {
	c, _ := NewCodec()
	j := newJournal(nil, c, uuid.New())
	for i := 0; i < queueSize+3; i++ {
		j.Record(transport.Inbound, "debug-geometries", nil)
	}
	if got := j.dropped.Load(); got != 3 {
		t.Errorf("Expected 3 dropped, got %d", got)
	}
}

func TestDisabled(t *testing.T) {
	if _, err := New(nil, uuid.New()); !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
	var j *Journal
	j.Record(transport.Inbound, "obstacles", nil)
}
