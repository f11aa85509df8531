package session

import (
	"errors"
	"testing"

	"github.com/lakehopper/mapclient/internal/document"
)

func TestControlDefaults(t *testing.T) {
	c := NewControl(document.LatLng{Lat: 50.98, Lng: 4.52})
	st := c.Snapshot()
	if st.Mode != ModeNaive {
		t.Errorf("Expected Naive, got %s", st.Mode)
	}
	if st.MaxDistanceInitially != 600 || st.MaxDistanceAfterCharge != 1000 {
		t.Errorf("Unexpected distances %+v", st)
	}
	if st.Start != st.End {
		t.Errorf("Expected start and end at the initial location")
	}
}

func TestControlValidation(t *testing.T) {
	c := NewControl(document.SampleCenter)

	tests := []struct {
		name string
		err  error
		fn   func() error
	}{
		{"negative distance", ErrOutOfRange, func() error { return c.SetMaxDistanceInitially(-1) }},
		{"distance above max", ErrOutOfRange, func() error { return c.SetMaxDistanceAfterCharge(10001) }},
		{"bad latitude", ErrOutOfRange, func() error { return c.SetStart(document.LatLng{Lat: 91}) }},
		{"bad longitude", ErrOutOfRange, func() error { return c.SetEnd(document.LatLng{Lng: -181}) }},
		{"unknown mode", ErrUnknownMode, func() error { return c.SetMode("Fast") }},
		{"max distance ok", nil, func() error { return c.SetMaxDistanceAfterCharge(MaxDistance) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestControlApplyIsAllOrNothing(t *testing.T) {
	c := NewControl(document.SampleCenter)
	mode := "OptimizedSweep"
	bad := 20000.0

	if _, err := c.Apply(ControlPatch{Mode: &mode, MaxDistanceInitially: &bad}); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Expected ErrOutOfRange, got %v", err)
	}
	if c.Snapshot().Mode != ModeNaive {
		t.Errorf("Expected no change after a rejected patch")
	}

	good := 800.0
	st, err := c.Apply(ControlPatch{Mode: &mode, MaxDistanceInitially: &good})
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode != ModeOptimizedSweep || st.MaxDistanceInitially != 800 {
		t.Errorf("Unexpected state %+v", st)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		if err != nil || got != m {
			t.Errorf("ParseMode(%s) = %s, %v", m, got, err)
		}
	}
	if _, err := ParseMode("naive"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("Expected modes to be case sensitive")
	}
}
