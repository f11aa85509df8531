package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lakehopper/mapclient/internal/document"
)

const (
	DefaultMaxDistanceInitially   = 600
	DefaultMaxDistanceAfterCharge = 1000
	// MaxDistance is the upper bound of both distance sliders.
	MaxDistance = 10000
)

var ErrOutOfRange = errors.New("value out of range")

// ControlState is the operator's parameter set at one moment.
type ControlState struct {
	Mode                   Mode            `json:"visibilityOptimizationMode"`
	MaxDistanceInitially   float64         `json:"maxDistanceInitially"`
	MaxDistanceAfterCharge float64         `json:"maxDistanceAfterCharge"`
	Start                  document.LatLng `json:"start"`
	End                    document.LatLng `json:"end"`
}

// ControlPatch changes the fields that are set.
type ControlPatch struct {
	Mode                   *string          `json:"visibilityOptimizationMode,omitempty"`
	MaxDistanceInitially   *float64         `json:"maxDistanceInitially,omitempty"`
	MaxDistanceAfterCharge *float64         `json:"maxDistanceAfterCharge,omitempty"`
	Start                  *document.LatLng `json:"start,omitempty"`
	End                    *document.LatLng `json:"end,omitempty"`
}

// Control holds the operator's parameters. Commands read it at the moment
// they are emitted.
type Control struct {
	mu    sync.Mutex
	state ControlState
}

// NewControl starts in naive mode with both operator markers at initial.
func NewControl(initial document.LatLng) *Control {
	return &Control{state: ControlState{
		Mode:                   ModeNaive,
		MaxDistanceInitially:   DefaultMaxDistanceInitially,
		MaxDistanceAfterCharge: DefaultMaxDistanceAfterCharge,
		Start:                  initial,
		End:                    initial,
	}}
}

func (c *Control) Snapshot() ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Control) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Mode = m
	c.mu.Unlock()
	return nil
}

func (c *Control) SetMaxDistanceInitially(v float64) error {
	if err := checkDistance(v); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.MaxDistanceInitially = v
	c.mu.Unlock()
	return nil
}

func (c *Control) SetMaxDistanceAfterCharge(v float64) error {
	if err := checkDistance(v); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.MaxDistanceAfterCharge = v
	c.mu.Unlock()
	return nil
}

// SetStart moves the start marker.
func (c *Control) SetStart(ll document.LatLng) error {
	if err := checkLatLng(ll); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Start = ll
	c.mu.Unlock()
	return nil
}

// SetEnd moves the end marker.
func (c *Control) SetEnd(ll document.LatLng) error {
	if err := checkLatLng(ll); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.End = ll
	c.mu.Unlock()
	return nil
}

// Apply validates every field of p before changing anything.
func (c *Control) Apply(p ControlPatch) (ControlState, error) {
	var mode Mode
	if p.Mode != nil {
		m, err := ParseMode(*p.Mode)
		if err != nil {
			return ControlState{}, err
		}
		mode = m
	}
	for _, v := range []*float64{p.MaxDistanceInitially, p.MaxDistanceAfterCharge} {
		if v != nil {
			if err := checkDistance(*v); err != nil {
				return ControlState{}, err
			}
		}
	}
	for _, ll := range []*document.LatLng{p.Start, p.End} {
		if ll != nil {
			if err := checkLatLng(*ll); err != nil {
				return ControlState{}, err
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p.Mode != nil {
		c.state.Mode = mode
	}
	if p.MaxDistanceInitially != nil {
		c.state.MaxDistanceInitially = *p.MaxDistanceInitially
	}
	if p.MaxDistanceAfterCharge != nil {
		c.state.MaxDistanceAfterCharge = *p.MaxDistanceAfterCharge
	}
	if p.Start != nil {
		c.state.Start = *p.Start
	}
	if p.End != nil {
		c.state.End = *p.End
	}
	return c.state, nil
}

func checkDistance(v float64) error {
	if v < 0 || v > MaxDistance {
		return fmt.Errorf("%w: distance %v not in [0, %d]", ErrOutOfRange, v, MaxDistance)
	}
	return nil
}

func checkLatLng(ll document.LatLng) error {
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return fmt.Errorf("%w: position %v, %v", ErrOutOfRange, ll.Lat, ll.Lng)
	}
	return nil
}
