package engine

// OverlayEntry is one toggleable entry of the overlay-selection control.
type OverlayEntry struct {
	Name    string `json:"name"`
	LayerID string `json:"layerId"`
}

// OverlayControl is the ordered list of named overlays the operator can
// toggle. Debug layers never appear here.
type OverlayControl struct {
	entries []OverlayEntry
}

func NewOverlayControl() *OverlayControl {
	return &OverlayControl{entries: make([]OverlayEntry, 0)}
}

func (c *OverlayControl) Add(name, layerID string) {
	c.entries = append(c.entries, OverlayEntry{Name: name, LayerID: layerID})
}

// Remove drops the entry registered for layerID.
func (c *OverlayControl) Remove(layerID string) bool {
	for i, e := range c.entries {
		if e.LayerID == layerID {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns a copy of the entries in insertion order.
func (c *OverlayControl) Entries() []OverlayEntry {
	out := make([]OverlayEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Count returns how many entries carry name.
func (c *OverlayControl) Count(name string) int {
	n := 0
	for _, e := range c.entries {
		if e.Name == name {
			n++
		}
	}
	return n
}
