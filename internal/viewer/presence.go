package viewer

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lakehopper/mapclient/internal/document"
)

// View is the part of the map a viewer is looking at.
type View struct {
	Center document.LatLng `json:"center"`
	Zoom   float64         `json:"zoom"`
}

// Presence is one connected viewer.
type Presence struct {
	ClientID string    `json:"clientId"`
	Subject  string    `json:"subject"`
	JoinedAt time.Time `json:"joinedAt"`
	View     *View     `json:"view,omitempty"`
}

type PresenceStatePayload struct {
	Viewers []Presence `json:"viewers"`
}

// PresenceManager tracks who is watching the map and where.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*Presence // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*Presence),
	}
}

func (pm *PresenceManager) Join(c *Client, now time.Time) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[c.ClientID] = &Presence{ClientID: c.ClientID, Subject: c.Subject, JoinedAt: now}
}

// UpdateView records v for clientID. Unknown clients are ignored.
func (pm *PresenceManager) UpdateView(clientID string, v View) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p, ok := pm.presences[clientID]
	if !ok {
		return false
	}
	p.View = &v
	return true
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

// All returns copies of every presence ordered by join time.
func (pm *PresenceManager) All() []Presence {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make([]Presence, 0, len(pm.presences))
	for _, p := range pm.presences {
		cp := *p
		if p.View != nil {
			v := *p.View
			cp.View = &v
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].JoinedAt.Equal(result[j].JoinedAt) {
			return result[i].ClientID < result[j].ClientID
		}
		return result[i].JoinedAt.Before(result[j].JoinedAt)
	})
	return result
}

func (pm *PresenceManager) StateMessage() *Message {
	payload, err := json.Marshal(PresenceStatePayload{Viewers: pm.All()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{
		Type:    TypePresenceState,
		Payload: payload,
	}
}
