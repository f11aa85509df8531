package replay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lakehopper/mapclient/internal/export"
	"github.com/lakehopper/mapclient/internal/journal"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/sessions", h.List).Methods("GET")
	r.HandleFunc("/sessions/{sessionId}/export", h.Export).Methods("GET")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.Sessions(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []journal.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Export replays a session and returns its final map as GeoJSON.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(mux.Vars(r)["sessionId"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}

	eng, err := h.service.Rebuild(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(export.FeatureCollection(eng.Snapshot()))
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, journal.ErrDisabled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "journal disabled"})
	default:
		slog.Error("replay error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
