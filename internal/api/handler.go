// Package api serves the operator control API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/session"
	"github.com/lakehopper/mapclient/internal/viewer"
)

// ViewerLister reports the connected viewers.
type ViewerLister interface {
	Viewers() []viewer.Presence
}

type Handler struct {
	session *session.Session
	viewers ViewerLister
	// pump, when set, delivers bridge traffic synchronously after a command.
	pump func() int
}

func NewHandler(s *session.Session) *Handler {
	return &Handler{session: s}
}

// WithPump makes commands deliver queued in-process messages before
// responding. Used with the in-process bridge transport.
func (h *Handler) WithPump(pump func() int) *Handler {
	h.pump = pump
	return h
}

// WithViewers enables GET /viewers.
func (h *Handler) WithViewers(v ViewerLister) *Handler {
	h.viewers = v
	return h
}

// Routes registers the API on r (normally the /api subrouter).
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/layers", h.ListLayers).Methods("GET")
	r.HandleFunc("/layers", h.ImportLayers).Methods("POST")
	r.HandleFunc("/layers/debug", h.ClearDebug).Methods("DELETE")
	r.HandleFunc("/layers/{layerId}", h.GetLayer).Methods("GET")
	r.HandleFunc("/layers/{layerId}", h.RemoveLayer).Methods("DELETE")
	r.HandleFunc("/overlays", h.ListOverlays).Methods("GET")
	r.HandleFunc("/markers/{markerId}/icon.svg", h.MarkerIcon).Methods("GET")
	r.HandleFunc("/control", h.GetControl).Methods("GET")
	r.HandleFunc("/control", h.PatchControl).Methods("PATCH")
	r.HandleFunc("/commands/{command}", h.Command).Methods("POST")
	r.HandleFunc("/notifications", h.ListNotifications).Methods("GET")
	r.HandleFunc("/notifications/{notificationId}", h.DismissNotification).Methods("DELETE")
	if h.viewers != nil {
		r.HandleFunc("/viewers", h.ListViewers).Methods("GET")
	}
}

func (h *Handler) ListLayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Engine().Snapshot())
}

// ImportLayers adds a JSON array of GeoJSON objects as static layers, one
// palette color per object.
func (h *Handler) ImportLayers(w http.ResponseWriter, r *http.Request) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected an array of GeoJSON objects"})
		return
	}
	if len(raw) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no geometries"})
		return
	}

	objs := make([]document.Object, 0, len(raw))
	for i, data := range raw {
		obj, err := document.Decode(data)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("object %d: %v", i, err)})
			return
		}
		objs = append(objs, obj)
	}

	layers := h.session.Engine().AddGeometries(objs)
	ids := make([]string, 0, len(layers))
	for _, l := range layers {
		ids = append(ids, l.ID)
	}
	slog.Info("layers imported", "count", len(ids))
	writeJSON(w, http.StatusCreated, map[string][]string{"layers": ids})
}

func (h *Handler) GetLayer(w http.ResponseWriter, r *http.Request) {
	layer, ok := h.session.Engine().Layer(mux.Vars(r)["layerId"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "layer not found"})
		return
	}
	writeJSON(w, http.StatusOK, layer)
}

func (h *Handler) RemoveLayer(w http.ResponseWriter, r *http.Request) {
	if !h.session.Engine().RemoveLayer(mux.Vars(r)["layerId"]) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "layer not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearDebug(w http.ResponseWriter, r *http.Request) {
	removed := h.session.ClearDebug()
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (h *Handler) ListOverlays(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Engine().Overlays())
}

func (h *Handler) MarkerIcon(w http.ResponseWriter, r *http.Request) {
	icon, ok := h.session.Engine().MarkerIcon(mux.Vars(r)["markerId"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "marker not found"})
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(icon.HTML))
}

func (h *Handler) GetControl(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Control().Snapshot())
}

func (h *Handler) PatchControl(w http.ResponseWriter, r *http.Request) {
	var patch session.ControlPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	state, err := h.session.Control().Apply(patch)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["command"]
	if err := h.session.Command(r.Context(), name); err != nil {
		if errors.Is(err, session.ErrUnknownCommand) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("command failed", "command", name, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "backend unavailable"})
		return
	}
	if h.pump != nil {
		h.pump()
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"command": name})
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Notifications().Active())
}

func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if !h.session.Notifications().Dismiss(mux.Vars(r)["notificationId"]) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListViewers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.viewers.Viewers())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
