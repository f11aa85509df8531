// Package export writes the current map as a GeoJSON document.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/lakehopper/mapclient/internal/engine"
)

// Source provides the map state to export.
type Source interface {
	Snapshot() engine.Snapshot
}

type Handler struct {
	source Source
}

func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// FeatureCollection flattens snap into one collection. Every shape and marker
// becomes a feature carrying its layer and style in its properties, in
// painter's order.
func FeatureCollection(snap engine.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range snap.Layers {
		for _, s := range l.Shapes {
			if s.Geometry == nil {
				continue
			}
			f := geojson.NewFeature(s.Geometry.Geometry())
			layerProps(f, l)
			f.Properties["color"] = s.Style.Color
			f.Properties["fillColor"] = s.Style.FillColor
			f.Properties["weight"] = s.Style.Weight
			if s.Tooltip != "" {
				f.Properties["tooltip"] = s.Tooltip
			}
			fc.Append(f)
		}
		for _, m := range l.Markers {
			f := geojson.NewFeature(m.LatLng.Point())
			layerProps(f, l)
			f.ID = m.ID
			f.Properties["color"] = m.Icon.Color
			f.Properties["title"] = m.Title
			f.Properties["slices"] = m.Icon.Slices
			f.Properties["slice"] = m.Icon.Slice
			fc.Append(f)
		}
	}
	return fc
}

func layerProps(f *geojson.Feature, l engine.DrawLayer) {
	f.Properties["layer"] = l.ID
	f.Properties["name"] = l.Name
	f.Properties["tag"] = l.Tag
	if l.Slot != "" {
		f.Properties["slot"] = l.Slot
	}
}

// GeoJSON handles GET /export/geojson. ?tag= limits the export to one layer
// tag, ?download= sets the attachment file name.
func (h *Handler) GeoJSON(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()

	if tag := r.URL.Query().Get("tag"); tag != "" {
		kept := snap.Layers[:0:0]
		for _, l := range snap.Layers {
			if l.Tag == tag {
				kept = append(kept, l)
			}
		}
		snap.Layers = kept
	}

	fc := FeatureCollection(snap)
	data, err := json.Marshal(fc)
	if err != nil {
		slog.Error("marshal export", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if name := r.URL.Query().Get("download"); name != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.geojson"`, sanitize(name)))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	slog.Info("export complete", "seq", snap.Seq, "layers", len(snap.Layers), "features", len(fc.Features))
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
