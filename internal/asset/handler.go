package asset

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/lakehopper/mapclient/internal/typeid"
)

const maxUploadSize = 2 << 20 // 2MB

// Built-in operator marker images, written to the asset directory when
// missing.
var defaults = map[string]string{
	"start-marker.svg": `<svg width="25" height="41" xmlns="http://www.w3.org/2000/svg" version="1.1"><path fill="#2a9d8f" stroke="#1d3557" d="M12.5 1C6.2 1 1 6.2 1 12.5 1 21 12.5 40 12.5 40S24 21 24 12.5C24 6.2 18.8 1 12.5 1z"/><circle fill="#ffffff" cx="12.5" cy="12.5" r="4.5"/></svg>`,
	"end-marker.svg":   `<svg width="25" height="41" xmlns="http://www.w3.org/2000/svg" version="1.1"><path fill="#e63946" stroke="#1d3557" d="M12.5 1C6.2 1 1 6.2 1 12.5 1 21 12.5 40 12.5 40S24 21 24 12.5C24 6.2 18.8 1 12.5 1z"/><circle fill="#ffffff" cx="12.5" cy="12.5" r="4.5"/></svg>`,
}

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// Handler serves viewer assets and custom marker images.
type Handler struct {
	dir string
}

// NewHandler creates the asset directory and seeds the built-in markers.
func NewHandler(dir string) (*Handler, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	for name, body := range defaults {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	return &Handler{dir: dir}, nil
}

// Upload handles POST /assets/upload (multipart form with "file" field).
// Images are stored as PNG under a fresh asset ID.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 2MB)", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/png") && !strings.HasPrefix(contentType, "image/jpeg") {
		http.Error(w, "only PNG and JPEG images are supported", http.StatusBadRequest)
		return
	}

	img, _, err := image.Decode(file)
	if err != nil {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}

	assetID := typeid.NewAssetID()
	filename := assetID + ".png"
	filePath := filepath.Join(h.dir, filename)

	out, err := os.Create(filePath)
	if err != nil {
		slog.Error("create asset file", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		slog.Error("encode png", "error", err)
		os.Remove(filePath)
		http.Error(w, "failed to encode image", http.StatusInternalServerError)
		return
	}

	bounds := img.Bounds()
	slog.Info("asset uploaded", "id", assetID, "width", bounds.Dx(), "height", bounds.Dy())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(UploadResponse{
		ID:     assetID,
		URL:    fmt.Sprintf("/assets/%s", filename),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Name:   header.Filename,
	})
}

// Serve returns an http.Handler that serves asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, typeid.PrefixAsset+"_") {
			// Uploaded assets never change under their ID.
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}
		fs.ServeHTTP(w, r)
	}))
}

// Delete removes an uploaded asset.
func (h *Handler) Delete(assetID string) error {
	if err := typeid.Validate(assetID, typeid.PrefixAsset); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(h.dir, assetID+".png")); err != nil {
		return fmt.Errorf("asset not found: %s", assetID)
	}
	return nil
}

// Remove handles DELETE /assets/{assetId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/assets/")
	if err := h.Delete(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
