package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/storage"
)

// ImageHandler serves post images from the images root.
type ImageHandler struct {
	images *storage.FS
}

// NewImageHandler creates a handler rooted at images.
func NewImageHandler(images *storage.FS) *ImageHandler {
	return &ImageHandler{images: images}
}

// plainName reports whether name is a single path element.
func plainName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && path.Clean(name) == name
}

// ServeFile handles GET <images prefix>/{id}/{filename}.
func (h *ImageHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	filename := chi.URLParam(r, "filename")
	if !plainName(id) || !plainName(filename) {
		http.Error(w, "invalid image path", http.StatusBadRequest)
		return
	}

	abs, err := h.images.Abs(path.Join(id, filename))
	if err != nil {
		http.Error(w, "invalid image path", http.StatusBadRequest)
		return
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, abs)
}
