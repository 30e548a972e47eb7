package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// StaticFileHandler serves the display bundle. Unknown paths fall back to index.html
// so the display can use client-side routes.
type StaticFileHandler struct {
	root   string
	logger *logger.Logger
}

// NewStaticFileHandler creates a handler rooted at dir
func NewStaticFileHandler(dir string, log *logger.Logger) *StaticFileHandler {
	root, err := filepath.Abs(dir)
	if err != nil {
		root = filepath.Clean(dir)
	}
	return &StaticFileHandler{
		root:   root,
		logger: log.Named("static-handler"),
	}
}

// ServeHTTP serves a file from the bundle
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
	full := filepath.Join(h.root, rel)

	if full != h.root && !strings.HasPrefix(full, h.root+string(filepath.Separator)) {
		h.logger.Warn("Rejected path outside the display bundle", logger.String("path", r.URL.Path))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		full = filepath.Join(full, "index.html")
		_, err = os.Stat(full)
	}
	if err != nil {
		full = filepath.Join(h.root, "index.html")
		if _, err := os.Stat(full); err != nil {
			http.NotFound(w, r)
			return
		}
	}

	// The display is rebuilt in place; never cache it
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	http.ServeFile(w, r, full)
}
