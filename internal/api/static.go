package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/airsial/opshub/pkg/logger"
)

// StaticFileHandler serves the bundled web client. Unknown paths fall back
// to index.html so client-side routing works.
type StaticFileHandler struct {
	dir    string
	fs     http.Handler
	logger *logger.Logger
}

// NewStaticFileHandler creates a static file handler rooted at dir.
func NewStaticFileHandler(dir string, log *logger.Logger) *StaticFileHandler {
	return &StaticFileHandler{
		dir:    dir,
		fs:     http.FileServer(http.Dir(dir)),
		logger: log.Named("static"),
	}
}

func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.dir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
	full := filepath.Join(h.dir, rel)
	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		h.fs.ServeHTTP(w, r)
		return
	}

	index := filepath.Join(h.dir, "index.html")
	if _, err := os.Stat(index); err == nil {
		http.ServeFile(w, r, index)
		return
	}
	http.NotFound(w, r)
}
