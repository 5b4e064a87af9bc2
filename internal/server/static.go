package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// defaultDocument is served for unknown non-API paths, SPA style.
const defaultDocument = "index.html"

// contentTypes maps file extensions to MIME types for static assets.
// Unknown extensions fall back to application/octet-stream.
var contentTypes = map[string]string{
	".html":  "text/html",
	".css":   "text/css",
	".js":    "application/javascript",
	".json":  "application/json",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
}

// handleStatic serves files under the configured static directory. The
// content type comes from the extension table, path traversal is rejected,
// and any missing path falls back to the default document.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path
	if urlPath == "/" {
		urlPath = "/" + defaultDocument
	}

	root, err := filepath.Abs(s.static)
	if err != nil {
		http.Error(w, "Server Error", http.StatusInternalServerError)
		return
	}
	target := filepath.Join(root, filepath.FromSlash(urlPath))
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	data, err := os.ReadFile(target)
	if err != nil {
		if !os.IsNotExist(err) {
			http.Error(w, "Server Error", http.StatusInternalServerError)
			return
		}
		data, err = os.ReadFile(filepath.Join(root, defaultDocument))
		if err != nil {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	ext := strings.ToLower(filepath.Ext(target))
	ct, ok := contentTypes[ext]
	if !ok {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
