// Package web serves the single-page frontend from the embedded
// filesystem. API routes are handled elsewhere; everything that is not a
// real file falls back to index.html so client-side routing works after a
// hard refresh.
package web

import (
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// SPAHandler serves files from the given filesystem rooted at dir,
// falling back to index.html for unknown paths.
type SPAHandler struct {
	fsys fs.FS
}

// NewSPAHandler builds a handler over the embedded static tree.
func NewSPAHandler() (*SPAHandler, error) {
	sub, err := fs.Sub(StaticFS, "static")
	if err != nil {
		return nil, err
	}
	return &SPAHandler{fsys: sub}, nil
}

// NewSPAHandlerFS builds a handler over an arbitrary filesystem. Used by
// tests and by deployments that serve a build directory from disk.
func NewSPAHandlerFS(fsys fs.FS) *SPAHandler {
	return &SPAHandler{fsys: fsys}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestPath := strings.TrimPrefix(r.URL.Path, "/")

	// Security check: prevent directory traversal
	if strings.Contains(requestPath, "..") {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	if requestPath == "" {
		requestPath = "index.html"
	}

	file, err := h.fsys.Open(requestPath)
	if err != nil {
		// SPA fallback: unknown paths get the app shell.
		h.serveIndex(w, r)
		return
	}
	defer file.Close()

	if info, err := file.Stat(); err != nil || info.IsDir() {
		h.serveIndex(w, r)
		return
	}

	setContentType(w, requestPath)
	if requestPath == "index.html" {
		w.Header().Set("Cache-Control", "no-cache")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=31536000")
	}
	io.Copy(w, file)
}

func (h *SPAHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	file, err := h.fsys.Open("index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	io.Copy(w, file)
}

// setContentType picks the content type from the file extension
func setContentType(w http.ResponseWriter, requestPath string) {
	switch path.Ext(requestPath) {
	case ".html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case ".css":
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	case ".js":
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	case ".json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	case ".ico":
		w.Header().Set("Content-Type", "image/x-icon")
	case ".png":
		w.Header().Set("Content-Type", "image/png")
	case ".jpg", ".jpeg":
		w.Header().Set("Content-Type", "image/jpeg")
	case ".svg":
		w.Header().Set("Content-Type", "image/svg+xml")
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
	}
}
