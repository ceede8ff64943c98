package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/slug"
)

// AssetHandler serves files kept next to a post, such as images in a
// post directory. Document sources are never served.
type AssetHandler struct {
	root string
}

// NewAssetHandler creates a handler rooted at the posts directory.
func NewAssetHandler(root string) *AssetHandler {
	return &AssetHandler{root: root}
}

// safeAsset resolves slug/name under root. It rejects traversal, hidden
// files and Markdown sources.
func (h *AssetHandler) safeAsset(postSlug, name string) (string, bool) {
	if postSlug == "" || name == "" || strings.ContainsAny(postSlug, `/\`) {
		return "", false
	}
	rel := filepath.Clean(filepath.FromSlash(postSlug + "/" + name))
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 || parts[0] != postSlug {
		return "", false
	}
	for _, part := range parts {
		if part == ".." || strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	if slug.IsDocument(rel) {
		return "", false
	}
	abs := filepath.Join(h.root, rel)
	if !strings.HasPrefix(abs, h.root+string(os.PathSeparator)) {
		return "", false
	}
	return abs, true
}

// ServeFile handles GET /api/posts/{slug}/assets/*.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, ok := h.safeAsset(chi.URLParam(r, "slug"), chi.URLParam(r, "*"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid asset path"))
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	http.ServeFile(w, r, abs)
}
