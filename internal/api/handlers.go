package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/index"
	"github.com/starford/vaultlens/internal/noteservice"
)

const topTagsLimit = 10

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
	pub Publisher
}

// NewHandler creates a new Handler. pub may be nil.
func NewHandler(svc *noteservice.Service, pub Publisher) *Handler {
	return &Handler{svc: svc, pub: pub}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Health(r.Context())
	if err != nil {
		writeError(w, r, "health", err)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Report:  rep,
		Grade:   rep.Grade(),
		TopTags: rep.TopTags(topTagsLimit),
	})
}

// Search handles GET /api/search?q=&k=.
// A missing provider or index yields 200 with an empty result and a warning.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter q is required"))
		return
	}
	k, _ := strconv.Atoi(r.URL.Query().Get("k"))

	resp := SearchResponse{Query: q, Results: []index.Result{}}
	results, err := h.svc.Search(r.Context(), q, k)
	switch {
	case err == nil:
		resp.Results = results
	case errors.Is(err, apperr.ErrConfigMissing), errors.Is(err, apperr.ErrIndexMissing), apperr.IsProviderError(err):
		slog.Warn("api: search unavailable", slog.String("error", err.Error()))
		resp.Warning = apperr.Public(err)
	default:
		writeError(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// BuildIndex handles POST /api/index/build.
func (h *Handler) BuildIndex(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.BuildIndex(r.Context())
	if h.pub != nil {
		if err != nil {
			h.pub.PublishChange(nil, nil, err)
		} else {
			h.pub.PublishChange(nil, stats, nil)
		}
	}
	if err != nil {
		writeError(w, r, "index build", err)
		return
	}
	writeJSON(w, http.StatusOK, BuildResponse{Stats: stats})
}

// ListNotes handles GET /api/notes?dir=.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListNotes(r.Context(), r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/*.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, r, "get note", err)
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}
