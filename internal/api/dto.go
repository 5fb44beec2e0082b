package api

import (
	"github.com/starford/vaultlens/internal/graph"
	"github.com/starford/vaultlens/internal/index"
	"github.com/starford/vaultlens/internal/models"
	"github.com/starford/vaultlens/internal/noteservice"
)

// HealthResponse is the health report plus derived fields.
type HealthResponse struct {
	*graph.Report
	Grade   string           `json:"grade"`
	TopTags []graph.TagCount `json:"top_tags"`
}

// SearchResponse wraps search results. Warning is set when the search
// could not run (no provider, no index) and Results is then empty.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []index.Result `json:"results"`
	Warning string         `json:"warning,omitempty"`
}

// BuildResponse reports the outcome of an index build.
type BuildResponse struct {
	Stats index.Stats `json:"stats"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.NoteMetadata `json:"notes"`
	Total int                   `json:"total"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail
