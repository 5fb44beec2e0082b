// Package noteservice coordinates the vault, health analysis and the embedding index.
package noteservice

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/starford/vaultlens/internal/graph"
	"github.com/starford/vaultlens/internal/index"
	"github.com/starford/vaultlens/internal/models"
	"github.com/starford/vaultlens/internal/parser"
	"github.com/starford/vaultlens/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Links      []string  `json:"links"`
	Tags       []string  `json:"tags"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Service is the use-case layer shared by the CLI, HTTP API and MCP server.
type Service struct {
	store    storage.Provider
	exempt   []string
	builder  *index.Builder
	searcher *index.Searcher
	logger   *slog.Logger
}

// NewService creates a new vault service.
func NewService(store storage.Provider, exempt []string, builder *index.Builder, searcher *index.Searcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, exempt: exempt, builder: builder, searcher: searcher, logger: logger}
}

// Root returns the vault root.
func (s *Service) Root() string {
	return s.store.Root()
}

func (s *Service) load() (*models.Corpus, error) {
	c, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	for _, p := range c.Unreadable {
		s.logger.Warn("vault: unreadable note skipped", slog.String("path", p))
	}
	for _, p := range c.Duplicates() {
		s.logger.Debug("vault: duplicate note id", slog.String("path", p))
	}
	return c, nil
}

// Health scans the vault and analyzes its link graph.
func (s *Service) Health(_ context.Context) (*graph.Report, error) {
	c, err := s.load()
	if err != nil {
		return nil, err
	}
	r := graph.Analyze(c, s.exempt)
	s.logger.Debug("health: analyzed",
		slog.Int("notes", r.TotalNotes),
		slog.Int("broken", len(r.BrokenLinks)),
		slog.Int("orphans", len(r.Orphans)),
		slog.Float64("score", r.Score),
	)
	return r, nil
}

// BuildIndex scans the vault and brings the embedding index up to date.
func (s *Service) BuildIndex(ctx context.Context) (index.Stats, error) {
	c, err := s.load()
	if err != nil {
		return index.Stats{}, err
	}
	return s.builder.Update(ctx, c)
}

// Search ranks indexed notes against query.
func (s *Service) Search(ctx context.Context, query string, k int) ([]index.Result, error) {
	return s.searcher.Search(ctx, query, k)
}

// GetNote reads and parses one note.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	meta, err := s.store.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		ID:         meta.ID,
		Path:       meta.Path,
		Title:      res.Title,
		Content:    storage.DecodeText(data),
		Links:      nonNilSlice(res.Links),
		Tags:       nonNilSlice(res.Tags),
		ModifiedAt: meta.ModifiedAt,
	}, nil
}

// ListNotes returns metadata for every note under dir, ordered by path.
func (s *Service) ListNotes(_ context.Context, dir string) ([]models.NoteMetadata, error) {
	items, err := s.store.List(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return nonNilSlice(items), nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
