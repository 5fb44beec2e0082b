package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/embedding"
	"github.com/starford/vaultlens/internal/models"
	"github.com/starford/vaultlens/internal/parser"
)

// BuildOptions tunes a build.
type BuildOptions struct {
	Truncate     int  // characters of content sent to the provider
	Preview      int  // characters kept as preview
	Workers      int  // concurrent provider calls
	PruneDeleted bool // drop entries whose note no longer exists

	// Progress, if set, is called after each note is processed.
	// It may be called from several goroutines.
	Progress func(done, total int)
}

// DefaultBuildOptions returns the defaults used when no config is given.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{Truncate: 2000, Preview: 200, Workers: 4, PruneDeleted: true}
}

// Stats summarizes one build.
type Stats struct {
	Total   int `json:"total"`
	Reused  int `json:"reused"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Kept    int `json:"kept"`
	Pruned  int `json:"pruned"`
	Entries int `json:"entries"`
}

// Builder is the single writer of the persisted index.
type Builder struct {
	provider embedding.Provider
	store    Store
	opts     BuildOptions
	logger   *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(p embedding.Provider, store Store, opts BuildOptions, logger *slog.Logger) *Builder {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{provider: p, store: store, opts: opts, logger: logger}
}

// Update locks the index, loads the previous version, builds and saves.
// It fails with apperr.ErrConfigMissing when no provider is configured and
// with apperr.ErrIndexLocked when another writer holds the lock.
func (b *Builder) Update(ctx context.Context, c *models.Corpus) (Stats, error) {
	if !embedding.Enabled(b.provider) {
		return Stats{}, fmt.Errorf("index: build: %w", apperr.ErrConfigMissing)
	}

	unlock, err := Lock(b.store.Path())
	if err != nil {
		return Stats{}, err
	}
	defer unlock()

	prev, err := b.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, apperr.ErrIndexMissing) {
			return Stats{}, err
		}
		prev = Index{}
	}

	next, stats, err := b.Build(ctx, c, prev)
	if err != nil {
		return stats, err
	}
	if err := b.store.Save(ctx, next); err != nil {
		return stats, err
	}
	b.logger.Info("index: saved",
		slog.String("path", b.store.Path()),
		slog.Int("entries", stats.Entries),
		slog.Int("updated", stats.Updated),
		slog.Int("reused", stats.Reused),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

type outcome int

const (
	outcomeReused outcome = iota
	outcomeUpdated
	outcomeKept
	outcomeFailed
)

type result struct {
	entry Entry
	ok    bool
	kind  outcome
}

// Build merges prev with the current corpus without touching the store.
// Unchanged notes reuse their entry; the rest are embedded concurrently.
// A provider failure for one note falls back to its previous entry, or
// omits the note, and never affects other notes.
func (b *Builder) Build(ctx context.Context, c *models.Corpus, prev Index) (Index, Stats, error) {
	notes := c.Notes
	results := make([]result, len(notes))
	total := len(notes)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i, n := range notes {
		old, had := prev[n.Path]
		if had && old.Fresh(n.ModifiedAt) {
			results[i] = result{entry: old, ok: true, kind: outcomeReused}
			b.progress(&done, total)
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = b.embedNote(gctx, n, old, had)
			b.progress(&done, total)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}

	next := make(Index, len(notes))
	stats := Stats{Total: total}
	for i, r := range results {
		switch r.kind {
		case outcomeReused:
			stats.Reused++
		case outcomeUpdated:
			stats.Updated++
		case outcomeKept:
			stats.Failed++
			stats.Kept++
		case outcomeFailed:
			stats.Failed++
		}
		if r.ok {
			next[notes[i].Path] = r.entry
		}
	}

	for path, e := range prev {
		if _, live := next[path]; live {
			continue
		}
		if b.opts.PruneDeleted {
			stats.Pruned++
			continue
		}
		next[path] = e
	}
	stats.Entries = len(next)
	return next, stats, nil
}

func (b *Builder) embedNote(ctx context.Context, n models.Note, old Entry, had bool) result {
	text := parser.Truncate(n.Content, b.opts.Truncate)
	vec, err := b.provider.Embed(ctx, text, embedding.TaskDocument)
	if err != nil {
		b.logger.Warn("index: embed failed",
			slog.String("path", n.Path),
			slog.Bool("fallback", had),
			slog.String("error", err.Error()),
		)
		if had {
			return result{entry: old, ok: true, kind: outcomeKept}
		}
		return result{kind: outcomeFailed}
	}
	b.logger.Debug("index: embedded", slog.String("path", n.Path), slog.Int("dims", len(vec)))
	return result{
		entry: Entry{
			Name:      n.ID,
			Embedding: vec,
			MTime:     MTime(n.ModifiedAt),
			Preview:   parser.Preview(n.Content, b.opts.Preview),
		},
		ok:   true,
		kind: outcomeUpdated,
	}
}

func (b *Builder) progress(done *atomic.Int64, total int) {
	n := done.Add(1)
	if b.opts.Progress != nil {
		b.opts.Progress(int(n), total)
	}
}
