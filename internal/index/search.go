package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/embedding"
)

// DefaultTopK is the number of results returned when k <= 0.
const DefaultTopK = 5

// Result is one ranked search hit.
type Result struct {
	Score   float64 `json:"score"`
	Path    string  `json:"path"`
	Name    string  `json:"name"`
	Preview string  `json:"preview"`
}

// Searcher answers natural-language queries against the persisted index.
type Searcher struct {
	provider embedding.Provider
	store    Store
}

// NewSearcher creates a Searcher.
func NewSearcher(p embedding.Provider, store Store) *Searcher {
	return &Searcher{provider: p, store: store}
}

// Search embeds query and returns at most k entries by descending cosine
// similarity. It fails with apperr.ErrConfigMissing when no provider is
// configured and apperr.ErrIndexMissing when no index was built yet.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if !embedding.Enabled(s.provider) {
		return nil, fmt.Errorf("index: search: %w", apperr.ErrConfigMissing)
	}
	idx, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	vec, err := s.provider.Embed(ctx, query, embedding.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("index: embed query: %w", err)
	}
	return Rank(vec, idx, k), nil
}

// Rank scores every entry that has a vector against q. Equal scores are
// ordered by ascending path.
func Rank(q []float32, idx Index, k int) []Result {
	if k <= 0 {
		k = DefaultTopK
	}
	out := make([]Result, 0, len(idx))
	for path, e := range idx {
		if len(e.Embedding) == 0 {
			continue
		}
		out = append(out, Result{
			Score:   Cosine(q, e.Embedding),
			Path:    path,
			Name:    e.Name,
			Preview: e.Preview,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Cosine returns dot(a,b)/(|a||b|), or 0 when either norm is zero or the
// lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
