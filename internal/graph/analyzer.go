// Package graph checks the wikilink graph of a vault for structural problems.
package graph

import (
	"sort"

	"github.com/starford/vaultlens/internal/models"
	"github.com/starford/vaultlens/internal/parser"
)

// DefaultExempt lists note ids never reported as orphans.
var DefaultExempt = []string{
	"Home",
	"Daily テンプレート",
	"Weekly テンプレート",
	"Project テンプレート",
	"Quick Capture",
}

// Report is the result of one health analysis.
type Report struct {
	TotalNotes  int                 `json:"total_notes"`
	BrokenLinks []models.BrokenLink `json:"broken_links"`
	Orphans     []string            `json:"orphans"`
	NearEmpty   []string            `json:"near_empty"`
	Untagged    []string            `json:"untagged"`
	Tags        map[string]int      `json:"tags"`
	Score       float64             `json:"score"`
}

// TagCount is one row of the tag frequency table.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Analyze computes the health report of c. Exempt ids are never orphans.
// Notes that share an id with an earlier note are not analyzed.
func Analyze(c *models.Corpus, exempt []string) *Report {
	notes := c.Unique()
	r := &Report{
		TotalNotes:  len(notes),
		BrokenLinks: []models.BrokenLink{},
		Orphans:     []string{},
		NearEmpty:   []string{},
		Untagged:    []string{},
		Tags:        make(map[string]int),
	}

	candidates := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		candidates[n.ID] = struct{}{}
	}

	for _, n := range notes {
		for _, tok := range parser.LinkTokens(n.Content) {
			if !c.HasID(tok) && !c.IsDir(tok) {
				r.BrokenLinks = append(r.BrokenLinks, models.BrokenLink{Source: n.ID, Target: tok})
				continue
			}
			if tok != n.ID {
				delete(candidates, tok)
			}
		}

		tags := parser.Tags(n.Content)
		if len(tags) == 0 {
			r.Untagged = append(r.Untagged, n.ID)
		}
		for _, tag := range tags {
			r.Tags[tag]++
		}

		if parser.IsNearEmpty(n.Content) {
			r.NearEmpty = append(r.NearEmpty, n.ID)
		}
	}

	for _, id := range exempt {
		delete(candidates, id)
	}
	for id := range candidates {
		r.Orphans = append(r.Orphans, id)
	}
	sort.Strings(r.Orphans)

	r.Score = Score(len(r.BrokenLinks), len(r.Orphans), len(r.NearEmpty), r.TotalNotes)
	return r
}

// Score returns the composite health score in [0, 100].
func Score(broken, orphans, nearEmpty, total int) float64 {
	if total == 0 {
		return 100
	}
	s := 100 - float64(broken+orphans+nearEmpty)/float64(total)*100
	if s < 0 {
		return 0
	}
	return s
}

// TopTags returns the n most frequent tags, by count desc then tag asc.
// n <= 0 returns all tags.
func (r *Report) TopTags(n int) []TagCount {
	out := make([]TagCount, 0, len(r.Tags))
	for tag, count := range r.Tags {
		out = append(out, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Grade buckets the score into a label.
func (r *Report) Grade() string {
	switch {
	case r.Score >= 90:
		return "excellent"
	case r.Score >= 70:
		return "good"
	case r.Score >= 50:
		return "fair"
	default:
		return "needs attention"
	}
}
