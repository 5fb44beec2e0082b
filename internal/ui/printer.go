package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/starford/vaultlens/internal/graph"
	"github.com/starford/vaultlens/internal/index"
)

// List limits for the health report.
const (
	maxListed      = 10
	maxListedMinor = 5
	maxTopTags     = 10
)

// Printer writes human-readable output. Styles are applied only on terminals.
type Printer struct {
	w     io.Writer
	color bool
	tty   bool

	mu       sync.Mutex
	lastDone int
}

// NewPrinter returns a Printer for w. Colors are enabled when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{w: w, color: tty, tty: tty}
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

// Warn prints a warning line.
func (p *Printer) Warn(msg string) {
	p.printf("%s %s\n", p.render(Warning, "!"), msg)
}

// Health prints a health report.
func (p *Printer) Health(r *graph.Report) {
	p.printf("%s\n\n", p.render(Heading, "Vault health"))
	p.printf("  Score   %s %s\n", p.render(Bold, fmt.Sprintf("%.0f/100", r.Score)), p.render(Muted, "("+r.Grade()+")"))
	p.printf("  Notes   %d\n", r.TotalNotes)
	p.printf("  Tags    %d distinct\n\n", len(r.Tags))

	broken := make([]string, len(r.BrokenLinks))
	for i, l := range r.BrokenLinks {
		broken[i] = fmt.Sprintf("%s → %s", p.render(Accent, l.Source), l.Target)
	}
	p.section("Broken links", broken, maxListed)
	p.section("Orphan notes", p.accentAll(r.Orphans), maxListed)
	p.section("Near-empty notes", p.accentAll(r.NearEmpty), maxListedMinor)
	p.section("Untagged notes", p.accentAll(r.Untagged), maxListedMinor)

	top := r.TopTags(maxTopTags)
	if len(top) > 0 {
		p.printf("%s\n", p.render(Bold, "Top tags"))
		for _, tc := range top {
			p.printf("  #%s %s\n", tc.Tag, p.render(Muted, fmt.Sprintf("(%d)", tc.Count)))
		}
	}
}

func (p *Printer) accentAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = p.render(Accent, s)
	}
	return out
}

func (p *Printer) section(title string, items []string, limit int) {
	p.printf("%s %s\n", p.render(Bold, title), p.render(Muted, fmt.Sprintf("(%d)", len(items))))
	if len(items) == 0 {
		p.printf("  none\n\n")
		return
	}
	for i, s := range items {
		if i == limit {
			p.printf("  %s\n", p.render(Muted, fmt.Sprintf("... and %d more", len(items)-limit)))
			break
		}
		p.printf("  %s\n", s)
	}
	p.printf("\n")
}

// SearchResults prints ranked search hits.
func (p *Printer) SearchResults(query string, results []index.Result) {
	p.printf("%s %q\n\n", p.render(Heading, "Results for"), query)
	if len(results) == 0 {
		p.printf("  no results\n")
		return
	}
	for i, r := range results {
		p.printf("%2d. %s %s\n", i+1, p.render(Accent, r.Name), p.render(Muted, fmt.Sprintf("[%.3f]", r.Score)))
		p.printf("    %s\n", p.render(Muted, r.Path))
		if preview := strings.TrimSpace(r.Preview); preview != "" {
			p.printf("    %s\n", preview)
		}
	}
}

// Progress reports build progress. On terminals the line is redrawn in
// place; otherwise a line is printed every 10 notes and at the end.
// It is safe for concurrent use; reports older than the latest are dropped.
func (p *Printer) Progress(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if done <= p.lastDone {
		return
	}
	p.lastDone = done
	if p.tty {
		p.printf("\r  embedding %d/%d", done, total)
		return
	}
	if done%10 == 0 || done == total {
		p.printf("  embedding %d/%d\n", done, total)
	}
}

// EndProgress finishes the progress line once all workers are done.
func (p *Printer) EndProgress() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty && p.lastDone > 0 {
		p.printf("\n")
	}
	p.lastDone = 0
}

// BuildSummary prints the outcome of an index build.
func (p *Printer) BuildSummary(path string, s index.Stats) {
	p.printf("%s %s\n", p.render(Heading, "Index updated"), p.render(Muted, path))
	p.printf("  notes     %d\n", s.Total)
	p.printf("  embedded  %d\n", s.Updated)
	p.printf("  reused    %d\n", s.Reused)
	if s.Failed > 0 {
		p.printf("  %s\n", p.render(Warning, fmt.Sprintf("failed    %d (%d kept previous vector)", s.Failed, s.Kept)))
	}
	if s.Pruned > 0 {
		p.printf("  pruned    %d\n", s.Pruned)
	}
	p.printf("  entries   %d\n", s.Entries)
}

// Steps prints executed, skipped and failed pipeline steps.
func (p *Printer) Steps(runID string, executed, skipped, failed []string) {
	p.printf("%s %s\n", p.render(Heading, "Pipeline"), p.render(Muted, runID))
	line := func(label string, items []string, style lipgloss.Style) {
		if len(items) > 0 {
			p.printf("  %-9s %s\n", label, p.render(style, strings.Join(items, ", ")))
		}
	}
	line("executed", executed, Accent)
	line("skipped", skipped, Muted)
	line("failed", failed, Warning)
}
