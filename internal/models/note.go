// Package models defines the domain types for vaultlens.
package models

import (
	"sort"
	"time"
)

// Note is a single Markdown file of the vault, as enumerated by one scan.
type Note struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Content    string    `json:"-"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	ModifiedAt time.Time `json:"modified_at"`
}

// BrokenLink is a wikilink whose target resolves to neither a note nor a top-level directory.
type BrokenLink struct {
	Source string `json:"from"`
	Target string `json:"to"`
}

// Corpus is the result of one vault scan.
//
// Notes holds every file in walk order (sorted by path). Several files may
// share an ID; ByID resolves to the first one.
type Corpus struct {
	Root       string
	Notes      []Note
	Dirs       map[string]struct{}
	Unreadable []string

	byID map[string]int
}

// NewCorpus builds a Corpus and its id lookup from notes and top-level directory names.
func NewCorpus(root string, notes []Note, dirs []string) *Corpus {
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Path < notes[j].Path })
	c := &Corpus{
		Root:  root,
		Notes: notes,
		Dirs:  make(map[string]struct{}, len(dirs)),
		byID:  make(map[string]int, len(notes)),
	}
	for _, d := range dirs {
		c.Dirs[d] = struct{}{}
	}
	for i, n := range notes {
		if _, dup := c.byID[n.ID]; dup {
			continue
		}
		c.byID[n.ID] = i
	}
	return c
}

// ByID returns the note registered under id.
func (c *Corpus) ByID(id string) (Note, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Note{}, false
	}
	return c.Notes[i], true
}

// HasID reports whether a note with the given id exists.
func (c *Corpus) HasID(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// IsDir reports whether name is a top-level directory of the vault.
func (c *Corpus) IsDir(name string) bool {
	_, ok := c.Dirs[name]
	return ok
}

// Unique returns one note per id, in path order.
func (c *Corpus) Unique() []Note {
	out := make([]Note, 0, len(c.byID))
	for i, n := range c.Notes {
		if c.byID[n.ID] == i {
			out = append(out, n)
		}
	}
	return out
}

// Duplicates returns the paths of notes shadowed by an earlier note with the same id.
func (c *Corpus) Duplicates() []string {
	var out []string
	for i, n := range c.Notes {
		if c.byID[n.ID] != i {
			out = append(out, n.Path)
		}
	}
	return out
}

// Len returns the number of distinct note ids.
func (c *Corpus) Len() int {
	return len(c.byID)
}
