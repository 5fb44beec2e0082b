// Package parser extracts frontmatter, wikilinks, and tags from Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// [[target]], [[target|alias]], [[target#anchor]], [[dir/target]]
	wikilinkRe = regexp.MustCompile(`\[\[([^\]|#]+)(?:[|#][^\]]*)?\]\]`)
	// Latin word chars plus hiragana, katakana and CJK ideographs.
	tagRe = regexp.MustCompile(`#([a-zA-Z0-9_/\-\x{3040}-\x{309f}\x{30a0}-\x{30ff}\x{4e00}-\x{9fff}]+)`)
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Links       []string
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, link tokens, and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	content := string(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       LinkTokens(content),
		Tags:        Tags(content),
		Title:       deriveTitle(fm, body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: whole file is body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// Links returns the raw target of every wikilink in content, in order of
// appearance, alias and anchor suffixes removed. Repeated links are kept.
func Links(content string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// LinkTokens returns the resolvable token of every wikilink in content.
// Empty tokens are dropped.
func LinkTokens(content string) []string {
	raw := Links(content)
	out := make([]string, 0, len(raw))
	for _, target := range raw {
		if tok := Token(target); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Token reduces a link target to its final path segment.
func Token(target string) string {
	if i := strings.LastIndex(target, "/"); i >= 0 {
		target = target[i+1:]
	}
	return strings.TrimSpace(target)
}

// Tags returns every #tag occurrence in content, repeats included.
func Tags(content string) []string {
	matches := tagRe.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// IsNearEmpty reports whether content has fewer than two lines left after
// dropping blank lines, frontmatter delimiters and headings.
func IsNearEmpty(content string) bool {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "---") || strings.HasPrefix(line, "#") {
			continue
		}
		n++
		if n >= 2 {
			return false
		}
	}
	return true
}

// Preview flattens newlines to spaces and keeps the first limit characters.
func Preview(content string, limit int) string {
	flat := strings.ReplaceAll(content, "\r\n", " ")
	flat = strings.ReplaceAll(flat, "\n", " ")
	return Truncate(flat, limit)
}

// Truncate returns at most limit characters (runes) of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
