package kdown

import (
	"fmt"
	"regexp"
	"strings"
)

// ResourceIdentifier turns a URL it recognizes into a set of concrete
// download targets. CanResolve must be cheap; Resolve may call external
// APIs.
type ResourceIdentifier interface {
	CanResolve(url string) bool
	Resolve(url string) ([]string, error)
}

// Format tags one rendition of an asset when a provider offers several.
type Format string

const (
	FormatGif  Format = "gif"
	FormatGifv Format = "gifv"
	FormatWebm Format = "webm"
	FormatMp4  Format = "mp4"
	FormatJpg  Format = "jpg"
	FormatPng  Format = "png"
)

// FormatSelector is an orthogonal capability implemented by identifiers
// whose provider offers multiple renditions of the same asset.
type FormatSelector interface {
	PreferredFormat() Format
	SetPreferredFormat(Format)
}

// ResourceKind labels which expansion branch a matched pattern belongs
// to, e.g. "album" vs "image".
type ResourceKind string

type tableEntry struct {
	re   *regexp.Regexp
	kind ResourceKind
}

// RegexTable is an ordered list of (pattern, resource kind) pairs.
// Insertion order is the precedence order: the first matching pattern
// wins, regardless of which entry is longer or more specific. This is a
// contract, not an accident.
type RegexTable struct {
	entries []tableEntry
}

// Add compiles pattern and appends it behind every existing entry.
func (t *RegexTable) Add(pattern string, kind ResourceKind) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	t.entries = append(t.entries, tableEntry{re: re, kind: kind})
	return nil
}

// MustAdd is Add for patterns known valid at construction time.
func (t *RegexTable) MustAdd(pattern string, kind ResourceKind) {
	if err := t.Add(pattern, kind); err != nil {
		panic(err)
	}
}

// Match returns the first entry whose pattern matches url.
func (t *RegexTable) Match(url string) (*regexp.Regexp, ResourceKind, bool) {
	for _, e := range t.entries {
		if e.re.MatchString(url) {
			return e.re, e.kind, true
		}
	}
	return nil, "", false
}

// ExpandFunc resolves a URL that matched the table into concrete
// targets. The matched pattern is passed along so implementations can
// read its capture groups.
type ExpandFunc func(url string, kind ResourceKind, re *regexp.Regexp) ([]string, error)

// TableIdentifier dispatches resolution through a RegexTable: CanResolve
// reports whether any entry matches, Resolve delegates the first match
// to the expand function.
type TableIdentifier struct {
	table  *RegexTable
	expand ExpandFunc
}

func NewTableIdentifier(table *RegexTable, expand ExpandFunc) *TableIdentifier {
	return &TableIdentifier{table: table, expand: expand}
}

func (ti *TableIdentifier) CanResolve(url string) bool {
	_, _, ok := ti.table.Match(url)
	return ok
}

// Resolve expands url through the first matching table entry. A miss
// here after CanResolve reported true is an internal consistency
// violation and fails the resolution.
func (ti *TableIdentifier) Resolve(url string) ([]string, error) {
	re, kind, ok := ti.table.Match(url)
	if !ok {
		return nil, fmt.Errorf("no table entry matches %s", url)
	}
	return ti.expand(url, kind, re)
}

// stripAfter cuts s at the first occurrence of any delimiter, keeping
// the prefix. A delimiter sitting at index 0 is left alone so captured
// identifiers never collapse to the empty string.
func stripAfter(s string, delims ...string) string {
	for _, d := range delims {
		if idx := strings.Index(s, d); idx > 0 {
			s = s[:idx]
		}
	}
	return s
}

// ResolveChain runs url through identifiers in order and returns the
// expansion of the first one that recognizes it; later identifiers are
// never consulted. A Resolve failure is a hard failure for this URL, no
// fallback happens. When no identifier matches, the URL resolves to
// itself.
func ResolveChain(identifiers []ResourceIdentifier, url string) ([]string, error) {
	for _, id := range identifiers {
		if !id.CanResolve(url) {
			continue
		}
		targets, err := id.Resolve(url)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", url, err)
		}
		return targets, nil
	}
	return []string{url}, nil
}
