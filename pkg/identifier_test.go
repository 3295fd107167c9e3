package kdown

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIdentifier struct {
	matches bool
	targets []string
	err     error
}

func (s *stubIdentifier) CanResolve(string) bool {
	return s.matches
}

func (s *stubIdentifier) Resolve(string) ([]string, error) {
	return s.targets, s.err
}

func TestResolveChainIdentityFallback(t *testing.T) {
	t.Run("empty chain", func(t *testing.T) {
		targets, err := ResolveChain(nil, "https://example.com/file.bin")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/file.bin"}, targets)
	})

	t.Run("no identifier matches", func(t *testing.T) {
		chain := []ResourceIdentifier{&stubIdentifier{matches: false}}
		targets, err := ResolveChain(chain, "https://example.com/file.bin")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/file.bin"}, targets)
	})
}

func TestResolveChainFirstMatchWins(t *testing.T) {
	first := &stubIdentifier{matches: true, targets: []string{"https://cdn.example.com/1"}}
	second := &stubIdentifier{matches: true, targets: []string{"https://cdn.example.com/2"}}

	targets, err := ResolveChain([]ResourceIdentifier{first, second}, "https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, first.targets, targets)
}

func TestResolveChainResolveErrorIsFatal(t *testing.T) {
	failing := &stubIdentifier{matches: true, err: errors.New("boom")}
	fallback := &stubIdentifier{matches: true, targets: []string{"https://cdn.example.com/2"}}

	// No fallback to later identifiers or to the identity resolution.
	targets, err := ResolveChain([]ResourceIdentifier{failing, fallback}, "https://example.com/x")
	assert.Error(t, err)
	assert.Nil(t, targets)
	assert.Contains(t, err.Error(), "boom")
}

func TestRegexTableInsertionOrderWins(t *testing.T) {
	table := &RegexTable{}
	table.MustAdd("example", "broad")
	table.MustAdd(`example\.com/specific`, "specific")

	_, kind, ok := table.Match("https://example.com/specific")
	require.True(t, ok)
	assert.Equal(t, ResourceKind("broad"), kind)
}

func TestRegexTableAddRejectsInvalidPattern(t *testing.T) {
	table := &RegexTable{}
	assert.Error(t, table.Add("(", "bad"))
}

func TestTableIdentifier(t *testing.T) {
	table := &RegexTable{}
	table.MustAdd(`example\.com/a/(\w+)`, "album")
	table.MustAdd(`example\.com/(\w+)`, "item")

	var gotKind ResourceKind
	var gotRe *regexp.Regexp
	id := NewTableIdentifier(table, func(url string, kind ResourceKind, re *regexp.Regexp) ([]string, error) {
		gotKind = kind
		gotRe = re
		return []string{"https://cdn.example.com/" + re.FindStringSubmatch(url)[1]}, nil
	})

	assert.True(t, id.CanResolve("https://example.com/a/xyz"))
	assert.False(t, id.CanResolve("https://other.com/a/xyz"))

	targets, err := id.Resolve("https://example.com/a/xyz")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/xyz"}, targets)
	assert.Equal(t, ResourceKind("album"), gotKind)
	require.NotNil(t, gotRe)

	_, err = id.Resolve("https://other.com/a/xyz")
	assert.Error(t, err)
}

func TestStripAfter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"query stripped", "abc123?mobile", "abc123"},
		{"fragment stripped", "abc123#frame", "abc123"},
		{"both stripped", "abc123?x#y", "abc123"},
		{"leading delimiter kept", "?abc", "?abc"},
		{"no delimiter", "abc123", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripAfter(tt.input, "?", "#"))
		})
	}
}
