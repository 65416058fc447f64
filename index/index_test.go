package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afoninsky/bishop/pattern"
)

func p(kv ...string) pattern.Pattern {
	out := make(pattern.Pattern, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		out[kv[i]] = pattern.String(kv[i+1])
	}
	return out
}

func TestAddLookup(t *testing.T) {
	idx := New()
	idx.Add(p("role", "math", "cmd", "sum"), "payload-1")

	e, ok := idx.Lookup(p("role", "math", "cmd", "sum"), MatchOrderDepth)
	require.True(t, ok)
	assert.Equal(t, "payload-1", e.Payload)
}

func TestLookup_SupersetQueryMatches(t *testing.T) {
	idx := New()
	idx.Add(p("role", "math"), "payload-1")

	e, ok := idx.Lookup(p("role", "math", "cmd", "sum", "a", "2"), MatchOrderDepth)
	require.True(t, ok)
	assert.Equal(t, "payload-1", e.Payload)
}

func TestAddRemove(t *testing.T) {
	idx := New()
	pat := p("role", "math")
	idx.Add(pat, "payload-1")
	idx.Remove(pat)

	_, ok := idx.Lookup(pat, MatchOrderDepth)
	assert.False(t, ok)
}

func TestLookup_NoMatchReturnsFalse(t *testing.T) {
	idx := New()
	_, ok := idx.Lookup(p("role", "x"), MatchOrderDepth)
	assert.False(t, ok)
}

func TestDepthOrder_PrefersMoreSpecific(t *testing.T) {
	idx := New()
	idx.Add(p("r", "x"), "h1")
	idx.Add(p("r", "x", "k", "1"), "h2")

	e, ok := idx.Lookup(p("r", "x", "k", "1"), MatchOrderDepth)
	require.True(t, ok)
	assert.Equal(t, "h2", e.Payload)
}

func TestDepthOrder_TiesBrokenByInsertion(t *testing.T) {
	idx := New()
	idx.Add(p("r", "x"), "h1")
	idx.Add(p("k", "1"), "h2") // different pattern, same depth, also matches the query below

	e, ok := idx.Lookup(p("r", "x", "k", "1"), MatchOrderDepth)
	require.True(t, ok)
	assert.Equal(t, "h1", e.Payload)
}

func TestInsertionOrder_PrefersEarliest(t *testing.T) {
	idx := New()
	idx.Add(p("r", "x"), "h1")
	idx.Add(p("r", "x"), "h2")

	e, ok := idx.Lookup(p("r", "x"), MatchOrderInsertion)
	require.True(t, ok)
	assert.Equal(t, "h1", e.Payload)
}

func TestHas(t *testing.T) {
	idx := New()
	pat := p("role", "math")
	assert.False(t, idx.Has(pat))

	idx.Add(pat, "h1")
	assert.True(t, idx.Has(pat))
}

func TestMetaKeysIgnoredForMatching(t *testing.T) {
	idx := New()
	idx.Add(p("role", "math", "$local", "true"), "h1")

	e, ok := idx.Lookup(p("role", "math"), MatchOrderDepth)
	require.True(t, ok)
	assert.Equal(t, "h1", e.Payload)
}

func TestAddRemoveAdd_RestoresPriorState(t *testing.T) {
	idx := New()
	pat := p("role", "math")
	idx.Add(pat, "h1")
	idx.Remove(pat)
	idx.Add(pat, "h2")

	e, ok := idx.Lookup(pat, MatchOrderDepth)
	require.True(t, ok)
	assert.Equal(t, "h2", e.Payload)
}
