// Package index implements the pattern index (C2): a store of
// (pattern, payload) pairs answering subset-match lookups under a
// configurable tie-breaking order.
//
// Grounded on the teacher's internal/business/routing tree.go +
// tree_node.go, but the spec's match relation has no parent/child
// inheritance — every entry is independent — so the index here is a
// flat slice scanned linearly per lookup, mirroring the teacher's
// FindMatchingRoutes DFS-with-early-exit shape over a list instead of
// a tree walk.
package index

import (
	"sync"

	"github.com/afoninsky/bishop/pattern"
)

// MatchOrder selects the tie-breaking policy used when more than one
// registered pattern matches a request.
type MatchOrder string

const (
	MatchOrderDepth     MatchOrder = "depth"
	MatchOrderInsertion MatchOrder = "insertion"
)

// Entry is one (pattern, payload) registration with its insertion
// sequence number, used both for the insertion match order and for
// remove's "first entry whose pattern equals the argument" rule.
type Entry struct {
	Pattern  pattern.Pattern
	Payload  any
	Sequence uint64
}

// Index stores registrations and answers subset-match lookups. A
// single sync.RWMutex protects the backing slice: writers are
// add/remove, readers are lookup — grounded on the teacher's stated
// thread-safety contract for RouteMatcher/RouteTree (protected at the
// registry layer, never around handler execution).
type Index struct {
	mu      sync.RWMutex
	entries []Entry
	seq     uint64
}

// New builds an empty Index.
func New() *Index {
	return &Index{}
}

// Add inserts a new entry under pattern p with the given payload.
func (idx *Index) Add(p pattern.Pattern, payload any) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.seq++
	idx.entries = append(idx.entries, Entry{Pattern: p, Payload: payload, Sequence: idx.seq})
}

// Remove deletes the first entry whose pattern equals p exactly. It is
// idempotent: removing a pattern not present is not an error.
func (idx *Index) Remove(p pattern.Pattern) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i, e := range idx.entries {
		if patternsEqual(e.Pattern, p) {
			idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
			return
		}
	}
}

// Has reports whether an entry with a pattern exactly equal to p
// exists, used by the registration API's forbidSameRouteNames check.
func (idx *Index) Has(p pattern.Pattern) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, e := range idx.entries {
		if patternsEqual(e.Pattern, p) {
			return true
		}
	}
	return false
}

// Lookup returns the best-matching entry for query under the given
// match order, or false if nothing matches. lookup is a pure function
// of the index contents and order: concurrent callers observe a
// consistent snapshot since the scan runs entirely under RLock.
func (idx *Index) Lookup(query pattern.Pattern, order MatchOrder) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var (
		best  Entry
		found bool
	)

	for _, e := range idx.entries {
		if !matches(e.Pattern, query) {
			continue
		}
		if !found {
			best, found = e, true
			continue
		}
		if better(e, best, order) {
			best = e
		}
	}

	return best, found
}

// matches reports whether entry pattern e is a subset match of query
// q: for every non-meta key in e, q must have an equal string value.
// Meta keys in e impose no constraint; keys absent from e impose no
// constraint either.
func matches(e, q pattern.Pattern) bool {
	for k, v := range e {
		if pattern.IsMeta(k) {
			continue
		}
		qv, ok := q[k]
		if !ok || !qv.Equal(v) {
			return false
		}
	}
	return true
}

// better reports whether candidate should replace current as the best
// match under order. depth prefers more non-meta keys, ties broken by
// earlier insertion; insertion prefers the earlier sequence number
// alone.
func better(candidate, current Entry, order MatchOrder) bool {
	switch order {
	case MatchOrderInsertion:
		return candidate.Sequence < current.Sequence
	case MatchOrderDepth:
		fallthrough
	default:
		cd := candidate.Pattern.NonMetaKeyCount()
		bd := current.Pattern.NonMetaKeyCount()
		if cd != bd {
			return cd > bd
		}
		return candidate.Sequence < current.Sequence
	}
}

// patternsEqual reports exact pattern equality (same keys, same
// literal values) used by Remove/Has.
func patternsEqual(a, b pattern.Pattern) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || !v.Equal(bv) {
			return false
		}
	}
	return true
}
