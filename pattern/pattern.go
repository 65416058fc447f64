// Package pattern implements the pattern parser, splitter and
// beautifier (C1): parsing string forms to pattern maps, splitting a
// composite pattern into message/meta/raw triplets, and rendering a
// pattern back to a diagnostic string.
package pattern

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MetaSigil marks a pattern key as a meta key: it never participates
// in matching and is stripped to its bare name after normalization.
const MetaSigil = "$"

// Value is the sum type a pattern key maps to: either a literal
// string or a compiled regular expression used only for wildcarding
// during string serialization, grounded on the teacher's Matcher
// struct (Name/Value/IsRegex) simplified to the two-case union this
// specification describes.
type Value struct {
	str   string
	regex *regexp.Regexp
}

// String builds a literal string Value.
func String(s string) Value { return Value{str: s} }

// Regex builds a regex-literal Value.
func Regex(re *regexp.Regexp) Value { return Value{regex: re} }

// IsRegex reports whether v holds a compiled regex rather than a string.
func (v Value) IsRegex() bool { return v.regex != nil }

// Regexp returns the underlying *regexp.Regexp, or nil if v is a string.
func (v Value) Regexp() *regexp.Regexp { return v.regex }

// StringValue renders v back to its textual form: the bare string, or the
// regex source wrapped in slashes.
func (v Value) StringValue() string {
	if v.regex != nil {
		return "/" + v.regex.String() + "/"
	}
	return v.str
}

// Equal reports whether two Values are the same literal string. Two
// regex Values are never equal to each other or to a string under the
// match relation (§4.1): regex is only used for wildcarding at
// serialization, never compared at query time.
func (v Value) Equal(other Value) bool {
	if v.regex != nil || other.regex != nil {
		return false
	}
	return v.str == other.str
}

// Pattern is an unordered mapping from non-empty string keys to
// Values. Ordinary keys participate in matching; meta keys (prefixed
// with MetaSigil) never do.
type Pattern map[string]Value

// IsMeta reports whether key carries the meta sigil.
func IsMeta(key string) bool {
	return strings.HasPrefix(key, MetaSigil)
}

// StripSigil removes a leading meta sigil, if present.
func StripSigil(key string) string {
	return strings.TrimPrefix(key, MetaSigil)
}

// Clone returns a shallow copy of p.
func (p Pattern) Clone() Pattern {
	out := make(Pattern, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// NonMetaKeyCount counts the keys in p that are not meta keys, used by
// the index's matchOrder="depth" tie-break.
func (p Pattern) NonMetaKeyCount() int {
	n := 0
	for k := range p {
		if !IsMeta(k) {
			n++
		}
	}
	return n
}

var wildcard = regexp.MustCompile(".*")

// Cache is an LRU of compiled regex literals shared by all calls to
// Parse, so repeated registration/parsing of the same pattern string
// does not recompile identical regex segments. Grounded on the
// teacher's RegexCache (matcher_cache.go) — same LRU-eviction,
// thread-safe-by-construction contract, backed here by the ecosystem
// hashicorp/golang-lru implementation instead of a hand-rolled
// map+container/list pair.
type Cache struct {
	regexes *lru.Cache[string, *regexp.Regexp]
}

// NewCache builds a Cache with room for size compiled regex literals.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 1000
	}
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		return nil, fmt.Errorf("pattern: build regex cache: %w", err)
	}
	return &Cache{regexes: c}, nil
}

func (c *Cache) compile(literal string) (*regexp.Regexp, error) {
	if re, ok := c.regexes.Get(literal); ok {
		return re, nil
	}
	re, err := regexp.Compile(literal)
	if err != nil {
		return nil, err
	}
	c.regexes.Add(literal, re)
	return re, nil
}

// Parse accepts a comma-separated string of key[:value] segments (§4.2
// / §6 grammar) and returns the corresponding Pattern. A missing value
// means the wildcard regex `/.*/`. A value whose first and last
// characters are `/` is a regex literal with the slashes stripped; any
// other value is a plain string. Whitespace around keys and values is
// trimmed.
func (c *Cache) Parse(input string) (Pattern, error) {
	input = strings.TrimSpace(input)
	p := make(Pattern)
	if input == "" {
		return p, nil
	}

	for _, segment := range strings.Split(input, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		key, value, hasValue := strings.Cut(segment, ":")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("pattern: empty key in segment %q", segment)
		}

		if !hasValue {
			p[key] = Regex(wildcard)
			continue
		}

		value = strings.TrimSpace(value)
		if len(value) >= 2 && strings.HasPrefix(value, "/") && strings.HasSuffix(value, "/") {
			literal := value[1 : len(value)-1]
			re, err := c.compile(literal)
			if err != nil {
				return nil, fmt.Errorf("pattern: invalid regex %q: %w", literal, err)
			}
			p[key] = Regex(re)
			continue
		}

		p[key] = String(value)
	}

	return p, nil
}

// ParsePattern is a package-level convenience that parses without a
// shared regex cache, for call sites that do not need one (tests,
// one-off conversions).
func ParsePattern(input string) (Pattern, error) {
	c, err := NewCache(1)
	if err != nil {
		return nil, err
	}
	return c.Parse(input)
}

// Beautify renders a pattern to `k1:v1, k2:v2` diagnostic form, keys
// sorted for determinism, each value rendered with StringValue. A
// Value holds only a string or a regex, so there is no nested-mapping
// form: Beautify never renders `k:{innerKey1,innerKey2}`.
func Beautify(p Pattern) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, p[k].StringValue()))
	}
	return strings.Join(parts, ", ")
}
