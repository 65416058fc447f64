package notify

import (
	"sort"
	"strings"

	"github.com/afoninsky/bishop/pattern"
)

// DefaultWildcard is the token substituted for a non-literal
// (regex/wildcard) pattern value when deriving a routing key for
// named transports.
const DefaultWildcard = "*"

// LocalWildcard is the token substituted for a non-literal pattern
// value when deriving a routing key for the local process-wide
// emitter (§4.6).
const LocalWildcard = "#"

// RoutingKey derives the dotted routing key from a pattern: keys are
// sorted lexicographically, each contributes "key.value" where value
// is the pattern's string value, or wildcard if the value is a regex
// literal (which cannot be serialized as a concrete routing segment).
func RoutingKey(p pattern.Pattern, wildcard string) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	segments := make([]string, 0, len(keys))
	for _, k := range keys {
		v := p[k]
		value := wildcard
		if !v.IsRegex() {
			value = v.StringValue()
		}
		segments = append(segments, k+"."+value)
	}

	return strings.Join(segments, ".")
}
