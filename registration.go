package bishop

import (
	"context"
	"fmt"

	"github.com/afoninsky/bishop/bishoperr"
	"github.com/afoninsky/bishop/headers"
	"github.com/afoninsky/bishop/pattern"
)

// Add registers target against the pattern described by patternStr
// (§4.2 grammar). target must be either a Handler (installs a local
// registration) or a string naming a previously- or later-registered
// transport (installs a remote registration resolved at call time).
//
// When cfg.ForbidSameRouteNames is set, Add fails with
// DUPLICATE_PATTERN if an exactly-equal pattern is already registered
// (§4.8, I3). Otherwise repeated registration under the same or an
// overlapping pattern is allowed: each call installs its own independent
// index entry, and Act dispatches exactly one of them — the best match
// under the configured match order (§4.8, S4/S5) — never a walk through
// several. Callers that want one pattern to run several steps in
// sequence, short-circuiting on headers.Break, should use AddChain
// instead (§4.4 expansion, S7).
func (in *Instance) Add(patternStr string, target any) error {
	p, err := in.cache.Parse(patternStr)
	if err != nil {
		return fmt.Errorf("bishop: parse pattern %q: %w", patternStr, err)
	}

	pl, err := toPayload(target)
	if err != nil {
		return err
	}

	if in.cfg.ForbidSameRouteNames && in.all.Has(p) {
		return bishoperr.New(bishoperr.DuplicatePattern, "duplicate pattern: "+pattern.Beautify(p))
	}

	in.all.Add(p, pl)
	if pl.transport == "" {
		in.localOnly.Add(p, pl)
	}
	return nil
}

// Remove deletes the first registration whose pattern equals
// patternStr exactly from both indices. It is idempotent (§4.8).
func (in *Instance) Remove(patternStr string) error {
	p, err := in.cache.Parse(patternStr)
	if err != nil {
		return fmt.Errorf("bishop: parse pattern %q: %w", patternStr, err)
	}

	in.all.Remove(p)
	in.localOnly.Remove(p)
	return nil
}

// toPayload classifies target per §3's "Payload (registration
// record)": a callable becomes a local registration, a string becomes
// a remote registration against that transport name.
func toPayload(target any) (*regPayload, error) {
	switch t := target.(type) {
	case Handler:
		return &regPayload{handler: t}, nil
	case func(ctx context.Context, h *headers.Headers, msg pattern.Pattern) (any, error):
		return &regPayload{handler: Handler(t)}, nil
	case string:
		if t == "" {
			return nil, fmt.Errorf("bishop: empty transport name in registration target")
		}
		return &regPayload{transport: t}, nil
	default:
		return nil, fmt.Errorf("bishop: registration target must be a Handler or a transport name, got %T", target)
	}
}
