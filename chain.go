package bishop

import (
	"context"
	"fmt"

	"github.com/afoninsky/bishop/headers"
	"github.com/afoninsky/bishop/pattern"
)

// AddChain registers a single local handler under patternStr that runs
// steps in order, re-reading h.Break after each one and stopping the
// moment a step sets it (§9 "mutation of headers.break from within a
// handler"; spec.md S7). Unlike a plain Add of the same pattern
// multiple times — which builds independent registrations dispatched
// one at a time under the configured match order — AddChain composes
// steps into one registration, so the chain only ever occupies a
// single index entry and its steps never compete with each other. That
// entry is ordinary: another Add under the same pattern competes with
// it under the match order like any other registration.
func (in *Instance) AddChain(patternStr string, steps ...Handler) error {
	if len(steps) == 0 {
		return fmt.Errorf("bishop: AddChain requires at least one step")
	}

	composite := Handler(func(ctx context.Context, h *headers.Headers, msg pattern.Pattern) (any, error) {
		var (
			result any
			err    error
		)
		for _, step := range steps {
			result, err = step(ctx, h, msg)
			if err != nil {
				return result, err
			}
			if h.Break {
				break
			}
		}
		return result, nil
	})

	return in.Add(patternStr, composite)
}
