package bishop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/afoninsky/bishop"
	"github.com/afoninsky/bishop/bishoperr"
	"github.com/afoninsky/bishop/headers"
	"github.com/afoninsky/bishop/internal/config"
	"github.com/afoninsky/bishop/pattern"
)

func echoHandler(ctx context.Context, h *headers.Headers, msg pattern.Pattern) (any, error) {
	return msg, nil
}

func TestAdd_rejectsUnsupportedTarget(t *testing.T) {
	in := newTestInstance(t, nil)
	err := in.Add("role:cmd", 42)
	require.Error(t, err)
}

func TestAdd_rejectsEmptyTransportName(t *testing.T) {
	in := newTestInstance(t, nil)
	err := in.Add("role:cmd", "")
	require.Error(t, err)
}

// S5 companion: ForbidSameRouteNames rejects an exact-duplicate pattern (I3).
func TestAdd_duplicatePatternRejectedWhenForbidden(t *testing.T) {
	in := newTestInstance(t, func(c *config.Config) { c.ForbidSameRouteNames = true })

	require.NoError(t, in.Add("role:cmd,cmd:add", bishop.Handler(echoHandler)))
	err := in.Add("role:cmd,cmd:add", bishop.Handler(echoHandler))

	require.Error(t, err)
	require.True(t, bishoperr.Is(err, bishoperr.DuplicatePattern))
}

func TestRemove_isIdempotent(t *testing.T) {
	in := newTestInstance(t, nil)
	require.NoError(t, in.Add("role:cmd,cmd:add", bishop.Handler(echoHandler)))

	require.NoError(t, in.Remove("role:cmd,cmd:add"))
	require.NoError(t, in.Remove("role:cmd,cmd:add")) // removing twice is not an error

	_, err := in.Act(context.Background(), "role:cmd,cmd:add")
	require.Error(t, err)
	require.True(t, bishoperr.Is(err, bishoperr.PatternNotFound))
}
