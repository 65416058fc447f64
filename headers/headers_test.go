package headers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afoninsky/bishop/bishoperr"
	"github.com/afoninsky/bishop/pattern"
)

func TestNormalize_GeneratesIDWhenAbsent(t *testing.T) {
	h, err := Normalize(Input{})
	require.NoError(t, err)
	assert.Len(t, h.ID, 10)
}

func TestNormalize_PreservesExplicitID(t *testing.T) {
	h, err := Normalize(Input{ActHeaders: map[string]any{"id": "abc1234567"}})
	require.NoError(t, err)
	assert.Equal(t, "abc1234567", h.ID)
}

func TestNormalize_PreservesExplicitID_ArbitraryShapeAllowed(t *testing.T) {
	h, err := Normalize(Input{ActHeaders: map[string]any{"id": "my-correlation-id"}})
	require.NoError(t, err)
	assert.Equal(t, "my-correlation-id", h.ID)
}

func TestNormalize_ActOverwritesAdd(t *testing.T) {
	h, err := Normalize(Input{
		AddHeaders: map[string]any{"timeout": 500},
		ActHeaders: map[string]any{"timeout": 1000},
	})
	require.NoError(t, err)
	assert.Equal(t, time.Second, h.Timeout)
}

func TestNormalize_InjectsPatternAndSource(t *testing.T) {
	matched := pattern.Pattern{"role": pattern.String("math")}
	source := pattern.Pattern{"role": pattern.String("math"), "a": pattern.String("1")}

	h, err := Normalize(Input{MatchedPattern: matched, SourceMessage: source})
	require.NoError(t, err)
	assert.Equal(t, matched, h.Pattern)
	assert.Equal(t, source, h.Source)
}

func TestNormalize_NotifyCoercion_True(t *testing.T) {
	h, err := Normalize(Input{ActHeaders: map[string]any{"notify": true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"local"}, h.Notify)
}

func TestNormalize_NotifyCoercion_StringTrue(t *testing.T) {
	h, err := Normalize(Input{ActHeaders: map[string]any{"notify": "true"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"local"}, h.Notify)
}

func TestNormalize_NotifyCoercion_Regex(t *testing.T) {
	c, err := pattern.NewCache(1)
	require.NoError(t, err)
	p, err := c.Parse("x:/.*/")
	require.NoError(t, err)

	h, err := Normalize(Input{ActHeaders: map[string]any{"notify": p["x"]}})
	require.NoError(t, err)
	assert.Equal(t, []string{"local"}, h.Notify)
}

func TestNormalize_NotifyCoercion_CommaSeparated(t *testing.T) {
	h, err := Normalize(Input{ActHeaders: map[string]any{"notify": "a, b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, h.Notify)
}

func TestNormalize_NotifyCoercion_AlreadyList(t *testing.T) {
	h, err := Normalize(Input{ActHeaders: map[string]any{"notify": []string{"a", "b"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, h.Notify)
}

func TestNormalize_RejectsDuplicateNotify(t *testing.T) {
	_, err := Normalize(Input{ActHeaders: map[string]any{"notify": "a,a"}})
	require.Error(t, err)
	assert.True(t, bishoperr.Is(err, bishoperr.InvalidHeaders))
}

func TestNormalize_RejectsNegativeTimeout(t *testing.T) {
	h := &Headers{ID: "abcdefghij", Timeout: -1}
	err := validate.Struct(h)
	require.Error(t, err)
}
