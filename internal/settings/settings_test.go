package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapGetter map[string]string

func (m mapGetter) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func TestGetString(t *testing.T) {
	g := mapGetter{"a": "x", "empty": ""}
	ctx := context.Background()

	v, err := GetString(ctx, g, "a", "def")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	v, err = GetString(ctx, g, "missing", "def")
	require.NoError(t, err)
	assert.Equal(t, "def", v)

	// an empty stored value also falls back
	v, err = GetString(ctx, g, "empty", "def")
	require.NoError(t, err)
	assert.Equal(t, "def", v)
}

func TestGetInt(t *testing.T) {
	g := mapGetter{"n": "42", "bad": "forty-two"}
	ctx := context.Background()

	n, err := GetInt(ctx, g, "n", 7)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = GetInt(ctx, g, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	// malformed values fall back instead of erroring
	n, err = GetInt(ctx, g, "bad", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestGetBool(t *testing.T) {
	g := mapGetter{"t": "true", "one": "1", "f": "false", "junk": "maybe"}
	ctx := context.Background()

	for key, want := range map[string]bool{"t": true, "one": true, "f": false} {
		v, err := GetBool(ctx, g, key, !want)
		require.NoError(t, err)
		assert.Equal(t, want, v, key)
	}

	v, err := GetBool(ctx, g, "junk", true)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestGetJSON(t *testing.T) {
	g := mapGetter{"list": `[1,2,3]`, "bad": `{`}
	ctx := context.Background()

	var out []int
	ok, err := GetJSON(ctx, g, "list", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, out)

	ok, err = GetJSON(ctx, g, "missing", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = GetJSON(ctx, g, "bad", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}
