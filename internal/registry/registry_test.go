package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterReplacesOnDuplicate(t *testing.T) {
	r := NewBaseRegistry[string]()
	require.NoError(t, r.Register("ls", "first"))
	require.NoError(t, r.Register("ls", "second"))

	assert.Equal(t, 1, r.Count())
	got, ok := r.Get("ls")
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestListOrderStableAcrossCalls(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("c", 3))
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))

	first := r.Names()
	second := r.Names()
	assert.Equal(t, []string{"c", "a", "b"}, first)
	assert.Equal(t, first, second)
}

func TestRemoveAndClear(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))

	require.NoError(t, r.Remove("a"))
	_, ok := r.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Count())

	r.Clear()
	assert.Equal(t, 0, r.Count())
}
