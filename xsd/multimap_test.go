package xsd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiMapAddIdempotent(t *testing.T) {
	mm := newMultiMap()
	assert.True(t, mm.Add("ns", "a"))
	assert.False(t, mm.Add("ns", "a"), "re-adding the same pair should report no change")
	assert.True(t, mm.Add("ns", "b"))
	assert.ElementsMatch(t, []string{"a", "b"}, mm.Values("ns"))
}

func TestMultiMapHas(t *testing.T) {
	mm := newMultiMap()
	mm.Add("ns", "a")
	assert.True(t, mm.Has("ns", "a"))
	assert.False(t, mm.Has("ns", "b"))
	assert.False(t, mm.Has("other", "a"))
}

func TestMultiMapKeysAndValuesSorted(t *testing.T) {
	mm := newMultiMap()
	mm.Add("b", "z")
	mm.Add("a", "y")
	mm.Add("a", "x")
	assert.Equal(t, []string{"a", "b"}, mm.Keys())
	assert.Equal(t, []string{"x", "y"}, mm.Values("a"))
}

func TestMultiMapSnapshot(t *testing.T) {
	mm := newMultiMap()
	mm.Add("a", "1")
	mm.Add("a", "2")
	snap := mm.Snapshot()
	assert.Equal(t, map[string][]string{"a": {"1", "2"}}, snap)
}
