package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySaveLoad(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ids, err := m.Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, ids, "absent index loads as empty")

	require.NoError(t, m.Save(ctx, "doc-1",
		[][]float32{{1, 0}, {0, 1}}, []string{"a", "b"}))
	ids, err = m.Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	// save overwrites the previous generation entirely
	require.NoError(t, m.Save(ctx, "doc-1",
		[][]float32{{1, 0}}, []string{"c"}))
	ids, err = m.Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids)
}

func TestMemorySearchOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, "doc-1",
		[][]float32{
			{1, 0},  // a: score 1.0 against (1,0)
			{0, 1},  // b: score 0.0
			{-1, 0}, // c: score -1.0
		},
		[]string{"a", "b", "c"}))

	got, err := m.Search(ctx, "doc-1", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ChunkID)
	assert.Equal(t, "b", got[1].ChunkID)
	assert.Equal(t, "c", got[2].ChunkID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 0.0, got[1].Score, 1e-9)

	// topK caps the result length
	got, err = m.Search(ctx, "doc-1", []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// unknown document and non-positive k are empty, not errors
	got, err = m.Search(ctx, "doc-2", []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = m.Search(ctx, "doc-1", []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// Equal scores keep insertion order, i.e. lower ordinal first.
func TestMemorySearchTieBreak(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, "doc-1",
		[][]float32{{0, 1}, {1, 0}, {1, 0}, {1, 0}},
		[]string{"w", "x", "y", "z"}))

	got, err := m.Search(ctx, "doc-1", []float32{1, 0}, 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"x", "y", "z", "w"},
		[]string{got[0].ChunkID, got[1].ChunkID, got[2].ChunkID, got[3].ChunkID})
}

// Positions without a matching id are not searchable.
func TestMemorySearchSkipsUnresolvable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, "doc-1",
		[][]float32{{1, 0}, {0, 1}}, []string{"a"}))

	got, err := m.Search(ctx, "doc-1", []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ChunkID)
}
