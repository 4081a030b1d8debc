package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwelldocs/inkwell/internal/core"
)

func TestEmbedTextsCacheFirst(t *testing.T) {
	cache := newMapCache()
	cache.entries["cached"] = []float32{0, 1, 0}
	model := &fakeEmbedder{}
	svc := NewEmbeddingService(model, cache)

	vecs, err := svc.EmbedTexts(context.Background(), []string{"cached", "fresh one", "fresh two"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Equal(t, []float32{0, 1, 0}, vecs[0])
	require.Len(t, model.batches, 1)
	assert.Equal(t, []string{"fresh one", "fresh two"}, model.batches[0],
		"only cache misses reach the model, in order")
	assert.Equal(t, 2, cache.puts)
}

func TestEmbedTextsAllCachedSkipsModel(t *testing.T) {
	cache := newMapCache()
	cache.entries["a"] = []float32{1, 0, 0}
	cache.entries["b"] = []float32{0, 1, 0}
	model := &fakeEmbedder{err: errors.New("model must not be called")}
	svc := NewEmbeddingService(model, cache)

	vecs, err := svc.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1, 0}, vecs[1])
	assert.Empty(t, model.batches)
}

func TestEmbedTextsNormalizesFreshVectors(t *testing.T) {
	model := &fakeEmbedder{vectors: map[string][]float32{"x": {3, 4, 0}}}
	svc := NewEmbeddingService(model, newMapCache())

	vecs, err := svc.EmbedTexts(context.Background(), []string{"x"})
	require.NoError(t, err)

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
	assert.InDelta(t, 0.6, vecs[0][0], 1e-6)
	assert.InDelta(t, 0.8, vecs[0][1], 1e-6)
}

func TestEmbedTextsModelErrorWrapped(t *testing.T) {
	model := &fakeEmbedder{err: errors.New("quota exceeded")}
	svc := NewEmbeddingService(model, newMapCache())

	_, err := svc.EmbedTexts(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrModel)
}

func TestEmbedQuery(t *testing.T) {
	model := &fakeEmbedder{vectors: map[string][]float32{"hello": {0, 0, 2}}}
	cache := newMapCache()
	svc := NewEmbeddingService(model, cache)

	vec, err := svc.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, vec)

	// Second call is served from the cache.
	vec2, err := svc.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, vec, vec2)
	require.Len(t, model.batches, 1)
}
