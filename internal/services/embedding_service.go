package services

import (
	"context"
	"fmt"
	"math"

	"github.com/inkwelldocs/inkwell/internal/core"
)

// EmbeddingService fronts the embedding model with the shared
// content-addressed cache. Only texts that miss the cache are sent to
// the model, in their original relative order; fresh vectors are
// normalized, written back to the cache, and merged into the output at
// their original positions.
type EmbeddingService struct {
	model core.EmbeddingModel
	cache core.EmbeddingCache
}

func NewEmbeddingService(model core.EmbeddingModel, cache core.EmbeddingCache) *EmbeddingService {
	return &EmbeddingService{model: model, cache: cache}
}

func (s *EmbeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if vec, ok := s.cache.Get(ctx, t); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) > 0 {
		vecs, err := s.model.EmbedTexts(ctx, missTexts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrModel, err)
		}
		if len(vecs) != len(missTexts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", core.ErrModel, len(vecs), len(missTexts))
		}
		for j, vec := range vecs {
			normalize(vec)
			s.cache.Put(ctx, missTexts[j], vec)
			out[missIdx[j]] = vec
		}
	}

	return out, nil
}

// EmbedQuery is the single-text case of EmbedTexts.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// normalize scales the vector to unit L2 norm in place, so inner
// product against other normalized vectors equals cosine similarity.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}
