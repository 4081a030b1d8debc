// Package index holds the per-document vector index implementations.
package index

import (
	"context"
	"sort"
	"sync"

	"github.com/inkwelldocs/inkwell/internal/core"
)

type docIndex struct {
	vectors [][]float32
	ids     []string
}

// Memory is a brute-force inner-product index kept in process memory.
// Vectors are expected pre-normalized, so inner product equals cosine
// similarity. Save overwrites the document's vectors and ids together,
// so the two never diverge within one index generation.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]docIndex
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]docIndex)}
}

func (m *Memory) Save(ctx context.Context, documentID string, vectors [][]float32, ids []string) error {
	vecs := make([][]float32, len(vectors))
	copy(vecs, vectors)
	idCopy := make([]string, len(ids))
	copy(idCopy, ids)

	m.mu.Lock()
	m.docs[documentID] = docIndex{vectors: vecs, ids: idCopy}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(ctx context.Context, documentID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return nil, nil
	}
	out := make([]string, len(doc.ids))
	copy(out, doc.ids)
	return out, nil
}

func (m *Memory) Search(ctx context.Context, documentID string, query []float32, topK int) ([]core.VectorMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	doc, ok := m.docs[documentID]
	m.mu.RUnlock()
	if !ok || len(doc.ids) == 0 {
		return nil, nil
	}

	type scored struct {
		ord   int
		score float64
	}
	// Only positions covered by both slices are searchable; anything
	// past the shorter slice has no resolvable id or vector.
	n := len(doc.vectors)
	if len(doc.ids) < n {
		n = len(doc.ids)
	}
	candidates := make([]scored, 0, n)
	for i := 0; i < n; i++ {
		candidates = append(candidates, scored{ord: i, score: dot(doc.vectors[i], query)})
	}

	// Descending score, ties broken by insertion order.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	out := make([]core.VectorMatch, 0, topK)
	for _, c := range candidates[:topK] {
		out = append(out, core.VectorMatch{ChunkID: doc.ids[c.ord], Score: c.score})
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

var _ core.VectorIndex = (*Memory)(nil)
