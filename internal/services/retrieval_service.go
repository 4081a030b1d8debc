package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/models"
)

// RetrievalService ranks the chunks of one document against a query.
// The per-document vector index is rebuilt lazily: whenever the number
// of indexed ids differs from the number of usable chunks, every chunk
// snippet is re-embedded and the index replaced before searching.
type RetrievalService struct {
	db       core.DbClient
	index    core.VectorIndex
	embedder *EmbeddingService
	log      *zap.Logger
}

func NewRetrievalService(db core.DbClient, index core.VectorIndex, embedder *EmbeddingService, log *zap.Logger) *RetrievalService {
	return &RetrievalService{db: db, index: index, embedder: embedder, log: log}
}

// chunkSnippet pairs a chunk with the text it covers.
type chunkSnippet struct {
	chunk   models.DocumentChunk
	snippet string
}

// Retrieve returns up to topK results for the page starting at offset,
// highest score first, dropping results scoring below minScore. A
// blank query or a document without extracted chunks yields no
// results.
func (s *RetrievalService) Retrieve(ctx context.Context, documentID, query string, topK, offset int, minScore float64) ([]models.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return []models.RetrievalResult{}, nil
	}
	if topK <= 0 {
		return []models.RetrievalResult{}, nil
	}
	if offset < 0 {
		offset = 0
	}

	snippets, err := s.loadSnippets(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(snippets) == 0 {
		return []models.RetrievalResult{}, nil
	}

	if err := s.ensureIndexed(ctx, documentID, snippets); err != nil {
		return nil, err
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := s.index.Search(ctx, documentID, queryVector, topK+offset)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	// Page first, then filter: the offset always walks the raw
	// ranking, so consecutive pages never skip or repeat matches
	// regardless of the score threshold.
	if offset >= len(matches) {
		return []models.RetrievalResult{}, nil
	}
	matches = matches[offset:]
	if len(matches) > topK {
		matches = matches[:topK]
	}

	byID := make(map[string]chunkSnippet, len(snippets))
	for _, cs := range snippets {
		byID[cs.chunk.ID] = cs
	}

	results := make([]models.RetrievalResult, 0, len(matches))
	for _, m := range matches {
		if m.Score < minScore {
			continue
		}
		cs, ok := byID[m.ChunkID]
		if !ok {
			s.log.Warn("index returned unknown chunk id",
				zap.String("document_id", documentID), zap.String("chunk_id", m.ChunkID))
			continue
		}
		results = append(results, models.RetrievalResult{
			DocumentID: documentID,
			PageNumber: cs.chunk.PageNumber,
			ChunkIndex: cs.chunk.ChunkIndex,
			Snippet:    cs.snippet,
			Score:      m.Score,
		})
	}
	return results, nil
}

// loadSnippets materializes chunk texts by slicing each chunk's range
// out of its page. Chunks pointing at a missing page are skipped.
func (s *RetrievalService) loadSnippets(ctx context.Context, documentID string) ([]chunkSnippet, error) {
	pages, err := s.db.ListPages(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	chunks, err := s.db.ListChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	textByPage := make(map[int]string, len(pages))
	for _, p := range pages {
		textByPage[p.PageNumber] = p.Text
	}

	snippets := make([]chunkSnippet, 0, len(chunks))
	for _, c := range chunks {
		text, ok := textByPage[c.PageNumber]
		if !ok {
			s.log.Warn("chunk references missing page",
				zap.String("document_id", documentID), zap.Int("page_number", c.PageNumber))
			continue
		}
		start, end := c.StartOffset, c.EndOffset
		if start < 0 || end > len(text) || start >= end {
			continue
		}
		snippets = append(snippets, chunkSnippet{chunk: c, snippet: text[start:end]})
	}
	return snippets, nil
}

// ensureIndexed rebuilds the document's index when it is absent or
// stale. Staleness is an id-count mismatch against the usable chunks.
func (s *RetrievalService) ensureIndexed(ctx context.Context, documentID string, snippets []chunkSnippet) error {
	ids, err := s.index.Load(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	if len(ids) == len(snippets) {
		return nil
	}

	texts := make([]string, len(snippets))
	chunkIDs := make([]string, len(snippets))
	for i, cs := range snippets {
		texts[i] = cs.snippet
		chunkIDs[i] = cs.chunk.ID
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if err := s.index.Save(ctx, documentID, vectors, chunkIDs); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	s.log.Info("rebuilt document index",
		zap.String("document_id", documentID), zap.Int("chunks", len(snippets)))
	return nil
}
