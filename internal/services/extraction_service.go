package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwelldocs/inkwell/internal/chunker"
	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/models"
)

// ProgressFunc is invoked after each processed page.
type ProgressFunc func(pagesDone, totalPages int)

// ExtractionService turns a stored document into pages and chunks.
// Per page it prefers the native text layer; pages whose trimmed text
// is shorter than MinTextLength are rasterized and OCR'd instead.
// Image documents skip the native path and OCR the whole blob as page
// one. All pages and chunks of a run are committed in a single
// replace-all write; a failed run commits nothing.
type ExtractionService struct {
	db       core.DbClient
	storage  core.ObjectClient
	pages    core.PageReader
	raster   core.Rasterizer
	ocr      core.OCRBackend
	detector core.LanguageDetector
	log      *zap.Logger

	Bucket        string
	MinTextLength int
	ChunkSize     int
	ChunkOverlap  int
	ScratchDir    string
}

func NewExtractionService(
	db core.DbClient,
	storage core.ObjectClient,
	pages core.PageReader,
	raster core.Rasterizer,
	ocr core.OCRBackend,
	detector core.LanguageDetector,
	log *zap.Logger,
) *ExtractionService {
	return &ExtractionService{
		db:       db,
		storage:  storage,
		pages:    pages,
		raster:   raster,
		ocr:      ocr,
		detector: detector,
		log:      log,

		MinTextLength: 32,
		ChunkSize:     500,
		ChunkOverlap:  50,
		ScratchDir:    os.TempDir(),
	}
}

// Extract runs the full pipeline for one document and returns the
// number of pages and chunks written.
func (s *ExtractionService) Extract(ctx context.Context, doc *models.Document, progress ProgressFunc) (int, int, error) {
	blob, err := s.storage.GetFile(ctx, s.Bucket, doc.StorageKey)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: fetch document: %v", core.ErrExtraction, err)
	}

	tmp, err := s.writeScratchFile(doc.FileName, blob)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", core.ErrExtraction, err)
	}
	defer func() {
		if err := os.Remove(tmp); err != nil {
			s.log.Warn("failed to remove scratch file", zap.String("path", tmp), zap.Error(err))
		}
	}()

	var pages []models.DocumentPage
	var chunks []models.DocumentChunk

	if strings.HasPrefix(doc.ContentType, "image/") {
		// Image-only document: one visual page, OCR directly.
		text, err := s.ocr.ExtractText(ctx, tmp)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: ocr: %v", core.ErrExtraction, err)
		}
		pages, chunks = s.appendPage(doc.ID, pages, chunks, 1, text)
		if progress != nil {
			progress(1, 1)
		}
	} else {
		pageTexts, err := s.pages.ReadPages(tmp)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %v", core.ErrExtraction, err)
		}
		total := len(pageTexts)
		if total < 1 {
			total = 1
		}
		for i, text := range pageTexts {
			pageNumber := i + 1
			if len(strings.TrimSpace(text)) < s.MinTextLength {
				text, err = s.ocrPage(ctx, tmp, pageNumber)
				if err != nil {
					return 0, 0, err
				}
			}
			pages, chunks = s.appendPage(doc.ID, pages, chunks, pageNumber, text)
			if progress != nil {
				progress(pageNumber, total)
			}
		}
	}

	if err := s.db.ReplacePagesAndChunks(ctx, doc.ID, pages, chunks); err != nil {
		return 0, 0, fmt.Errorf("commit pages and chunks: %w", err)
	}
	s.updateLanguageIfMissing(ctx, doc, pages)

	return len(pages), len(chunks), nil
}

// ocrPage rasterizes one page and OCRs the resulting image. The image
// is temporary; failing to delete it is logged, not returned.
func (s *ExtractionService) ocrPage(ctx context.Context, docPath string, pageNumber int) (string, error) {
	imagePath, err := s.raster.RasterizePage(docPath, pageNumber, s.ScratchDir)
	if err != nil {
		return "", fmt.Errorf("%w: page %d: %v", core.ErrExtraction, pageNumber, err)
	}
	defer func() {
		if err := os.Remove(imagePath); err != nil {
			s.log.Warn("failed to remove page image", zap.String("path", imagePath), zap.Error(err))
		}
	}()

	text, err := s.ocr.ExtractText(ctx, imagePath)
	if err != nil {
		return "", fmt.Errorf("%w: ocr page %d: %v", core.ErrExtraction, pageNumber, err)
	}
	return text, nil
}

func (s *ExtractionService) appendPage(docID string, pages []models.DocumentPage, chunks []models.DocumentChunk, pageNumber int, text string) ([]models.DocumentPage, []models.DocumentChunk) {
	pages = append(pages, models.DocumentPage{
		ID:         uuid.NewString(),
		DocumentID: docID,
		PageNumber: pageNumber,
		Text:       text,
	})
	for chunkIndex, r := range chunker.Ranges(text, s.ChunkSize, s.ChunkOverlap) {
		chunks = append(chunks, models.DocumentChunk{
			ID:          uuid.NewString(),
			DocumentID:  docID,
			PageNumber:  pageNumber,
			ChunkIndex:  chunkIndex,
			StartOffset: r.Start,
			EndOffset:   r.End,
		})
	}
	return pages, chunks
}

// updateLanguageIfMissing detects and persists the document language,
// but only when no language is set yet; a caller-provided or
// previously detected value is never overwritten. Detection is best
// effort and does not fail the extraction run.
func (s *ExtractionService) updateLanguageIfMissing(ctx context.Context, doc *models.Document, pages []models.DocumentPage) {
	if doc.Language != "" {
		return
	}
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	language := s.detector.Detect(strings.Join(texts, "\n"))
	if language == "" {
		return
	}
	if err := s.db.SetDocumentLanguage(ctx, doc.ID, language); err != nil {
		s.log.Warn("failed to persist detected language", zap.String("document_id", doc.ID), zap.Error(err))
		return
	}
	doc.Language = language
}

// writeScratchFile lands the blob on disk for the pdf and OCR tooling,
// preserving the original extension.
func (s *ExtractionService) writeScratchFile(fileName string, blob []byte) (string, error) {
	ext := filepath.Ext(fileName)
	f, err := os.CreateTemp(s.ScratchDir, "inkwell-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := f.Write(blob); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close scratch file: %w", err)
	}
	return f.Name(), nil
}
