package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	middleware "github.com/inkwelldocs/inkwell/internal/api/middlewares"
	"github.com/inkwelldocs/inkwell/internal/jobs"
	"github.com/inkwelldocs/inkwell/internal/models"
	"github.com/inkwelldocs/inkwell/internal/services"
)

const maxUploadBytes = 50 << 20

type DocumentHandler struct {
	documents  *services.DocumentService
	extraction *services.ExtractionService
	jobStore   *jobs.Store
	log        *zap.Logger
}

func NewDocumentHandler(documents *services.DocumentService, extraction *services.ExtractionService, jobStore *jobs.Store, log *zap.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, extraction: extraction, jobStore: jobStore, log: log}
}

// Upload receives a multipart file, stores the blob, and registers the
// document. Extraction is a separate call.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}
	if len(data) > maxUploadBytes {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	// Strip any path components from the client-supplied name.
	filename := filepath.Base(header.Filename)
	language := r.FormValue("language")

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	doc, err := h.documents.UploadAndCreate(uploadCtx, userID, filename, contentType, data, language)
	if err != nil {
		h.log.Error("upload failed", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	documents, err := h.documents.ListByUser(r.Context(), userID)
	if err != nil {
		h.log.Error("list documents failed", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "failed to list documents", http.StatusInternalServerError)
		return
	}
	if documents == nil {
		documents = []models.DocumentStats{}
	}
	writeJSON(w, http.StatusOK, documents)
}

type extractResponse struct {
	DocumentID     string `json:"document_id"`
	PagesExtracted int    `json:"pages_extracted"`
	ChunksCreated  int    `json:"chunks_created"`
}

// Extract runs the pipeline synchronously and blocks until done.
func (h *DocumentHandler) Extract(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	pages, chunks, err := h.runExtraction(r.Context(), doc, nil)
	if err != nil {
		h.log.Error("extraction failed", zap.String("document_id", doc.ID), zap.Error(err))
		http.Error(w, "extraction failed", http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{
		DocumentID:     doc.ID,
		PagesExtracted: pages,
		ChunksCreated:  chunks,
	})
}

// ExtractAsync queues the pipeline and returns a job id immediately.
// Progress tracks pages: a five page document reports 20, 40, ... 100.
func (h *DocumentHandler) ExtractAsync(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}
	userID, _ := middleware.UserID(r.Context())

	job := h.jobStore.Create("extract", userID)
	h.jobStore.Update(job.ID, jobs.StatusRunning, "starting", 0)

	go func() {
		// A panicking parser must fail the job, not the process.
		defer func() {
			if rec := recover(); rec != nil {
				h.log.Error("extraction worker panicked",
					zap.String("document_id", doc.ID), zap.String("job_id", job.ID), zap.Any("panic", rec))
				h.jobStore.Fail(job.ID, fmt.Sprintf("panic: %v", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		pages, chunks, err := h.runExtraction(ctx, doc, func(done, total int) {
			h.jobStore.Update(job.ID, jobs.StatusRunning, "extracting", done*100/total)
		})
		if err != nil {
			h.log.Error("async extraction failed",
				zap.String("document_id", doc.ID), zap.String("job_id", job.ID), zap.Error(err))
			h.jobStore.Fail(job.ID, err.Error())
			return
		}
		h.jobStore.Complete(job.ID, map[string]any{
			"document_id":     doc.ID,
			"pages_extracted": pages,
			"chunks_created":  chunks,
		})
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// runExtraction wraps the pipeline with document status transitions.
func (h *DocumentHandler) runExtraction(ctx context.Context, doc *models.Document, progress services.ProgressFunc) (int, int, error) {
	if err := h.documents.SetStatus(ctx, doc.ID, "processing"); err != nil {
		return 0, 0, err
	}
	pages, chunks, err := h.extraction.Extract(ctx, doc, progress)
	if err != nil {
		if statusErr := h.documents.SetStatus(ctx, doc.ID, "failed"); statusErr != nil {
			h.log.Warn("failed to mark document failed", zap.String("document_id", doc.ID), zap.Error(statusErr))
		}
		return 0, 0, err
	}
	if err := h.documents.SetStatus(ctx, doc.ID, "processed"); err != nil {
		return 0, 0, err
	}
	return pages, chunks, nil
}

func (h *DocumentHandler) ownedDocument(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	return ownedDocumentFor(h.documents, h.log, w, r)
}
