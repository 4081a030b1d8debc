package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	middleware "github.com/inkwelldocs/inkwell/internal/api/middlewares"
	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/index"
	"github.com/inkwelldocs/inkwell/internal/jobs"
	"github.com/inkwelldocs/inkwell/internal/models"
	"github.com/inkwelldocs/inkwell/internal/services"
)

// stubDB holds just enough state for handler tests.
type stubDB struct {
	documents map[string]*models.Document
	pages     map[string][]models.DocumentPage
	chunks    map[string][]models.DocumentChunk
}

func newStubDB() *stubDB {
	return &stubDB{
		documents: make(map[string]*models.Document),
		pages:     make(map[string][]models.DocumentPage),
		chunks:    make(map[string][]models.DocumentChunk),
	}
}

func (s *stubDB) CreateUser(ctx context.Context, u *models.User) error { return nil }
func (s *stubDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}
func (s *stubDB) CreateDocument(ctx context.Context, d *models.Document) error {
	s.documents[d.ID] = d
	return nil
}
func (s *stubDB) GetDocumentForUser(ctx context.Context, id, userID string) (*models.Document, error) {
	d, ok := s.documents[id]
	if !ok || d.UserID != userID {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}
func (s *stubDB) ListDocumentsForUser(ctx context.Context, userID string) ([]models.DocumentStats, error) {
	return nil, nil
}
func (s *stubDB) UpdateDocumentStatus(ctx context.Context, id, status string) error     { return nil }
func (s *stubDB) SetDocumentLanguage(ctx context.Context, id, language string) error    { return nil }
func (s *stubDB) ReplacePagesAndChunks(ctx context.Context, docID string, pages []models.DocumentPage, chunks []models.DocumentChunk) error {
	return nil
}
func (s *stubDB) ListPages(ctx context.Context, docID string) ([]models.DocumentPage, error) {
	return s.pages[docID], nil
}
func (s *stubDB) ListChunks(ctx context.Context, docID string) ([]models.DocumentChunk, error) {
	return s.chunks[docID], nil
}
func (s *stubDB) Close() error { return nil }

var _ core.DbClient = (*stubDB)(nil)

type stubStorage struct{}

func (stubStorage) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	return "https://example.test/" + key, nil
}
func (stubStorage) DeleteFile(ctx context.Context, bucket, key string) error { return nil }
func (stubStorage) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	return nil, errors.New("not stored")
}

var _ core.ObjectClient = stubStorage{}

// stubEmbedder embeds every text as a constant unit vector, making all
// scores equal to 1.
type stubEmbedder struct{}

func (stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type nopCache struct{}

func (nopCache) Get(ctx context.Context, text string) ([]float32, bool) { return nil, false }
func (nopCache) Put(ctx context.Context, text string, vec []float32)    {}

func authed(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestJobsHandlerOwnerScoping(t *testing.T) {
	store := jobs.NewStore()
	h := NewJobsHandler(store, zap.NewNop())

	job := store.Create("extract", "owner-1")
	store.Update(job.ID, jobs.StatusRunning, "extracting", 40)

	t.Run("owner sees the job", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
		req = withURLParam(authed(req, "owner-1"), "job_id", job.ID)
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got jobs.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, jobs.StatusRunning, got.Status)
		assert.Equal(t, 40, got.Progress)
	})

	t.Run("other user gets 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
		req = withURLParam(authed(req, "intruder"), "job_id", job.ID)
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown job gets 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
		req = withURLParam(authed(req, "owner-1"), "job_id", "nope")
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unauthenticated gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
		req = withURLParam(req, "job_id", job.ID)
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func newSearchFixture(t *testing.T) (*RetrievalHandler, *stubDB) {
	t.Helper()
	db := newStubDB()
	db.documents["doc-1"] = &models.Document{ID: "doc-1", UserID: "owner-1", FileName: "a.pdf"}
	db.pages["doc-1"] = []models.DocumentPage{{ID: "p1", DocumentID: "doc-1", PageNumber: 1, Text: "hello world"}}
	db.chunks["doc-1"] = []models.DocumentChunk{
		{ID: "c1", DocumentID: "doc-1", PageNumber: 1, ChunkIndex: 0, StartOffset: 0, EndOffset: 5},
		{ID: "c2", DocumentID: "doc-1", PageNumber: 1, ChunkIndex: 1, StartOffset: 6, EndOffset: 11},
	}

	documents := services.NewDocumentService(db, stubStorage{}, "bucket")
	embedding := services.NewEmbeddingService(stubEmbedder{}, nopCache{})
	retrieval := services.NewRetrievalService(db, index.NewMemory(), embedding, zap.NewNop())
	return NewRetrievalHandler(documents, retrieval, 5, zap.NewNop()), db
}

func TestSearchHandler(t *testing.T) {
	h, _ := newSearchFixture(t)

	body := strings.NewReader(`{"query":"hello","top_k":2}`)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/doc-1/search", body)
	req = withURLParam(authed(req, "owner-1"), "document_id", "doc-1")
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Results []models.RetrievalResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "doc-1", resp.Results[0].DocumentID)
	assert.Equal(t, "hello", resp.Results[0].Snippet)
	assert.Equal(t, "world", resp.Results[1].Snippet)
}

func TestSearchHandlerForeignDocument(t *testing.T) {
	h, _ := newSearchFixture(t)

	body := strings.NewReader(`{"query":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/doc-1/search", body)
	req = withURLParam(authed(req, "someone-else"), "document_id", "doc-1")
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchHandlerBadBody(t *testing.T) {
	h, _ := newSearchFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/documents/doc-1/search", strings.NewReader("{"))
	req = withURLParam(authed(req, "owner-1"), "document_id", "doc-1")
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubQABackend struct{}

func (stubQABackend) Answer(ctx context.Context, question, passage, preset string) (models.QAAnswer, error) {
	if strings.Contains(passage, "world") {
		return models.QAAnswer{Answer: "the world answer", Score: 0.9}, nil
	}
	return models.QAAnswer{Answer: "weak", Score: 0.1}, nil
}

type stubEntities struct{}

func (stubEntities) Extract(text, language string) ([]models.Entity, error) {
	return []models.Entity{{Text: "World", Label: "GPE"}}, nil
}

func TestAskAsyncJobLifecycle(t *testing.T) {
	db := newStubDB()
	db.documents["doc-1"] = &models.Document{ID: "doc-1", UserID: "owner-1", FileName: "a.pdf"}
	db.pages["doc-1"] = []models.DocumentPage{{ID: "p1", DocumentID: "doc-1", PageNumber: 1, Text: "hello world"}}
	db.chunks["doc-1"] = []models.DocumentChunk{
		{ID: "c1", DocumentID: "doc-1", PageNumber: 1, ChunkIndex: 0, StartOffset: 0, EndOffset: 5},
		{ID: "c2", DocumentID: "doc-1", PageNumber: 1, ChunkIndex: 1, StartOffset: 6, EndOffset: 11},
	}

	documents := services.NewDocumentService(db, stubStorage{}, "bucket")
	embedding := services.NewEmbeddingService(stubEmbedder{}, nopCache{})
	retrieval := services.NewRetrievalService(db, index.NewMemory(), embedding, zap.NewNop())
	qa := services.NewQAService(stubQABackend{}, zap.NewNop())
	store := jobs.NewStore()
	h := NewQAHandler(documents, retrieval, qa, stubEntities{}, store, 5, zap.NewNop())

	body := strings.NewReader(`{"question":"what is the answer?","top_k":2}`)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/doc-1/ask/async", body)
	req = withURLParam(authed(req, "owner-1"), "document_id", "doc-1")
	rec := httptest.NewRecorder()
	h.AskAsync(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	jobID := accepted["job_id"]
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		record, ok := store.Get(jobID)
		return ok && record.Status == jobs.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	record, ok := store.Get(jobID)
	require.True(t, ok)
	assert.Equal(t, 100, record.Progress)
	assert.Equal(t, "the world answer", record.Result["answer"])
}

func TestExtractAsyncFailureMarksJobFailed(t *testing.T) {
	db := newStubDB()
	db.documents["doc-1"] = &models.Document{
		ID: "doc-1", UserID: "owner-1", FileName: "a.pdf",
		ContentType: "application/pdf", StorageKey: "missing-key",
	}

	documents := services.NewDocumentService(db, stubStorage{}, "bucket")
	// stubStorage serves no blobs, so extraction fails at fetch.
	extraction := services.NewExtractionService(
		db, stubStorage{}, failingPageReader{}, nil, nil, noDetector{}, zap.NewNop(),
	)
	store := jobs.NewStore()
	h := NewDocumentHandler(documents, extraction, store, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/doc-1/extract/async", nil)
	req = withURLParam(authed(req, "owner-1"), "document_id", "doc-1")
	rec := httptest.NewRecorder()
	h.ExtractAsync(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	jobID := accepted["job_id"]

	require.Eventually(t, func() bool {
		record, ok := store.Get(jobID)
		return ok && record.Status == jobs.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	record, _ := store.Get(jobID)
	assert.NotEmpty(t, record.Error, "failure reason is surfaced on the job")
}

type failingPageReader struct{}

func (failingPageReader) ReadPages(path string) ([]string, error) {
	return nil, errors.New("unreadable")
}

type noDetector struct{}

func (noDetector) Detect(text string) string { return "" }

type servingStorage struct{ stubStorage }

func (servingStorage) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	return []byte("%PDF-1.4 bytes"), nil
}

type panickingPageReader struct{}

func (panickingPageReader) ReadPages(path string) ([]string, error) {
	panic("malformed content stream")
}

type panickingEmbedder struct{}

func (panickingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	panic("embedder blew up")
}

func TestExtractAsyncPanicMarksJobFailed(t *testing.T) {
	db := newStubDB()
	db.documents["doc-1"] = &models.Document{
		ID: "doc-1", UserID: "owner-1", FileName: "a.pdf",
		ContentType: "application/pdf", StorageKey: "key",
	}

	documents := services.NewDocumentService(db, servingStorage{}, "bucket")
	extraction := services.NewExtractionService(
		db, servingStorage{}, panickingPageReader{}, nil, nil, noDetector{}, zap.NewNop(),
	)
	store := jobs.NewStore()
	h := NewDocumentHandler(documents, extraction, store, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/doc-1/extract/async", nil)
	req = withURLParam(authed(req, "owner-1"), "document_id", "doc-1")
	rec := httptest.NewRecorder()
	h.ExtractAsync(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	jobID := accepted["job_id"]

	require.Eventually(t, func() bool {
		record, ok := store.Get(jobID)
		return ok && record.Status == jobs.StatusFailed
	}, 5*time.Second, 10*time.Millisecond, "a panicking parser must fail the job, not leave it running")

	record, _ := store.Get(jobID)
	assert.Contains(t, record.Error, "panic")
	assert.Contains(t, record.Error, "malformed content stream")
}

func TestAskAsyncPanicMarksJobFailed(t *testing.T) {
	db := newStubDB()
	db.documents["doc-1"] = &models.Document{ID: "doc-1", UserID: "owner-1", FileName: "a.pdf"}
	db.pages["doc-1"] = []models.DocumentPage{{ID: "p1", DocumentID: "doc-1", PageNumber: 1, Text: "hello world"}}
	db.chunks["doc-1"] = []models.DocumentChunk{
		{ID: "c1", DocumentID: "doc-1", PageNumber: 1, ChunkIndex: 0, StartOffset: 0, EndOffset: 5},
	}

	documents := services.NewDocumentService(db, stubStorage{}, "bucket")
	embedding := services.NewEmbeddingService(panickingEmbedder{}, nopCache{})
	retrieval := services.NewRetrievalService(db, index.NewMemory(), embedding, zap.NewNop())
	qa := services.NewQAService(stubQABackend{}, zap.NewNop())
	store := jobs.NewStore()
	h := NewQAHandler(documents, retrieval, qa, stubEntities{}, store, 5, zap.NewNop())

	body := strings.NewReader(`{"question":"anything?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/doc-1/ask/async", body)
	req = withURLParam(authed(req, "owner-1"), "document_id", "doc-1")
	rec := httptest.NewRecorder()
	h.AskAsync(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	jobID := accepted["job_id"]

	require.Eventually(t, func() bool {
		record, ok := store.Get(jobID)
		return ok && record.Status == jobs.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	record, _ := store.Get(jobID)
	assert.Contains(t, record.Error, "panic")
}
