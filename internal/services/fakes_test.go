package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/models"
)

// fakeDB is an in-memory core.DbClient for service tests.
type fakeDB struct {
	mu        sync.Mutex
	users     map[string]*models.User
	documents map[string]*models.Document
	pages     map[string][]models.DocumentPage
	chunks    map[string][]models.DocumentChunk
	languages map[string]string
	statuses  map[string]string

	createDocErr error
	replaceErr   error
	replaceCall  int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:     make(map[string]*models.User),
		documents: make(map[string]*models.Document),
		pages:     make(map[string][]models.DocumentPage),
		chunks:    make(map[string][]models.DocumentChunk),
		languages: make(map[string]string),
		statuses:  make(map[string]string),
	}
}

func (f *fakeDB) CreateUser(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Email] = u
	return nil
}

func (f *fakeDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[email], nil
}

func (f *fakeDB) CreateDocument(ctx context.Context, d *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createDocErr != nil {
		return f.createDocErr
	}
	f.documents[d.ID] = d
	return nil
}

func (f *fakeDB) GetDocumentForUser(ctx context.Context, id, userID string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[id]
	if !ok || d.UserID != userID {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDB) ListDocumentsForUser(ctx context.Context, userID string) ([]models.DocumentStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DocumentStats
	for _, d := range f.documents {
		if d.UserID == userID {
			out = append(out, models.DocumentStats{
				Document:   *d,
				PageCount:  len(f.pages[d.ID]),
				ChunkCount: len(f.chunks[d.ID]),
			})
		}
	}
	return out, nil
}

func (f *fakeDB) UpdateDocumentStatus(ctx context.Context, docID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[docID] = status
	return nil
}

func (f *fakeDB) SetDocumentLanguage(ctx context.Context, docID, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.languages[docID] = language
	return nil
}

func (f *fakeDB) ReplacePagesAndChunks(ctx context.Context, docID string, pages []models.DocumentPage, chunks []models.DocumentChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaceCall++
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.pages[docID] = pages
	f.chunks[docID] = chunks
	return nil
}

func (f *fakeDB) ListPages(ctx context.Context, docID string) ([]models.DocumentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pages[docID], nil
}

func (f *fakeDB) ListChunks(ctx context.Context, docID string) ([]models.DocumentChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chunks[docID], nil
}

func (f *fakeDB) Close() error { return nil }

var _ core.DbClient = (*fakeDB)(nil)

// fakeStorage serves blobs keyed by object key.
type fakeStorage struct {
	blobs map[string][]byte
}

func (f *fakeStorage) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	if f.blobs == nil {
		f.blobs = make(map[string][]byte)
	}
	f.blobs[key] = data
	return "https://" + bucket + ".example.test/" + key, nil
}

func (f *fakeStorage) DeleteFile(ctx context.Context, bucket, key string) error {
	delete(f.blobs, key)
	return nil
}

func (f *fakeStorage) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	blob, ok := f.blobs[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return blob, nil
}

var _ core.ObjectClient = (*fakeStorage)(nil)

// fakePageReader returns fixed page texts regardless of path.
type fakePageReader struct {
	pages []string
	err   error
}

func (f *fakePageReader) ReadPages(path string) ([]string, error) {
	return f.pages, f.err
}

// fakeRasterizer records requested pages and returns a synthetic path.
type fakeRasterizer struct {
	requested []int
	err       error
}

func (f *fakeRasterizer) RasterizePage(path string, pageNumber int, destDir string) (string, error) {
	f.requested = append(f.requested, pageNumber)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("%s/fake-page-%d.png", destDir, pageNumber), nil
}

// fakeOCR maps image paths to texts; missing paths return defaultText.
type fakeOCR struct {
	texts       map[string]string
	defaultText string
	err         error
	calls       []string
}

func (f *fakeOCR) ExtractText(ctx context.Context, imagePath string) (string, error) {
	f.calls = append(f.calls, imagePath)
	if f.err != nil {
		return "", f.err
	}
	if text, ok := f.texts[imagePath]; ok {
		return text, nil
	}
	return f.defaultText, nil
}

type fakeDetector struct {
	language string
}

func (f *fakeDetector) Detect(text string) string { return f.language }

// fakeEmbedder hashes each text deterministically into a 3-dim vector.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	batches [][]string
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if vec, ok := f.vectors[t]; ok {
			out[i] = append([]float32(nil), vec...)
			continue
		}
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

var _ core.EmbeddingModel = (*fakeEmbedder)(nil)

// mapCache is a plain map-backed core.EmbeddingCache.
type mapCache struct {
	entries map[string][]float32
	puts    int
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string][]float32)} }

func (c *mapCache) Get(ctx context.Context, text string) ([]float32, bool) {
	vec, ok := c.entries[text]
	return vec, ok
}

func (c *mapCache) Put(ctx context.Context, text string, vec []float32) {
	c.puts++
	c.entries[text] = append([]float32(nil), vec...)
}

var _ core.EmbeddingCache = (*mapCache)(nil)

// fakeQABackend answers with a fixed score per passage substring.
type fakeQABackend struct {
	answers map[string]models.QAAnswer
	err     error
	mu      sync.Mutex
	asked   []string
}

func (f *fakeQABackend) Answer(ctx context.Context, question, passage, preset string) (models.QAAnswer, error) {
	f.mu.Lock()
	f.asked = append(f.asked, passage)
	f.mu.Unlock()
	if f.err != nil {
		return models.QAAnswer{}, f.err
	}
	for needle, a := range f.answers {
		if needle != "" && strings.Contains(passage, needle) {
			return a, nil
		}
	}
	return models.QAAnswer{}, nil
}

var _ core.QABackend = (*fakeQABackend)(nil)
