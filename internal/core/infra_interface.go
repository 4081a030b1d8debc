package core

import (
	"context"

	"github.com/inkwelldocs/inkwell/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a
// specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	// GetDocumentForUser returns nil when the document does not exist or
	// belongs to a different user; callers cannot tell the two apart.
	GetDocumentForUser(ctx context.Context, id, userID string) (*models.Document, error)
	ListDocumentsForUser(ctx context.Context, userID string) ([]models.DocumentStats, error)
	UpdateDocumentStatus(ctx context.Context, id string, status string) error
	SetDocumentLanguage(ctx context.Context, id string, language string) error

	// ReplacePagesAndChunks deletes all pages and chunks of the document
	// and inserts the given ones in a single transaction.
	ReplacePagesAndChunks(ctx context.Context, documentID string, pages []models.DocumentPage, chunks []models.DocumentChunk) error
	ListPages(ctx context.Context, documentID string) ([]models.DocumentPage, error)
	ListChunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// VectorMatch is one nearest-neighbor hit: the chunk id and its
// inner-product similarity (cosine, given pre-normalized vectors).
type VectorMatch struct {
	ChunkID string
	Score   float64
}

// VectorIndex is the per-document nearest-neighbor index. Save fully
// overwrites the previous index for the document; vectors and ids are
// parallel and written together, so readers never see them diverge.
type VectorIndex interface {
	Save(ctx context.Context, documentID string, vectors [][]float32, ids []string) error
	// Load returns the stored chunk ids in index order; an empty slice
	// means no index exists for the document.
	Load(ctx context.Context, documentID string) ([]string, error)
	// Search returns up to topK matches ordered by descending score,
	// ties broken by index order (lower ordinal first). Entries whose
	// id cannot be resolved are skipped.
	Search(ctx context.Context, documentID string, query []float32, topK int) ([]VectorMatch, error)
}

// EmbeddingCache maps exact text content to a previously computed
// vector. The cache is advisory: implementations swallow backend
// failures and report a miss instead, so call sites never see an error.
type EmbeddingCache interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Put(ctx context.Context, text string, vector []float32)
}
