package services

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/models"
)

type DocumentService struct {
	db      core.DbClient
	storage core.ObjectClient
	bucket  string
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, bucket string) *DocumentService {
	return &DocumentService{db: db, storage: storage, bucket: bucket}
}

// UploadAndCreate stores the blob and registers the document in
// status "uploaded". An optional language hint is persisted as-is.
func (s *DocumentService) UploadAndCreate(ctx context.Context, userID, filename, contentType string, data []byte, language string) (*models.Document, error) {
	docID := uuid.NewString()
	key := s.objectKey(userID, docID, filename)

	url, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:          docID,
		UserID:      userID,
		FileName:    filename,
		ContentType: contentType,
		StorageKey:  key,
		StorageURL:  url,
		SizeBytes:   int64(len(data)),
		Language:    language,
		Status:      "uploaded",
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		// The blob has no owning row; remove it so storage does not
		// accumulate orphans. Best effort.
		_ = s.storage.DeleteFile(ctx, s.bucket, key)
		return nil, err
	}
	return doc, nil
}

// Get returns the document only when it belongs to userID; absent and
// foreign documents both come back nil.
func (s *DocumentService) Get(ctx context.Context, id, userID string) (*models.Document, error) {
	return s.db.GetDocumentForUser(ctx, id, userID)
}

func (s *DocumentService) ListByUser(ctx context.Context, userID string) ([]models.DocumentStats, error) {
	return s.db.ListDocumentsForUser(ctx, userID)
}

func (s *DocumentService) SetStatus(ctx context.Context, docID string, status string) error {
	return s.db.UpdateDocumentStatus(ctx, docID, status)
}

// objectKey creates a consistent S3 key layout.
func (s *DocumentService) objectKey(userID, docID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("users", userID, "documents", docID, filename)
}
