package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/inkwelldocs/inkwell/internal/config"
	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Pool sized for an API service with background extraction workers.
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: sqlDB}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DB exposes the underlying pool so the vector index can share it.
func (c *DatabaseClient) DB() *sql.DB {
	return c.db
}

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, user.ID, user.Email, user.PasswordHash)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, user_id, file_name, content_type, storage_key, storage_url, size_bytes, language, status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.UserID, doc.FileName, doc.ContentType, doc.StorageKey,
		doc.StorageURL, doc.SizeBytes, doc.Language, doc.Status)
	return err
}

// GetDocumentForUser scopes the lookup to the owner so a missing
// document and someone else's document look identical to the caller.
func (c *DatabaseClient) GetDocumentForUser(ctx context.Context, id, userID string) (*models.Document, error) {
	const q = `
		SELECT id, user_id, file_name, content_type, storage_key, storage_url,
		       size_bytes, COALESCE(language, ''), status, created_at, updated_at
		FROM documents
		WHERE id = $1 AND user_id = $2
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id, userID).Scan(
		&d.ID, &d.UserID, &d.FileName, &d.ContentType, &d.StorageKey, &d.StorageURL,
		&d.SizeBytes, &d.Language, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocumentsForUser(ctx context.Context, userID string) ([]models.DocumentStats, error) {
	const q = `
		SELECT d.id, d.user_id, d.file_name, d.content_type, d.storage_key, d.storage_url,
		       d.size_bytes, COALESCE(d.language, ''), d.status, d.created_at, d.updated_at,
		       COUNT(DISTINCT p.id) AS page_count,
		       COUNT(DISTINCT ch.id) AS chunk_count
		FROM documents d
		LEFT JOIN document_pages p ON p.document_id = d.id
		LEFT JOIN document_chunks ch ON ch.document_id = d.id
		WHERE d.user_id = $1
		GROUP BY d.id
		ORDER BY d.created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentStats
	for rows.Next() {
		var s models.DocumentStats
		d := &s.Document
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.FileName, &d.ContentType, &d.StorageKey, &d.StorageURL,
			&d.SizeBytes, &d.Language, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&s.PageCount, &s.ChunkCount,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id string, status string) error {
	const q = `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) SetDocumentLanguage(ctx context.Context, id string, language string) error {
	const q = `
		UPDATE documents
		SET language = $2, updated_at = now()
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, language)
	return err
}

// ReplacePagesAndChunks swaps the document's pages and chunks for the
// given ones in one transaction. Readers see the old set or the new
// set, never a mix.
func (c *DatabaseClient) ReplacePagesAndChunks(ctx context.Context, documentID string, pages []models.DocumentPage, chunks []models.DocumentChunk) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_pages WHERE document_id = $1`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete pages: %w", err)
	}

	const pageQ = `
		INSERT INTO document_pages (id, document_id, page_number, text)
		VALUES ($1, $2, $3, $4)
	`
	pageStmt, err := tx.PrepareContext(ctx, pageQ)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer pageStmt.Close()
	for i := range pages {
		p := &pages[i]
		if _, err := pageStmt.ExecContext(ctx, p.ID, p.DocumentID, p.PageNumber, p.Text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert page %d: %w", p.PageNumber, err)
		}
	}

	const chunkQ = `
		INSERT INTO document_chunks (id, document_id, page_number, chunk_index, start_offset, end_offset)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	chunkStmt, err := tx.PrepareContext(ctx, chunkQ)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer chunkStmt.Close()
	for i := range chunks {
		ch := &chunks[i]
		if _, err := chunkStmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.PageNumber, ch.ChunkIndex, ch.StartOffset, ch.EndOffset); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert chunk %d/%d: %w", ch.PageNumber, ch.ChunkIndex, err)
		}
	}

	return tx.Commit()
}

func (c *DatabaseClient) ListPages(ctx context.Context, documentID string) ([]models.DocumentPage, error) {
	const q = `
		SELECT id, document_id, page_number, text
		FROM document_pages
		WHERE document_id = $1
		ORDER BY page_number ASC
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentPage
	for rows.Next() {
		var p models.DocumentPage
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.PageNumber, &p.Text); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) ListChunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	const q = `
		SELECT id, document_id, page_number, chunk_index, start_offset, end_offset
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY page_number ASC, chunk_index ASC
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		var ch models.DocumentChunk
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.PageNumber, &ch.ChunkIndex, &ch.StartOffset, &ch.EndOffset); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

var _ core.DbClient = (*DatabaseClient)(nil)
