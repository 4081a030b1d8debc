package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/inkwelldocs/inkwell/internal/core"
)

// Pgvector persists per-document indexes in the document_vectors table.
// Save replaces all rows for the document in one transaction, so a
// concurrent Search sees either the old generation or the new one,
// never a mix. Ordinal position is kept alongside each row to give
// equal-score matches a stable order.
type Pgvector struct {
	db *sql.DB
}

func NewPgvector(db *sql.DB) *Pgvector {
	return &Pgvector{db: db}
}

func (p *Pgvector) Save(ctx context.Context, documentID string, vectors [][]float32, ids []string) error {
	if len(vectors) != len(ids) {
		return fmt.Errorf("vectors and ids length mismatch: %d vs %d", len(vectors), len(ids))
	}

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_vectors WHERE document_id = $1`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear index: %w", err)
	}

	const q = `
		INSERT INTO document_vectors (document_id, ord, chunk_id, embedding)
		VALUES ($1, $2, $3, $4)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range ids {
		if _, err := stmt.ExecContext(ctx, documentID, i, ids[i], pgvector.NewVector(vectors[i])); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert vector %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (p *Pgvector) Load(ctx context.Context, documentID string) ([]string, error) {
	const q = `
		SELECT chunk_id FROM document_vectors
		WHERE document_id = $1
		ORDER BY ord ASC
	`
	rows, err := p.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *Pgvector) Search(ctx context.Context, documentID string, query []float32, topK int) ([]core.VectorMatch, error) {
	if topK <= 0 {
		return nil, nil
	}
	// <#> is negative inner product; negate it back into a similarity.
	const q = `
		SELECT chunk_id, -(embedding <#> $2) AS score
		FROM document_vectors
		WHERE document_id = $1
		ORDER BY score DESC, ord ASC
		LIMIT $3
	`
	rows, err := p.db.QueryContext(ctx, q, documentID, pgvector.NewVector(query), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.VectorMatch
	for rows.Next() {
		var m core.VectorMatch
		if err := rows.Scan(&m.ChunkID, &m.Score); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ core.VectorIndex = (*Pgvector)(nil)
