package core

import (
	"context"

	"github.com/inkwelldocs/inkwell/internal/models"
)

// EmbeddingModel turns texts into fixed-dimension vectors. Output order
// matches input order. Vectors are normalized by the caller.
type EmbeddingModel interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// QABackend answers a question against a single context. The preset
// selects among backend configurations ("" uses the default model,
// "accurate" a higher-accuracy one).
type QABackend interface {
	Answer(ctx context.Context, question, passage string, preset string) (models.QAAnswer, error)
}
