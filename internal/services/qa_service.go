package services

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/models"
)

// maxConcurrentAnswers bounds the parallel model calls per question.
const maxConcurrentAnswers = 4

// QAService answers a question over retrieved snippets. Snippets are
// packed into contexts that respect a character budget, each context
// is scored by the model independently, and the highest scoring
// answer wins.
type QAService struct {
	backend core.QABackend
	log     *zap.Logger

	MaxContextChars int
}

func NewQAService(backend core.QABackend, log *zap.Logger) *QAService {
	return &QAService{backend: backend, log: log, MaxContextChars: 4000}
}

// PackContexts greedily joins snippets with blank lines into contexts
// of at most maxChars characters. A snippet longer than the budget is
// truncated to maxChars and sealed as a context of its own.
func PackContexts(snippets []string, maxChars int) []string {
	if maxChars <= 0 {
		return nil
	}
	var contexts []string
	var current string
	for _, snippet := range snippets {
		if snippet == "" {
			continue
		}
		if len(snippet) > maxChars {
			if current != "" {
				contexts = append(contexts, current)
				current = ""
			}
			contexts = append(contexts, snippet[:maxChars])
			continue
		}
		if current == "" {
			current = snippet
			continue
		}
		if len(current)+2+len(snippet) <= maxChars {
			current = current + "\n\n" + snippet
			continue
		}
		contexts = append(contexts, current)
		current = snippet
	}
	if current != "" {
		contexts = append(contexts, current)
	}
	return contexts
}

// BestAnswer asks the backend about every context concurrently and
// returns the answer with the highest score. With no contexts, or
// when no context produces a positive score, the zero answer is
// returned.
func (s *QAService) BestAnswer(ctx context.Context, question string, contexts []string, preset string) (models.QAAnswer, error) {
	if len(contexts) == 0 {
		return models.QAAnswer{}, nil
	}

	answers := make([]models.QAAnswer, len(contexts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAnswers)
	for i, passage := range contexts {
		g.Go(func() error {
			answer, err := s.backend.Answer(gctx, question, passage, preset)
			if err != nil {
				return err
			}
			answers[i] = answer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.QAAnswer{}, err
	}

	var best models.QAAnswer
	for _, a := range answers {
		if a.Score > best.Score {
			best = a
		}
	}
	return best, nil
}

// Ask packs snippets and returns the best answer across the packed
// contexts.
func (s *QAService) Ask(ctx context.Context, question string, snippets []string, preset string) (models.QAAnswer, error) {
	contexts := PackContexts(snippets, s.MaxContextChars)
	return s.BestAnswer(ctx, question, contexts, preset)
}
