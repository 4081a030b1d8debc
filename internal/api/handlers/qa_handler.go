package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	middleware "github.com/inkwelldocs/inkwell/internal/api/middlewares"
	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/jobs"
	"github.com/inkwelldocs/inkwell/internal/models"
	"github.com/inkwelldocs/inkwell/internal/services"
)

type QAHandler struct {
	documents *services.DocumentService
	retrieval *services.RetrievalService
	qa        *services.QAService
	entities  core.EntityExtractor
	jobStore  *jobs.Store
	log       *zap.Logger

	DefaultTopK int
}

func NewQAHandler(
	documents *services.DocumentService,
	retrieval *services.RetrievalService,
	qa *services.QAService,
	entities core.EntityExtractor,
	jobStore *jobs.Store,
	defaultTopK int,
	log *zap.Logger,
) *QAHandler {
	return &QAHandler{
		documents:   documents,
		retrieval:   retrieval,
		qa:          qa,
		entities:    entities,
		jobStore:    jobStore,
		log:         log,
		DefaultTopK: defaultTopK,
	}
}

type askRequest struct {
	Question string  `json:"question"`
	TopK     int     `json:"top_k"`
	MinScore float64 `json:"min_score"`
	Preset   string  `json:"preset"`
}

type askResponse struct {
	Answer   string                   `json:"answer"`
	Score    float64                  `json:"score"`
	Sources  []models.RetrievalResult `json:"sources"`
	Entities []models.Entity          `json:"entities"`
}

// Ask retrieves the most relevant snippets, answers the question over
// them, and annotates the sources with named entities.
func (h *QAHandler) Ask(w http.ResponseWriter, r *http.Request) {
	doc, req, ok := h.parseAsk(w, r)
	if !ok {
		return
	}

	resp, err := h.answer(r.Context(), doc, req, "")
	if err != nil {
		h.log.Error("ask failed", zap.String("document_id", doc.ID), zap.Error(err))
		http.Error(w, "failed to answer question", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// AskAsync runs the same pipeline under a tracked job.
func (h *QAHandler) AskAsync(w http.ResponseWriter, r *http.Request) {
	doc, req, ok := h.parseAsk(w, r)
	if !ok {
		return
	}
	userID, _ := middleware.UserID(r.Context())

	job := h.jobStore.Create("ask", userID)
	h.jobStore.Update(job.ID, jobs.StatusRunning, "starting", 0)

	go func() {
		// A panicking backend must fail the job, not the process.
		defer func() {
			if rec := recover(); rec != nil {
				h.log.Error("ask worker panicked",
					zap.String("document_id", doc.ID), zap.String("job_id", job.ID), zap.Any("panic", rec))
				h.jobStore.Fail(job.ID, fmt.Sprintf("panic: %v", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		resp, err := h.answer(ctx, doc, req, job.ID)
		if err != nil {
			h.log.Error("async ask failed",
				zap.String("document_id", doc.ID), zap.String("job_id", job.ID), zap.Error(err))
			h.jobStore.Fail(job.ID, err.Error())
			return
		}
		h.jobStore.Complete(job.ID, map[string]any{
			"answer":   resp.Answer,
			"score":    resp.Score,
			"sources":  resp.Sources,
			"entities": resp.Entities,
		})
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (h *QAHandler) parseAsk(w http.ResponseWriter, r *http.Request) (*models.Document, askRequest, bool) {
	doc, ok := ownedDocumentFor(h.documents, h.log, w, r)
	if !ok {
		return nil, askRequest{}, false
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return nil, askRequest{}, false
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return nil, askRequest{}, false
	}
	if req.TopK <= 0 {
		req.TopK = h.DefaultTopK
	}
	return doc, req, true
}

// answer runs retrieve, score, and annotate. Retrieval pulls at least
// the configured default so the packer has enough material even when
// the caller asked for fewer sources. An empty jobID skips job updates.
func (h *QAHandler) answer(ctx context.Context, doc *models.Document, req askRequest, jobID string) (askResponse, error) {
	progress := func(stage string, pct int) {
		if jobID != "" {
			h.jobStore.Update(jobID, jobs.StatusRunning, stage, pct)
		}
	}

	progress("retrieving", 10)
	retrievalK := req.TopK
	if retrievalK < h.DefaultTopK {
		retrievalK = h.DefaultTopK
	}
	results, err := h.retrieval.Retrieve(ctx, doc.ID, req.Question, retrievalK, 0, req.MinScore)
	if err != nil {
		return askResponse{}, err
	}
	progress("retrieving", 30)

	sources := results
	if len(sources) > req.TopK {
		sources = sources[:req.TopK]
	}

	snippets := make([]string, len(results))
	for i, res := range results {
		snippets[i] = res.Snippet
	}

	answer, err := h.qa.Ask(ctx, req.Question, snippets, req.Preset)
	if err != nil {
		return askResponse{}, err
	}
	progress("scoring", 70)

	ents := h.extractEntities(doc, sources)
	progress("entities", 90)

	return askResponse{
		Answer:   answer.Answer,
		Score:    answer.Score,
		Sources:  sources,
		Entities: ents,
	}, nil
}

// extractEntities annotates the joined source snippets. NER is best
// effort; failures degrade to an empty list.
func (h *QAHandler) extractEntities(doc *models.Document, sources []models.RetrievalResult) []models.Entity {
	if len(sources) == 0 {
		return []models.Entity{}
	}
	texts := make([]string, len(sources))
	for i, s := range sources {
		texts[i] = s.Snippet
	}
	ents, err := h.entities.Extract(strings.Join(texts, "\n"), doc.Language)
	if err != nil {
		h.log.Warn("entity extraction failed", zap.String("document_id", doc.ID), zap.Error(err))
		return []models.Entity{}
	}
	if ents == nil {
		ents = []models.Entity{}
	}
	return ents
}
