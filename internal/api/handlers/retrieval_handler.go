package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/inkwelldocs/inkwell/internal/models"
	"github.com/inkwelldocs/inkwell/internal/services"
)

type RetrievalHandler struct {
	documents *services.DocumentService
	retrieval *services.RetrievalService
	log       *zap.Logger

	DefaultTopK int
}

func NewRetrievalHandler(documents *services.DocumentService, retrieval *services.RetrievalService, defaultTopK int, log *zap.Logger) *RetrievalHandler {
	return &RetrievalHandler{documents: documents, retrieval: retrieval, DefaultTopK: defaultTopK, log: log}
}

type searchRequest struct {
	Query    string  `json:"query"`
	TopK     int     `json:"top_k"`
	Offset   int     `json:"offset"`
	MinScore float64 `json:"min_score"`
}

type searchResponse struct {
	Results []models.RetrievalResult `json:"results"`
}

// Search ranks the document's chunks against the query.
func (h *RetrievalHandler) Search(w http.ResponseWriter, r *http.Request) {
	doc, ok := ownedDocumentFor(h.documents, h.log, w, r)
	if !ok {
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 {
		req.TopK = h.DefaultTopK
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	results, err := h.retrieval.Retrieve(r.Context(), doc.ID, req.Query, req.TopK, req.Offset, req.MinScore)
	if err != nil {
		h.log.Error("search failed", zap.String("document_id", doc.ID), zap.Error(err))
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}
