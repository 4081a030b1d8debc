package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/models"
	"github.com/inkwelldocs/inkwell/internal/services"
)

type EntitiesHandler struct {
	documents *services.DocumentService
	db        core.DbClient
	entities  core.EntityExtractor
	log       *zap.Logger
}

func NewEntitiesHandler(documents *services.DocumentService, db core.DbClient, entities core.EntityExtractor, log *zap.Logger) *EntitiesHandler {
	return &EntitiesHandler{documents: documents, db: db, entities: entities, log: log}
}

type entitiesResponse struct {
	DocumentID string          `json:"document_id"`
	Entities   []models.Entity `json:"entities"`
}

// List extracts named entities from the document's full extracted
// text. A document without extracted pages yields an empty list.
func (h *EntitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	doc, ok := ownedDocumentFor(h.documents, h.log, w, r)
	if !ok {
		return
	}

	pages, err := h.db.ListPages(r.Context(), doc.ID)
	if err != nil {
		h.log.Error("list pages failed", zap.String("document_id", doc.ID), zap.Error(err))
		http.Error(w, "failed to load document text", http.StatusInternalServerError)
		return
	}

	resp := entitiesResponse{DocumentID: doc.ID, Entities: []models.Entity{}}
	if len(pages) > 0 {
		texts := make([]string, len(pages))
		for i, p := range pages {
			texts[i] = p.Text
		}
		ents, err := h.entities.Extract(strings.Join(texts, "\n"), doc.Language)
		if err != nil {
			h.log.Error("entity extraction failed", zap.String("document_id", doc.ID), zap.Error(err))
			http.Error(w, "entity extraction failed", http.StatusInternalServerError)
			return
		}
		if ents != nil {
			resp.Entities = ents
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
