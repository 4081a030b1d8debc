package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	middleware "github.com/inkwelldocs/inkwell/internal/api/middlewares"
	"github.com/inkwelldocs/inkwell/internal/models"
	"github.com/inkwelldocs/inkwell/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ownedDocumentFor resolves the {document_id} route param for the
// authenticated user. Absent and foreign documents are both a 404, so
// existence never leaks across accounts. On failure the response has
// already been written.
func ownedDocumentFor(documents *services.DocumentService, log *zap.Logger, w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	docID := chi.URLParam(r, "document_id")
	doc, err := documents.Get(r.Context(), docID, userID)
	if err != nil {
		log.Error("document lookup failed", zap.String("document_id", docID), zap.Error(err))
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return nil, false
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return nil, false
	}
	return doc, true
}
