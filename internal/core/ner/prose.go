// Package ner extracts named entities from snippet text.
package ner

import (
	"fmt"

	prose "github.com/jdkato/prose/v2"

	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/models"
)

// ProseExtractor runs the prose NER model. The language hint is
// accepted for interface compatibility; the bundled model is
// English-only, so non-English text simply yields fewer entities.
type ProseExtractor struct{}

func NewProseExtractor() *ProseExtractor {
	return &ProseExtractor{}
}

func (e *ProseExtractor) Extract(text string, language string) ([]models.Entity, error) {
	if text == "" {
		return nil, nil
	}
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("ner: %w", err)
	}

	var out []models.Entity
	for _, ent := range doc.Entities() {
		out = append(out, models.Entity{Text: ent.Text, Label: ent.Label})
	}
	return out, nil
}

var _ core.EntityExtractor = (*ProseExtractor)(nil)
