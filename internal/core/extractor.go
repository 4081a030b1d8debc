package core

import (
	"context"

	"github.com/inkwelldocs/inkwell/internal/models"
)

// PageReader extracts native text per page from a document file.
// The returned slice has one entry per page, in page order.
type PageReader interface {
	ReadPages(path string) ([]string, error)
}

// Rasterizer produces an image file for one page of a document so it
// can be fed to OCR. The image is written under destDir; the caller
// deletes it when done.
type Rasterizer interface {
	RasterizePage(path string, pageNumber int, destDir string) (imagePath string, err error)
}

// OCRBackend extracts text from an image file.
type OCRBackend interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// LanguageDetector guesses an ISO language code for a text, returning
// "" when detection is not possible or not reliable.
type LanguageDetector interface {
	Detect(text string) string
}

// EntityExtractor finds named entities in text. The language hint may
// be empty.
type EntityExtractor interface {
	Extract(text string, language string) ([]models.Entity, error)
}
