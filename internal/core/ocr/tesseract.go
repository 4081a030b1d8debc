// Package ocr holds the text-extraction collaborators: the tesseract
// OCR backend, the native PDF page reader, and the page rasterizer
// used for the OCR fallback.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/inkwelldocs/inkwell/internal/core"
)

// Tesseract runs OCR via the tesseract C library. A fresh client is
// created per call; gosseract clients are not safe for concurrent use.
type Tesseract struct {
	languages []string
}

func NewTesseract(languages []string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{languages: languages}
}

func (t *Tesseract) ExtractText(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("tesseract set language: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("tesseract set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

var _ core.OCRBackend = (*Tesseract)(nil)
