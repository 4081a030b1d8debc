package ocr

import (
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/inkwelldocs/inkwell/internal/core"
)

// PDFPageReader extracts native text per page. A page whose text layer
// cannot be read yields an empty string rather than failing the run,
// so the extractor's OCR fallback takes over for that page.
type PDFPageReader struct{}

func NewPDFPageReader() *PDFPageReader {
	return &PDFPageReader{}
}

func (r *PDFPageReader) ReadPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := reader.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

var _ core.PageReader = (*PDFPageReader)(nil)
