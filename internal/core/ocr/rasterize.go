package ocr

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/inkwelldocs/inkwell/internal/core"
)

// PDFRasterizer materializes the scan image of a single PDF page so it
// can be OCR'd. Scanned pages carry their content as one embedded
// image; extracting it is equivalent to rendering the page for OCR
// purposes. The largest extracted image is taken as the page scan.
type PDFRasterizer struct{}

func NewPDFRasterizer() *PDFRasterizer {
	return &PDFRasterizer{}
}

func (r *PDFRasterizer) RasterizePage(path string, pageNumber int, destDir string) (string, error) {
	outDir, err := os.MkdirTemp(destDir, "page-images-")
	if err != nil {
		return "", fmt.Errorf("rasterize: %w", err)
	}

	pages := []string{strconv.Itoa(pageNumber)}
	if err := api.ExtractImagesFile(path, outDir, pages, nil); err != nil {
		_ = os.RemoveAll(outDir)
		return "", fmt.Errorf("extract page %d image: %w", pageNumber, err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		_ = os.RemoveAll(outDir)
		return "", fmt.Errorf("rasterize: %w", err)
	}

	var best string
	var bestSize int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(outDir, e.Name())
			bestSize = info.Size()
		}
	}
	if best == "" {
		_ = os.RemoveAll(outDir)
		return "", fmt.Errorf("page %d has no extractable image", pageNumber)
	}

	// Move the winner up so the caller can delete a single file and the
	// scratch dir can go away now.
	final := filepath.Join(destDir, fmt.Sprintf("ocr-page-%d%s", pageNumber, filepath.Ext(best)))
	if err := os.Rename(best, final); err != nil {
		_ = os.RemoveAll(outDir)
		return "", fmt.Errorf("rasterize: %w", err)
	}
	_ = os.RemoveAll(outDir)
	return final, nil
}

var _ core.Rasterizer = (*PDFRasterizer)(nil)
