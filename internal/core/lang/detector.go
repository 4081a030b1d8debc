// Package lang wraps trigram-based language detection.
package lang

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/inkwelldocs/inkwell/internal/core"
)

// minDetectChars guards against guessing a language from a few words.
const minDetectChars = 20

type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the ISO 639-1 code of the detected language, or ""
// when the text is too short or the detection is unreliable.
func (d *Detector) Detect(text string) string {
	cleaned := strings.TrimSpace(text)
	if len(cleaned) < minDetectChars {
		return ""
	}
	info := whatlanggo.Detect(cleaned)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

var _ core.LanguageDetector = (*Detector)(nil)
