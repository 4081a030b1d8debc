// Package chunker splits page text into fixed-size overlapping windows.
package chunker

// Range is a half-open [Start, End) slice of the owning page's text.
// Offsets are indexes into that page's text, never document-global.
type Range struct {
	Start int
	End   int
}

// Ranges produces ordered windows covering [0, len(text)), each at most
// size long, with consecutive windows overlapping by overlap. The final
// window may be shorter than size. size <= 0 yields no ranges; an
// overlap >= size is clamped to 0 so the walk always advances.
func Ranges(text string, size, overlap int) []Range {
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = 0
	}
	if overlap < 0 {
		overlap = 0
	}

	var out []Range
	n := len(text)
	start := 0
	for start < n {
		end := start + size
		if end > n {
			end = n
		}
		if end > start {
			out = append(out, Range{Start: start, End: end})
		}
		if end == n {
			break
		}
		start = end - overlap
	}
	return out
}
