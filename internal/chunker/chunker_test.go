package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRanges(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []Range
	}{
		{"empty text", "", 500, 50, nil},
		{"zero size", "hello", 0, 50, nil},
		{"negative size", "hello", -3, 0, nil},
		{"single short window", "hello", 500, 50, []Range{{0, 5}}},
		{"exact fit", "abcdefghij", 10, 2, []Range{{0, 10}}},
		{"two windows with overlap", "abcdefghij", 6, 2, []Range{{0, 6}, {4, 10}}},
		{"overlap clamped to zero", "abcdefghij", 4, 4, []Range{{0, 4}, {4, 8}, {8, 10}}},
		{"overlap larger than size", "abcdefghij", 3, 7, []Range{{0, 3}, {3, 6}, {6, 9}, {9, 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ranges(tt.text, tt.size, tt.overlap)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The union of windows must cover [0, len(text)) exactly: the first
// window starts at 0, the last ends at len(text), every window is
// non-empty, and each window starts inside or directly after the
// previous one.
func TestRangesCoverage(t *testing.T) {
	text := strings.Repeat("inkwell ", 400) // 3200 chars

	for _, size := range []int{1, 7, 100, 499, 500, 3200, 5000} {
		for _, overlap := range []int{0, 1, 50, 499} {
			ranges := Ranges(text, size, overlap)
			require.NotEmpty(t, ranges)

			assert.Equal(t, 0, ranges[0].Start)
			assert.Equal(t, len(text), ranges[len(ranges)-1].End)
			for i, r := range ranges {
				assert.Less(t, r.Start, r.End, "size=%d overlap=%d range %d", size, overlap, i)
				assert.LessOrEqual(t, r.End-r.Start, size)
				if i > 0 {
					prev := ranges[i-1]
					assert.LessOrEqual(t, r.Start, prev.End, "gap between windows")
					assert.Greater(t, r.End, prev.End, "window must advance")
				}
			}
		}
	}
}
