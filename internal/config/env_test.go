package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  []string
	}{
		{"single", "eng", []string{"eng"}},
		{"multiple", "eng,fra", []string{"eng", "fra"}},
		{"padded", " eng , fra ", []string{"eng", "fra"}},
		{"trailing comma", "eng,", []string{"eng"}},
		{"empty", "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, splitList(tc.value))
		})
	}
}
