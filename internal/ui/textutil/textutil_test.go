package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "gpt-demo", 10, "gpt-demo"},
		{"exact", "gpt-demo", 8, "gpt-demo"},
		{"ascii", "classifier-v2", 6, "class…"},
		{"wide runes", "模型模型", 5, "模型…"},
		{"zero", "abc", 0, ""},
		{"only ellipsis", "abc", 1, "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.width)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, VisualWidth(got), tt.width)
		})
	}
}

func TestPadVisual(t *testing.T) {
	assert.Equal(t, "ab   ", PadRightVisual("ab", 5))
	assert.Equal(t, "模型 ", PadRightVisual("模型", 5))
	assert.Equal(t, "abc…", PadRightVisual("abcdef", 4))
}

func TestHyperlink(t *testing.T) {
	got := Hyperlink("http://localhost:8000/api/models/1/artifacts/active/download", "policy.zip")
	assert.Contains(t, got, "policy.zip")
	assert.Contains(t, got, "\x1b]8;;http://localhost:8000/api/models/1/artifacts/active/download")
	assert.Equal(t, "policy.zip", Hyperlink("", "policy.zip"))
}
