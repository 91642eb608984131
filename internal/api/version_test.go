package api

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var timestampVersion = regexp.MustCompile(`^v\d{12}$`)

func TestTimestampZipLabeler(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		filename string
		want     string
	}{
		{"policy.zip", "v260304050607"},
		{"POLICY.ZIP", "v260304050607"},
		{"weights.pt", ""},
		{"model.tar.gz", ""},
		{"zip", ""},
		{"archive.zip.bak", ""},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, TimestampZipLabeler(tt.filename, now))
		})
	}
}

func TestResolveVersion(t *testing.T) {
	now := time.Now()

	assert.Regexp(t, timestampVersion, ResolveVersion("", "policy.zip", now, nil))
	assert.Empty(t, ResolveVersion("", "weights.pt", now, nil))

	// An explicit label always wins over the heuristic.
	assert.Equal(t, "v2", ResolveVersion(" v2 ", "policy.zip", now, nil))
	assert.Equal(t, "rc1", ResolveVersion("rc1", "weights.pt", now, nil))

	custom := func(string, time.Time) string { return "custom" }
	assert.Equal(t, "custom", ResolveVersion("", "weights.pt", now, custom))
}
