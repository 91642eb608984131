package api

import (
	"path/filepath"
	"strings"
	"time"
)

// versionTimeLayout renders YYMMDDhhmmss, twelve digits.
const versionTimeLayout = "060102150405"

// VersionLabeler derives a version label for an upload the user did not
// label. An empty result means no version field is sent and the backend
// picks one.
type VersionLabeler func(filename string, now time.Time) string

// TimestampZipLabeler labels .zip uploads "v" followed by the upload time as
// YYMMDDhhmmss. Other files are left unlabeled.
func TimestampZipLabeler(filename string, now time.Time) string {
	if !strings.EqualFold(filepath.Ext(filename), ".zip") {
		return ""
	}
	return "v" + now.Format(versionTimeLayout)
}

// ResolveVersion picks the version to send with an upload. An explicit
// label always wins; otherwise labeler is consulted (TimestampZipLabeler
// when nil).
func ResolveVersion(explicit, filename string, now time.Time, labeler VersionLabeler) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if labeler == nil {
		labeler = TimestampZipLabeler
	}
	return labeler(filename, now)
}
