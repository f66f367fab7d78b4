package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh opaque identifier for a persisted record.
func NewID() string {
	return uuid.New().String()
}

// ShortID returns an 8-character identifier. Used for jobs, where the ID
// shows up in CLI output and full UUIDs are unwieldy.
func ShortID() string {
	return uuid.New().String()[:8]
}

// AssetFileName derives the file name for a generated asset: whitespace in
// the concept name becomes underscores, then the asset-type suffix and
// format extension are appended.
func AssetFileName(conceptName string, assetType AssetType, format string) string {
	name := strings.Join(strings.Fields(conceptName), "_")
	if name == "" {
		name = "concept"
	}
	return name + "_" + string(assetType) + "." + format
}
