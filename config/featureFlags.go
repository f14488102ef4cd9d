package config

import (
	"os"
	"strings"
)

// RemoteSyncEnabled is the global kill switch for outbound sync. When off,
// requests asking for remote sync are served locally only.
//
// Set via env:
// - REMOTE_SYNC_ENABLED=false
func RemoteSyncEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("REMOTE_SYNC_ENABLED")))
	return !(v == "0" || v == "false" || v == "no" || v == "n" || v == "off")
}

// EmbedUnitsInPropertyCreate sends units inside the remote property-create
// payload instead of leaving them local-only.
//
// Set via env:
// - REMOTE_EMBED_UNITS=false
func EmbedUnitsInPropertyCreate() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("REMOTE_EMBED_UNITS")))
	return !(v == "0" || v == "false" || v == "no" || v == "n" || v == "off")
}

// SkipMigrations disables AutoMigrate on startup.
func SkipMigrations() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true")
}
