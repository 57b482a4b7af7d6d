package main

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	// API uploads are recorded as <UPLOAD_BASE>/<client>/<timestamp>-<name>.
	got := resolvePath(sql.NullString{String: "uploads/tester/20261019T101500.000-x.png", Valid: true}, "failed", "x.png")
	if got != filepath.FromSlash("uploads/tester/20261019T101500.000-x.png") {
		t.Fatalf("store path not preferred: %s", got)
	}
	if got := resolvePath(sql.NullString{}, "failed", "x.png"); got != filepath.Join("failed", "x.png") {
		t.Fatalf("fallback wrong: %s", got)
	}
	if got := resolvePath(sql.NullString{Valid: true}, "failed", "y.png"); got != filepath.Join("failed", "y.png") {
		t.Fatalf("empty store path should fall back: %s", got)
	}
}
