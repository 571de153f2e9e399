package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestEnsureNamesMissingRequiredOnly(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "ffmpeg")
	t.Setenv("PATH", binDir)

	reqs := append(MediaRequirements("ffmpeg", "ffprobe"), Requirement{Name: "Extra", Command: "nope", Optional: true})
	err := Ensure(reqs)
	if err == nil {
		t.Fatal("expected missing ffprobe error")
	}
	if !strings.Contains(err.Error(), "FFprobe") || strings.Contains(err.Error(), "Extra") {
		t.Fatalf("unexpected error: %v", err)
	}

	writeStub(t, binDir, "ffprobe")
	if err := Ensure(MediaRequirements("ffmpeg", "ffprobe")); err != nil {
		t.Fatalf("expected all binaries available, got %v", err)
	}
}
