package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckReportsVersionBanner(t *testing.T) {
	dir := t.TempDir()
	present := writeStub(t, dir, "ffmpeg", "#!/bin/sh\necho 'ffmpeg version 7.1'\necho 'built with gcc'\n")
	broken := writeStub(t, dir, "ffprobe", "#!/bin/sh\nexit 3\n")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Broken", Command: broken},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := Check(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "ffmpeg version 7.1" || results[0].Path != present {
		t.Fatalf("unexpected status for present binary: %#v", results[0])
	}
	if results[1].Available || results[1].Path != broken || results[1].Detail == "" {
		t.Fatalf("expected broken binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Available || results[2].Path != "" || results[2].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected missing binary status: %#v", results[2])
	}
	if results[3].Available || results[3].Detail != "command not configured" {
		t.Fatalf("unexpected blank command status: %#v", results[3])
	}
}

func TestAudioToolsMarksFFprobeOptional(t *testing.T) {
	reqs := AudioTools("ffmpeg", "ffprobe")
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Optional || !reqs[1].Optional {
		t.Fatalf("unexpected optional flags: %#v", reqs)
	}
}
