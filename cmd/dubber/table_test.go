package main

import (
	"strings"
	"testing"
)

func TestRenderTableSnipsWideCells(t *testing.T) {
	out := renderTable([]column{{Title: "Voice", Max: 8}}, [][]string{{"a very long voice name"}})
	if strings.Contains(out, "long") {
		t.Fatalf("expected cell cut to width, got:\n%s", out)
	}
	requireContains(t, out, "a very "+ellipsis)
}

func TestRenderTableRightAlignsNumbers(t *testing.T) {
	cols := []column{{Title: "Speaker"}, {Title: "N", Numeric: true}}
	out := renderTable(cols, [][]string{{"SPEAKER_00", "7"}, {"SPEAKER_01", "1234"}, {"SPEAKER_02"}})
	requireContains(t, out, "│    7 │")
	requireContains(t, out, "│ N    │")
	if !strings.Contains(out, "SPEAKER_02") {
		t.Fatalf("short rows must still render:\n%s", out)
	}
}

func TestRenderTableWithoutColumns(t *testing.T) {
	if got := renderTable(nil, [][]string{{"x"}}); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}
