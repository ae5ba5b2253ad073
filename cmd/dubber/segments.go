package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"dubber/internal/speakers"
)

type segmentsFile struct {
	Segments []speakers.Segment `json:"segments"`
}

// loadSegments reads recogniser output: either a JSON list of segments or an
// object with a "segments" list.
func loadSegments(path string) ([]speakers.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var list []speakers.Segment
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode segments: %w", err)
		}
		return list, nil
	}
	var file segmentsFile
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	return file.Segments, nil
}
