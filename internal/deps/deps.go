package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionCheckTimeout = 5 * time.Second

// Requirement is an external binary dubber shells out to.
type Requirement struct {
	Name     string
	Command  string
	Purpose  string
	Optional bool
}

// Status is the outcome of probing one Requirement.
type Status struct {
	Requirement
	// Path is the resolved location of Command, empty when it was not found.
	Path      string
	Available bool
	// Detail holds the version banner when available, otherwise the reason.
	Detail string
}

// AudioTools lists the ffmpeg and ffprobe requirements. ffprobe is optional:
// without it recordings are not vetted before decoding.
func AudioTools(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpegBinary, Purpose: "Decodes, stretches, and encodes audio"},
		{Name: "FFprobe", Command: ffprobeBinary, Purpose: "Inspects source recordings", Optional: true},
	}
}

// Check resolves every requirement on PATH and asks it for "-version".
// A binary that is present but cannot report a version is unavailable.
func Check(ctx context.Context, requirements []Requirement) []Status {
	statuses := make([]Status, len(requirements))
	for i, req := range requirements {
		statuses[i] = probe(ctx, req)
	}
	return statuses
}

func probe(ctx context.Context, req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Path = path

	ctx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		status.Detail = fmt.Sprintf("%s -version failed: %v", req.Command, err)
		return status
	}
	banner, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	status.Available = true
	status.Detail = strings.TrimSpace(banner)
	return status
}
