package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary autocaption relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// MediaRequirements lists the binaries the extraction pipeline shells out to.
func MediaRequirements(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Required for frame decoding and clip trimming"},
		{Name: "FFprobe", Command: ffprobe, Description: "Required for video inspection"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			resolved, err := exec.LookPath(cmd)
			if err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
				break
			}
			status.Command = resolved
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the non-optional dependencies that are unavailable.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}

// Ensure returns an error naming every missing required binary.
func Ensure(requirements []Requirement) error {
	missing := MissingRequired(CheckBinaries(requirements))
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(missing))
	for _, m := range missing {
		names = append(names, fmt.Sprintf("%s (%s)", m.Name, m.Command))
	}
	return fmt.Errorf("missing required binaries: %s", strings.Join(names, ", "))
}
