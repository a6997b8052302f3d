package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external executable danmaku shells out to or talks to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a requirement resolved on this host.
type Status struct {
	Requirement
	Path      string
	Available bool
	Detail    string
}

// Converter describes the danmu2ass executable the pipeline runs per file.
func Converter(binary string) Requirement {
	return Requirement{
		Name:        "danmu2ass",
		Command:     binary,
		Description: "Required to convert danmaku into ASS subtitles",
	}
}

// Player describes the mpv executable. The daemon only attaches to an
// existing IPC socket, so a missing binary is reported but not fatal.
func Player() Requirement {
	return Requirement{
		Name:        "mpv",
		Command:     "mpv",
		Description: "Hosts the JSON IPC socket the daemon attaches to",
		Optional:    true,
	}
}

// Check resolves a single requirement against PATH.
func Check(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)
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
	status.Available = true
	return status
}

// CheckBinaries evaluates the provided requirements in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, Check(req))
	}
	return results
}

// Missing returns the unavailable statuses that are not optional.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
