// Package deps resolves and reports the external binaries audioqc drives.
package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrFFmpegMissing aborts a run: without the analysis binary nothing can be
// measured.
var ErrFFmpegMissing = errors.New("ffmpeg binary not found")

// Requirement defines an external dependency audioqc relies on.
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
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// ResolveFFmpeg locates the ffmpeg binary. Lookup order: the configured
// override, PATH, then a resources directory next to the audioqc executable.
// A resolution failure is fatal to the run.
func ResolveFFmpeg(configured string) (string, error) {
	return resolveBinary("ffmpeg", configured)
}

// ResolveFFprobe locates the ffprobe binary using the same lookup order as
// ResolveFFmpeg. Callers treat a failure as degraded (no metadata probe),
// not fatal.
func ResolveFFprobe(configured string) (string, error) {
	return resolveBinary("ffprobe", configured)
}

func resolveBinary(name, configured string) (string, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		if resolved, err := exec.LookPath(configured); err == nil {
			return resolved, nil
		}
		if info, err := os.Stat(configured); err == nil && isExecutable(info) {
			return configured, nil
		}
		return "", fmt.Errorf("configured %s binary %q not usable: %w", name, configured, ErrFFmpegMissing)
	}

	if resolved, err := exec.LookPath(name); err == nil {
		return resolved, nil
	}

	if candidate, ok := resourcesCandidate(name); ok {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%s not found in PATH or resources directory: %w", name, ErrFFmpegMissing)
}

// resourcesCandidate mirrors the fallback of shipping ffmpeg alongside the
// executable in a resources/ directory.
func resourcesCandidate(name string) (string, bool) {
	exePath, err := os.Executable()
	if err != nil {
		return "", false
	}
	return filepath.Join(filepath.Dir(exePath), "resources", name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
