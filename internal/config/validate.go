package config

import (
	"errors"
	"fmt"
	"strings"
)

var validProfiles = map[string]struct{}{
	"pop":       {},
	"broadcast": {},
	"archive":   {},
}

// Validate checks semantic constraints that normalization cannot repair.
func (c *Config) Validate() error {
	var problems []string

	if _, ok := validProfiles[c.Scoring.Profile]; !ok {
		problems = append(problems, fmt.Sprintf("scoring.profile: unknown profile %q (expected pop, broadcast, or archive)", c.Scoring.Profile))
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		problems = append(problems, "analysis.timeout_seconds: must be positive")
	}
	if strings.TrimSpace(c.Paths.ReportDir) == "" {
		problems = append(problems, "paths.report_dir: must not be empty")
	}
	if strings.TrimSpace(c.Paths.CachePath) == "" {
		problems = append(problems, "paths.cache_path: must not be empty")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
