package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeScoring()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ReportDir) == "" {
		c.Paths.ReportDir = defaultReportDir
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CachePath) == "" {
		c.Paths.CachePath = defaultCachePath
	}
	if c.Paths.CachePath, err = expandPath(c.Paths.CachePath); err != nil {
		return fmt.Errorf("paths.cache_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryPath) == "" {
		c.Paths.HistoryPath = defaultHistoryPath
	}
	if c.Paths.HistoryPath, err = expandPath(c.Paths.HistoryPath); err != nil {
		return fmt.Errorf("paths.history_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.FFmpegBinary = strings.TrimSpace(c.Analysis.FFmpegBinary)
	c.Analysis.FFprobeBinary = strings.TrimSpace(c.Analysis.FFprobeBinary)
	if c.Analysis.TimeoutSeconds <= 0 {
		c.Analysis.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Analysis.MaxProcesses < 0 {
		c.Analysis.MaxProcesses = 0
	}
	if c.Analysis.FileWorkers < 0 {
		c.Analysis.FileWorkers = 0
	}

	if len(c.Analysis.Extensions) == 0 {
		c.Analysis.Extensions = defaultExtensions()
		return
	}
	exts := make([]string, 0, len(c.Analysis.Extensions))
	seen := make(map[string]struct{}, len(c.Analysis.Extensions))
	for _, ext := range c.Analysis.Extensions {
		normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = defaultExtensions()
	}
	c.Analysis.Extensions = exts
}

func (c *Config) normalizeScoring() {
	c.Scoring.Profile = strings.ToLower(strings.TrimSpace(c.Scoring.Profile))
	if c.Scoring.Profile == "" {
		c.Scoring.Profile = defaultProfile
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
