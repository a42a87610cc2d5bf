package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory configuration.
type Paths struct {
	ReportDir   string `toml:"report_dir"`
	CachePath   string `toml:"cache_path"`
	HistoryPath string `toml:"history_path"`
}

// Analysis contains settings for driving the external analysis binaries.
type Analysis struct {
	FFmpegBinary   string   `toml:"ffmpeg_binary"`
	FFprobeBinary  string   `toml:"ffprobe_binary"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	MaxProcesses   int      `toml:"max_processes"`
	FileWorkers    int      `toml:"file_workers"`
	Extensions     []string `toml:"extensions"`
	CacheEnabled   bool     `toml:"cache_enabled"`
}

// Scoring selects the quality profile applied to extracted metrics.
type Scoring struct {
	Profile string `toml:"profile"`
}

// Reports toggles the output artifacts written after a run.
type Reports struct {
	CSV     bool `toml:"csv"`
	JSONL   bool `toml:"jsonl"`
	SARIF   bool `toml:"sarif"`
	RawJSON bool `toml:"raw_json"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for audioqc.
//
// Configuration sections by subsystem:
//   - Paths: report output, cache document, run history locations
//   - Analysis: ffmpeg/ffprobe binaries, timeouts, concurrency bounds
//   - Scoring: quality profile selection
//   - Reports: which artifacts a run writes
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Analysis Analysis `toml:"analysis"`
	Scoring  Scoring  `toml:"scoring"`
	Reports  Reports  `toml:"reports"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/audioqc/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath expands a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("audioqc.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{projectPath, defaultPath} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the configuration points at.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.ReportDir,
		filepath.Dir(c.Paths.CachePath),
		filepath.Dir(c.Paths.HistoryPath),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		trimmed = filepath.Join(home, trimmed[2:])
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("absolutize %s: %w", trimmed, err)
	}
	return abs, nil
}
