package config

const (
	defaultReportDir      = "~/.local/share/audioqc/reports"
	defaultCachePath      = "~/.cache/audioqc/analysis_cache.json"
	defaultHistoryPath    = "~/.local/share/audioqc/history.db"
	defaultTimeoutSeconds = 600
	defaultProfile        = "pop"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

func defaultExtensions() []string {
	return []string{"wav", "mp3", "m4a", "flac", "aac", "ogg", "opus", "wma", "aiff", "alac"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ReportDir:   defaultReportDir,
			CachePath:   defaultCachePath,
			HistoryPath: defaultHistoryPath,
		},
		Analysis: Analysis{
			TimeoutSeconds: defaultTimeoutSeconds,
			Extensions:     defaultExtensions(),
			CacheEnabled:   true,
		},
		Scoring: Scoring{
			Profile: defaultProfile,
		},
		Reports: Reports{
			CSV:     true,
			JSONL:   true,
			SARIF:   false,
			RawJSON: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
