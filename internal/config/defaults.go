package config

const (
	defaultDataDir                = "~/.local/share/flowcat"
	defaultLogDir                 = "~/.local/share/flowcat/logs"
	defaultMaxTagLength           = 50
	defaultMaxFileSize            = 10 << 20
	defaultStaleProcessingSeconds = 600
	defaultAnalyzerMode           = AnalyzerModeHeuristic
	defaultAnalyzerBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultAnalyzerModel          = "google/gemini-3-flash-preview"
	defaultAnalyzerReferer        = "https://github.com/flowcatalog/flowcat"
	defaultAnalyzerTitle          = "flowcat workflow analyzer"
	defaultAnalyzerTimeoutSeconds = 60
	defaultNotifyTimeoutSeconds   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Analyzer modes.
const (
	AnalyzerModeHeuristic = "heuristic"
	AnalyzerModeLLM       = "llm"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Import: Import{
			MaxTagLength:           defaultMaxTagLength,
			MaxFileSize:            defaultMaxFileSize,
			StaleProcessingSeconds: defaultStaleProcessingSeconds,
		},
		Analyzer: Analyzer{
			Mode:           defaultAnalyzerMode,
			BaseURL:        defaultAnalyzerBaseURL,
			Model:          defaultAnalyzerModel,
			Referer:        defaultAnalyzerReferer,
			Title:          defaultAnalyzerTitle,
			TimeoutSeconds: defaultAnalyzerTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
