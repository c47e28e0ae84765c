package testsupport

import (
	"path/filepath"
	"testing"

	"flowcatalog/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Analyzer.Mode = config.AnalyzerModeHeuristic

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithMaxFileSize overrides the intake file size limit.
func WithMaxFileSize(size int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.MaxFileSize = size
	}
}

// WithStaleProcessingSeconds overrides how long a claim may run before it is reclaimed.
func WithStaleProcessingSeconds(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.StaleProcessingSeconds = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
