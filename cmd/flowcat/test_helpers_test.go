package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flowcatalog/internal/config"
	"flowcatalog/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	importDir  string
}

func setupCLITestEnv(t *testing.T, extraConfig ...string) *cliTestEnv {
	t.Helper()

	t.Setenv("FLOWCAT_ANALYZER_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg, extraConfig...)

	importDir := filepath.Join(base, "imports")
	if err := os.MkdirAll(importDir, 0o755); err != nil {
		t.Fatalf("mkdir imports: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, importDir: importDir}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, e.configPath)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTestConfig writes a quiet heuristic-mode config. Extra sections are
// appended verbatim; a [logging] section there replaces the default.
func writeTestConfig(t *testing.T, path string, cfg *config.Config, extra ...string) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[analyzer]\nmode = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		config.AnalyzerModeHeuristic,
	)
	joined := strings.Join(extra, "\n")
	if !strings.Contains(joined, "[logging]") {
		content += "\n[logging]\nlevel = \"error\"\n"
	}
	content += "\n" + joined + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
