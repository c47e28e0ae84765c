package config

import (
	"errors"
	"fmt"
	"regexp"
)

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9_-]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateAnalyzer(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateImport() error {
	if err := ensurePositiveMap(map[string]int{
		"import.max_tag_length": c.Import.MaxTagLength,
		"import.max_file_size":  int(c.Import.MaxFileSize),
	}); err != nil {
		return err
	}
	if err := ValidateTag(c.Import.DefaultTag, c.Import.MaxTagLength); err != nil {
		return fmt.Errorf("import.default_tag: %w", err)
	}
	return nil
}

// ValidateTag checks a session tag against the allowed character set and
// length limit. The empty tag is valid.
func ValidateTag(tag string, maxLength int) error {
	if len(tag) > maxLength {
		return fmt.Errorf("tag exceeds %d characters", maxLength)
	}
	if !tagPattern.MatchString(tag) {
		return errors.New("tag may only contain letters, digits, '-' and '_'")
	}
	return nil
}

func (c *Config) validateAnalyzer() error {
	switch c.Analyzer.Mode {
	case AnalyzerModeHeuristic:
		return nil
	case AnalyzerModeLLM:
		if c.Analyzer.APIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/flowcat/config.toml"
			}
			return fmt.Errorf("analyzer.api_key is required when analyzer.mode is \"llm\". Set FLOWCAT_ANALYZER_API_KEY or edit %s (create with 'flowcat config init')", defaultPath)
		}
		return nil
	default:
		return fmt.Errorf("analyzer.mode: unsupported value %q (expected heuristic or llm)", c.Analyzer.Mode)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
