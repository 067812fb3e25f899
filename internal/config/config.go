// Package config provides configuration management for the dump converter.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSONL    = "jsonl"
)

// Configuration validation errors.
var (
	ErrMissingInputPath         = errors.New("input.path is required")
	ErrMissingOutputPath        = errors.New("output.path is required")
	ErrInvalidOutputFormat      = errors.New("output.format must be 'markdown' or 'jsonl'")
	ErrSignRequiresMarkdown     = errors.New("output.sign requires output.format 'markdown'")
	ErrInvalidStartIndex        = errors.New("parser.start_index must be non-negative")
	ErrInvalidEndIndex          = errors.New("parser.end_index must be non-negative")
	ErrEndBeforeStart           = errors.New("parser.end_index cannot be lower than parser.start_index")
	ErrInvalidWorkers           = errors.New("parser.workers must be non-negative")
	ErrInvalidMaxAttempts       = errors.New("input.retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("input.retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("input.retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("input.retry.timeout_sec must be at least 1")
	ErrInvalidPseudoHeadingLen  = errors.New("cleaning.pseudo_headings.max_length must be non-negative")
	ErrInvalidMaxDiagnostics    = errors.New("validation.max_diagnostics_per_page must be non-negative")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config represents the complete converter configuration.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Parser     ParserConfig     `yaml:"parser"`
	Cleaning   CleaningConfig   `yaml:"cleaning"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// InputConfig points at the dump to read.
type InputConfig struct {
	// Path is a local file or an http(s) URL. .bz2 and .gz dumps are decompressed on the fly.
	Path  string      `yaml:"path"`
	Retry RetryPolicy `yaml:"retry"`
}

// RetryPolicy defines retry behavior for remote dumps.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// OutputConfig defines how the corpus is written.
type OutputConfig struct {
	Path        string `yaml:"path"`
	Format      string `yaml:"format"`
	LicenseText string `yaml:"license_text"`
	BaseURL     string `yaml:"base_url"`
	AlignTables bool   `yaml:"align_tables"`
	Sign        bool   `yaml:"sign"`
}

// ParserConfig selects which pages are converted.
type ParserConfig struct {
	ExcludedNamespaces []string `yaml:"excluded_namespaces"`
	StartIndex         int      `yaml:"start_index"`
	EndIndex           int      `yaml:"end_index"`
	// Workers is the page worker count; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// CleaningConfig tunes the wikitext cleaning passes.
//
// DropUnknownTemplates removes every template no earlier rule rendered.
// When it is false those templates are kept verbatim, braces included,
// and the Markdown validator reports them as leftover markup.
type CleaningConfig struct {
	RemovedSections        []string             `yaml:"removed_sections"`
	NoiseTemplates         []string             `yaml:"noise_templates"`
	InfoboxMarkers         []string             `yaml:"infobox_markers"`
	PseudoHeadings         PseudoHeadingsConfig `yaml:"pseudo_headings"`
	DropUnknownTemplates   bool                 `yaml:"drop_unknown_templates"`
	PromoteSingleItemLists bool                 `yaml:"promote_single_item_lists"`
}

// PseudoHeadingsConfig controls promotion of stand-alone bold lines to headings.
type PseudoHeadingsConfig struct {
	Enabled            bool `yaml:"enabled"`
	RequireBlankBefore bool `yaml:"require_blank_before"`
	RequireBlankAfter  bool `yaml:"require_blank_after"`
	// MaxLength caps the promoted text length in runes; 0 disables the cap.
	MaxLength int `yaml:"max_length"`
}

// ValidationConfig controls the structural check of produced Markdown.
type ValidationConfig struct {
	Enabled               bool `yaml:"enabled"`
	MaxDiagnosticsPerPage int  `yaml:"max_diagnostics_per_page"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// File, when set, receives a copy of the run log.
	File string `yaml:"file"`
}

// DefaultRemovedSections lists the section titles dropped by default.
var DefaultRemovedSections = []string{
	"references", "see also", "notes", "appendix", "gallery",
	"external links", "connections", "further reading", "index",
}

// DefaultNoiseTemplates lists the maintenance templates dropped by default.
var DefaultNoiseTemplates = []string{
	"navbox", "stub", "cleanup", "citation needed", "clarify", "fact",
	"update", "wip", "refs", "see also", "main", "details",
}

// DefaultInfoboxMarkers are name fragments identifying infobox-like templates.
var DefaultInfoboxMarkers = []string{"infobox", "sidebar", "creature"}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Retry: DefaultRetryPolicy(),
		},
		Output: OutputConfig{
			Path:   "output/wiki_output.md",
			Format: FormatMarkdown,
		},
		Cleaning: DefaultCleaningConfig(),
		Validation: ValidationConfig{
			MaxDiagnosticsPerPage: 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultRetryPolicy returns the retry policy used for remote dumps.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    500,
		MaxDelayMs:        30000,
		BackoffMultiplier: 2.0,
		TimeoutSec:        30,
	}
}

// DefaultCleaningConfig returns the cleaning rules used when none are configured.
func DefaultCleaningConfig() CleaningConfig {
	return CleaningConfig{
		RemovedSections: append([]string(nil), DefaultRemovedSections...),
		NoiseTemplates:  append([]string(nil), DefaultNoiseTemplates...),
		InfoboxMarkers:  append([]string(nil), DefaultInfoboxMarkers...),
		PseudoHeadings: PseudoHeadingsConfig{
			Enabled:            true,
			RequireBlankBefore: true,
			RequireBlankAfter:  true,
			MaxLength:          80,
		},
		DropUnknownTemplates:   true,
		PromoteSingleItemLists: true,
	}
}

// LoadConfig loads configuration from YAML file on top of the defaults.
func LoadConfig(filepath string) (*Config, error) {
	cfg, err := ReadConfig(filepath)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ReadConfig parses a YAML file on top of the defaults without validating
// it, so callers can apply overrides first.
func ReadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Input.Path == "" {
		return ErrMissingInputPath
	}

	if err := c.Input.Retry.Validate(); err != nil {
		return err
	}

	if c.Output.Path == "" {
		return ErrMissingOutputPath
	}

	if c.Output.Format != FormatMarkdown && c.Output.Format != FormatJSONL {
		return ErrInvalidOutputFormat
	}

	if c.Output.Sign && c.Output.Format != FormatMarkdown {
		return ErrSignRequiresMarkdown
	}

	if c.Parser.StartIndex < 0 {
		return ErrInvalidStartIndex
	}

	if c.Parser.EndIndex < 0 {
		return ErrInvalidEndIndex
	}

	if c.Parser.EndIndex > 0 && c.Parser.EndIndex < c.Parser.StartIndex {
		return ErrEndBeforeStart
	}

	if c.Parser.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Cleaning.PseudoHeadings.MaxLength < 0 {
		return ErrInvalidPseudoHeadingLen
	}

	if c.Validation.MaxDiagnosticsPerPage < 0 {
		return ErrInvalidMaxDiagnostics
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// Validate checks the retry policy.
func (rp *RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if rp.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if rp.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if rp.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	return nil
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if rp.MaxDelayMs > 0 && int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// InRange reports whether a 1-based page index falls inside the configured slice.
func (p *ParserConfig) InRange(index int) bool {
	if p.StartIndex > 0 && index < p.StartIndex {
		return false
	}

	if p.EndIndex > 0 && index > p.EndIndex {
		return false
	}

	return true
}

// PastEnd reports whether no page at or after index can be in range.
func (p *ParserConfig) PastEnd(index int) bool {
	return p.EndIndex > 0 && index > p.EndIndex
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Input: %s, Output: %s (%s), Workers: %d}",
		c.Input.Path,
		c.Output.Path,
		c.Output.Format,
		c.Parser.Workers,
	)
}
