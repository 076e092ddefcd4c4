// Package config provides loading and validation of the source list consumed by the fetcher.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ukstats/sourcefetch/internal/telemetry"
)

const (
	// SourceTypeDirectDownload is the type for sources whose URL serves the data file itself
	SourceTypeDirectDownload = "direct_download"

	// SourceTypeWebScrape is the type for sources whose URL serves an HTML page linking to the data
	SourceTypeWebScrape = "web_scrape"
)

const (
	// FileTypeCSV is a comma separated values file
	FileTypeCSV = "csv"

	// FileTypeXLSX is an Office Open XML workbook
	FileTypeXLSX = "xlsx"

	// FileTypeODS is an OpenDocument spreadsheet
	FileTypeODS = "ods"

	// FileTypeZIP is a ZIP archive holding the data file as one of its members
	FileTypeZIP = "zip"
)

// DefaultTableSelector locates the statistics table on scraped pages that carry the data inline.
const DefaultTableSelector = "table#stats-table"

// EnvPrefix is the prefix of environment variables read by the CLI.
const EnvPrefix = "SOURCEFETCH"

var (
	// sourceNamePattern keeps names usable as directory names for status files
	sourceNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

	supportedMethods = map[string]bool{
		http.MethodGet:  true,
		http.MethodPost: true,
	}

	// supportedParsers lists the parser identifiers accepted for web_scrape sources.
	// All of them select the same HTML5 parser.
	supportedParsers = map[string]bool{
		"html.parser": true,
		"html5lib":    true,
		"lxml":        true,
		"html":        true,
	}
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// OutputDir is the directory relative output_file paths are resolved against.
	// Relative values are resolved against the directory holding the config file.
	// Defaults to that directory.
	OutputDir string `yaml:"outputDir,omitempty"`

	// Sources is the list of data sources to fetch
	Sources []SourceConfig `yaml:"sources"`

	// Telemetry configures tracing and metrics for fetch runs
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`

	// baseDir is the resolved output directory, set by LoadConfig
	baseDir string
}

// SourceConfig describes how to obtain and normalize one dataset
type SourceConfig struct {
	// Name is the unique identifier of the source
	Name string `yaml:"name"`

	// Type is the retrieval kind (direct_download or web_scrape)
	Type string `yaml:"type"`

	// URL is the data file URL for direct downloads, or the page URL for web scrapes
	URL string `yaml:"url"`

	// Method is the HTTP verb used against URL
	Method string `yaml:"method"`

	// Parser identifies the HTML parser for web scrapes
	Parser string `yaml:"parser,omitempty"`

	// FileType is the format of the downloaded file (csv, xlsx, ods or zip)
	FileType string `yaml:"file_type"`

	// SheetName selects the worksheet of xlsx/ods files
	SheetName string `yaml:"sheet_name,omitempty"`

	// OutputFile is where the normalized CSV is written
	OutputFile string `yaml:"output_file"`

	// LinkText is the visible text of the anchor pointing at the data file
	LinkText string `yaml:"link_text,omitempty"`

	// BaseURL resolves relative hrefs found on the scraped page
	BaseURL string `yaml:"base_url,omitempty"`

	// ZipTargetFile is the archive member pattern, which may contain a single '*'
	ZipTargetFile string `yaml:"zip_target_file,omitempty"`

	// TableSelector is the CSS selector of the inline table extracted when LinkText is empty
	TableSelector string `yaml:"table_selector,omitempty"`

	// Headers are extra request headers sent for this source
	Headers map[string]string `yaml:"headers,omitempty"`
}

// ConfigError reports a malformed or missing field of the configuration.
//
//nolint:revive // the name mirrors the other error kinds of the fetcher
type ConfigError struct {
	// Index is the position of the offending source, or -1 for file level errors
	Index int
	// Source is the name of the offending source, if known
	Source string
	// Field is the offending field, if any
	Field string
	// Err is the underlying problem
	Err error
}

func (e *ConfigError) Error() string {
	var prefix string
	switch {
	case e.Index < 0:
		prefix = "config"
	case e.Source != "":
		prefix = fmt.Sprintf("source[%d] (%s)", e.Index, e.Source)
	default:
		prefix = fmt.Sprintf("source[%d]", e.Index)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func fieldError(index int, src *SourceConfig, field, format string, args ...any) error {
	return &ConfigError{Index: index, Source: src.Name, Field: field, Err: fmt.Errorf(format, args...)}
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, err
	}

	configDir := filepath.Dir(loaderCfg.path)
	switch {
	case config.OutputDir == "":
		config.baseDir = configDir
	case filepath.IsAbs(config.OutputDir):
		config.baseDir = filepath.Clean(config.OutputDir)
	default:
		config.baseDir = filepath.Join(configDir, config.OutputDir)
	}

	// Paths now resolve against the config file, which can make new spellings collide
	if errs := config.outputCollisions(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	return config, nil
}

// Parse checks raw YAML against the sources schema, decodes it and validates the result.
// Relative output paths of a parsed config resolve against the working directory.
func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, &ConfigError{Index: -1, Err: err}
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, &ConfigError{Index: -1, Err: fmt.Errorf("failed to parse YAML config: %w", err)}
	}

	config.baseDir = config.OutputDir
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// OutputPath returns where the CSV of src is written, resolving relative paths
// against the configured output directory.
func (c *Config) OutputPath(src *SourceConfig) string {
	if filepath.IsAbs(src.OutputFile) || c.baseDir == "" {
		return filepath.Clean(src.OutputFile)
	}
	return filepath.Join(c.baseDir, src.OutputFile)
}

// SourceNames returns the names of all configured sources in declaration order
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, src := range c.Sources {
		names = append(names, src.Name)
	}
	return names
}

// outputCollisions reports sources whose output paths resolve to the same
// file, so a relative and an absolute spelling of one path are caught.
func (c *Config) outputCollisions() []error {
	var errs []error
	seen := make(map[string]int)
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.OutputFile == "" {
			continue
		}
		path := c.OutputPath(src)
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if prev, dup := seen[path]; dup {
			errs = append(errs, fieldError(i, src, "output_file",
				"%q resolves to %s, which is already written by source[%d]", src.OutputFile, path, prev))
			continue
		}
		seen[path] = i
	}
	return errs
}

// Validate performs validation on the configuration. Every problem found is
// reported, joined into a single error made of *ConfigError values.
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigError{Index: -1, Err: errors.New("config cannot be nil")}
	}

	if len(c.Sources) == 0 {
		return &ConfigError{Index: -1, Err: errors.New("at least one source must be configured")}
	}

	var errs []error
	names := make(map[string]int)
	for i := range c.Sources {
		src := &c.Sources[i]

		if src.Name == "" {
			errs = append(errs, fieldError(i, src, "name", "is required"))
		} else if !sourceNamePattern.MatchString(src.Name) {
			errs = append(errs, fieldError(i, src, "name", "must match %s", sourceNamePattern))
		} else if prev, dup := names[src.Name]; dup {
			errs = append(errs, fieldError(i, src, "name", "duplicates source[%d]", prev))
		} else {
			names[src.Name] = i
		}

		errs = append(errs, validateSource(i, src)...)
	}
	errs = append(errs, c.outputCollisions()...)

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			errs = append(errs, &ConfigError{Index: -1, Field: "telemetry", Err: err})
		}
	}

	return errors.Join(errs...)
}

// validateSource validates a single source configuration
func validateSource(index int, src *SourceConfig) []error {
	var errs []error

	if err := validateHTTPURL(src.URL); err != nil {
		errs = append(errs, fieldError(index, src, "url", "%v", err))
	}

	if src.Method == "" {
		errs = append(errs, fieldError(index, src, "method", "is required"))
	} else if !supportedMethods[strings.ToUpper(src.Method)] {
		errs = append(errs, fieldError(index, src, "method", "unsupported HTTP method %q", src.Method))
	}

	if src.OutputFile == "" {
		errs = append(errs, fieldError(index, src, "output_file", "is required"))
	}

	errs = append(errs, validateFileType(index, src)...)

	switch src.Type {
	case SourceTypeDirectDownload:
		errs = append(errs, validateDirectDownload(index, src)...)
	case SourceTypeWebScrape:
		errs = append(errs, validateWebScrape(index, src)...)
	case "":
		errs = append(errs, fieldError(index, src, "type", "is required"))
	default:
		errs = append(errs, fieldError(index, src, "type", "must be %s or %s, got %q",
			SourceTypeDirectDownload, SourceTypeWebScrape, src.Type))
	}

	return errs
}

// validateFileType validates file_type and the extraction parameters that depend on it
func validateFileType(index int, src *SourceConfig) []error {
	var errs []error

	switch src.FileType {
	case FileTypeXLSX, FileTypeODS:
		if src.SheetName == "" {
			errs = append(errs, fieldError(index, src, "sheet_name", "is required for file_type %s", src.FileType))
		}
	case FileTypeZIP:
		if src.ZipTargetFile == "" {
			errs = append(errs, fieldError(index, src, "zip_target_file", "is required for file_type zip"))
		} else if err := ValidateMemberPattern(src.ZipTargetFile); err != nil {
			errs = append(errs, fieldError(index, src, "zip_target_file", "%v", err))
		} else if IsSpreadsheet(src.ZipTargetFile) && src.SheetName == "" {
			errs = append(errs, fieldError(index, src, "sheet_name", "is required when zip_target_file is a spreadsheet"))
		}
	case FileTypeCSV:
		if src.SheetName != "" {
			errs = append(errs, fieldError(index, src, "sheet_name", "is not valid for file_type csv"))
		}
	case "":
		errs = append(errs, fieldError(index, src, "file_type", "is required"))
	default:
		errs = append(errs, fieldError(index, src, "file_type", "unsupported file type %q", src.FileType))
	}

	if src.FileType != FileTypeZIP && src.ZipTargetFile != "" {
		errs = append(errs, fieldError(index, src, "zip_target_file", "is only valid for file_type zip"))
	}

	return errs
}

// validateDirectDownload validates direct_download specific settings
func validateDirectDownload(index int, src *SourceConfig) []error {
	var errs []error
	scrapeOnly := []struct{ field, value string }{
		{"link_text", src.LinkText},
		{"base_url", src.BaseURL},
		{"parser", src.Parser},
		{"table_selector", src.TableSelector},
	}
	for _, f := range scrapeOnly {
		if f.value != "" {
			errs = append(errs, fieldError(index, src, f.field, "is only valid for type %s", SourceTypeWebScrape))
		}
	}
	return errs
}

// validateWebScrape validates web_scrape specific settings
func validateWebScrape(index int, src *SourceConfig) []error {
	var errs []error

	if src.Parser != "" && !supportedParsers[src.Parser] {
		errs = append(errs, fieldError(index, src, "parser", "unsupported parser %q", src.Parser))
	}

	if src.BaseURL != "" {
		if err := validateHTTPURL(src.BaseURL); err != nil {
			errs = append(errs, fieldError(index, src, "base_url", "%v", err))
		}
	}

	if src.LinkText == "" {
		// The page carries the data inline as an HTML table
		if src.FileType != FileTypeCSV {
			errs = append(errs, fieldError(index, src, "link_text",
				"is required when the data is a %s file behind a link", src.FileType))
		}
		if src.BaseURL != "" {
			errs = append(errs, fieldError(index, src, "base_url", "is only valid together with link_text"))
		}
	} else if src.TableSelector != "" {
		errs = append(errs, fieldError(index, src, "table_selector", "is only valid without link_text"))
	}

	return errs
}

// IsScrapedTable reports whether the source extracts an inline HTML table instead of a linked file
func (s *SourceConfig) IsScrapedTable() bool {
	return s.Type == SourceTypeWebScrape && s.LinkText == ""
}

// GetMethod returns the upper-cased HTTP method, defaulting to GET
func (s *SourceConfig) GetMethod() string {
	if s.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(s.Method)
}

// GetTableSelector returns the inline table selector, using DefaultTableSelector if not specified
func (s *SourceConfig) GetTableSelector() string {
	if s.TableSelector == "" {
		return DefaultTableSelector
	}
	return s.TableSelector
}

// ValidateMemberPattern checks an archive member pattern: at most one '*' and no other
// glob metacharacters that would make the match ambiguous to read.
func ValidateMemberPattern(pattern string) error {
	if strings.Count(pattern, "*") > 1 {
		return fmt.Errorf("pattern %q may contain at most one '*'", pattern)
	}
	if strings.ContainsAny(pattern, "?[]\\") {
		return fmt.Errorf("pattern %q may only use '*' as a wildcard", pattern)
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return nil
}

// IsSpreadsheet reports whether name has a spreadsheet extension
func IsSpreadsheet(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case "." + FileTypeXLSX, "." + FileTypeODS:
		return true
	default:
		return false
	}
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
