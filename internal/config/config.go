// =============================================================================
// Plano de Aplicação Converter - Configuration Module
// =============================================================================
//
// This module loads the application configuration.
//
// SOURCES (later wins):
//   1. Built-in defaults
//   2. config.yaml (optional when it is the default path)
//   3. PLANO_* environment variables and command-line flags, through viper
//
// EXAMPLE config.yaml:
//
//   input_dir: ./input
//   output_dir: ./output
//   template_path: ./templates/modelo.xlsx
//   output_name_format: "{original}_{timestamp}.xlsx"
//   server:
//     addr: ":8080"
//     max_upload_bytes: 20971520
//   parser:
//     duplicate_policy: skip
//     money_policy: last
//     noise_patterns:
//       - "(?i)^RASCUNHO$"
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/fields"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/logging"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/segmenter"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/textutil"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/validation"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/xlsxparser"
)

// DefaultConfigPath is used when --config is not given. A missing file at
// this path is not an error.
const DefaultConfigPath = "config.yaml"

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "PLANO"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for *.pdf files by "plano fill".
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the filled spreadsheets.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives source PDFs after a successful conversion.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every generated spreadsheet.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// TemplatePath is the spreadsheet template the rows are written into.
	// Default: "./templates/modelo.xlsx"
	TemplatePath string `yaml:"template_path"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an optional JSON log file written next to stderr.
	LogFile string `yaml:"log_file"`

	// LogLevel is one of debug, info, warn, error.
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines output file names.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {original}  - Source PDF name without extension
	// Default: "{original}_{uuid}.xlsx"
	OutputNameFormat string `yaml:"output_name_format"`

	// WriteDiagnostics writes a <output>.log file listing row diagnostics
	// whenever a conversion produced any.
	WriteDiagnostics bool `yaml:"write_diagnostics"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the number of PDFs converted at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps converting the remaining files when one fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`

	Server ServerConfig `yaml:"server"`
	Parser ParserConfig `yaml:"parser"`
}

// ServerConfig configures the web form.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `yaml:"addr"`

	// MaxUploadBytes caps the size of an uploaded PDF.
	// Default: 20 MiB
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RateLimit is the sustained number of conversions per second. Zero
	// disables limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the number of conversions accepted at once.
	// Default: 4
	RateBurst int `yaml:"rate_burst"`
}

// ParserConfig tunes parsing of the document and of the template.
type ParserConfig struct {
	// DuplicatePolicy is "skip" (default) or "append".
	DuplicatePolicy string `yaml:"duplicate_policy"`

	// MoneyPolicy is "last" (default) or "first".
	MoneyPolicy string `yaml:"money_policy"`

	// HeaderScanRows is how many template rows are searched for the header.
	// Default: 5
	HeaderScanRows int `yaml:"header_scan_rows"`

	// HeaderKeywords identify the header row. Default: item, meta, numero
	HeaderKeywords []string `yaml:"header_keywords"`

	// NoisePatterns are extra regular expressions for boilerplate lines.
	NoisePatterns []string `yaml:"noise_patterns"`

	// RequiredColumns are header fragments whose cells should never be empty.
	// Default: descricao
	RequiredColumns []string `yaml:"required_columns"`

	// ValidatePDF runs a structural check on uploads before extraction.
	// Default: true
	ValidatePDF bool `yaml:"validate_pdf"`
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns the configuration used when no file is present.
func Default() *MainConfig {
	config := newWithBoolDefaults()
	applyMainConfigDefaults(config)
	return config
}

// newWithBoolDefaults presets the options that default to true, which
// applyMainConfigDefaults cannot tell apart from an explicit false.
func newWithBoolDefaults() *MainConfig {
	return &MainConfig{
		ContinueOnError: true,
		Parser:          ParserConfig{ValidatePDF: true},
	}
}

// LoadMainConfig reads the configuration file at configPath.
//
// RETURNS:
//   - The configuration with defaults applied and validated.
//   - An error if the file cannot be read or parsed. A missing file is only
//     an error when configPath is not DefaultConfigPath.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	config := newWithBoolDefaults()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist) && configPath == DefaultConfigPath:
		// Run on defaults.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyMainConfigDefaults(config)

	if err := validateMainConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Load reads the file and then applies overrides from v.
func Load(configPath string, v *viper.Viper) (*MainConfig, error) {
	config, err := LoadMainConfig(configPath)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return config, nil
	}

	ApplyOverrides(config, v)
	applyMainConfigDefaults(config)
	if err := validateMainConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.TemplatePath == "" {
		config.TemplatePath = "./templates/modelo.xlsx"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{original}_{uuid}.xlsx"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MaxUploadBytes == 0 {
		config.Server.MaxUploadBytes = 20 << 20
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 60 * time.Second
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}
	if config.Server.RateBurst == 0 {
		config.Server.RateBurst = 4
	}

	if config.Parser.DuplicatePolicy == "" {
		config.Parser.DuplicatePolicy = string(segmenter.DuplicateSkip)
	}
	if config.Parser.MoneyPolicy == "" {
		config.Parser.MoneyPolicy = string(fields.MoneyLast)
	}
	if config.Parser.HeaderScanRows == 0 {
		config.Parser.HeaderScanRows = xlsxparser.DefaultHeaderOptions().ScanRows
	}
	if len(config.Parser.HeaderKeywords) == 0 {
		config.Parser.HeaderKeywords = xlsxparser.DefaultHeaderOptions().Keywords
	}
	if len(config.Parser.RequiredColumns) == 0 {
		config.Parser.RequiredColumns = validation.DefaultOptions().RequiredKeywords
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1 (got %d)", config.MaxConcurrency)
	}
	if config.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if config.Server.RateLimit < 0 || config.Server.RateBurst < 0 {
		return fmt.Errorf("server.rate_limit and server.rate_burst must not be negative")
	}
	if config.Parser.HeaderScanRows < 1 {
		return fmt.Errorf("parser.header_scan_rows must be at least 1")
	}
	if !strings.Contains(config.OutputNameFormat, "{uuid}") && !strings.Contains(config.OutputNameFormat, "{timestamp}") &&
		!strings.Contains(config.OutputNameFormat, "{original}") {
		return fmt.Errorf("output_name_format needs at least one of {uuid}, {timestamp}, {original}")
	}
	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return err
	}
	if _, err := segmenter.ParseDuplicatePolicy(config.Parser.DuplicatePolicy); err != nil {
		return fmt.Errorf("parser.duplicate_policy: %w", err)
	}
	if _, err := fields.ParseMoneyPolicy(config.Parser.MoneyPolicy); err != nil {
		return fmt.Errorf("parser.money_policy: %w", err)
	}
	if _, err := textutil.NewNoiseFilter(config.Parser.NoisePatterns...); err != nil {
		return fmt.Errorf("parser.noise_patterns: %w", err)
	}
	return nil
}

// EnsureDirectories creates the input, output and archive directories.
func (c *MainConfig) EnsureDirectories() error {
	dirs := []string{
		c.InputDir,
		c.OutputDir,
		c.InputArchiveDir,
		c.OutputArchiveDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// OVERRIDES
// =============================================================================

// NewViper returns a viper instance reading PLANO_* environment variables.
// Nested keys use "_" in the environment: PLANO_SERVER_ADDR -> server.addr.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyOverrides copies every key set in v (flag or environment) onto config.
func ApplyOverrides(config *MainConfig, v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	str("input_dir", &config.InputDir)
	str("output_dir", &config.OutputDir)
	str("input_archive_dir", &config.InputArchiveDir)
	str("output_archive_dir", &config.OutputArchiveDir)
	str("template_path", &config.TemplatePath)
	str("log_file", &config.LogFile)
	str("log_level", &config.LogLevel)
	str("output_name_format", &config.OutputNameFormat)
	str("server.addr", &config.Server.Addr)
	str("parser.duplicate_policy", &config.Parser.DuplicatePolicy)
	str("parser.money_policy", &config.Parser.MoneyPolicy)

	if v.IsSet("max_concurrency") {
		config.MaxConcurrency = v.GetInt("max_concurrency")
	}
	if v.IsSet("continue_on_error") {
		config.ContinueOnError = v.GetBool("continue_on_error")
	}
	if v.IsSet("write_diagnostics") {
		config.WriteDiagnostics = v.GetBool("write_diagnostics")
	}
	if v.IsSet("server.max_upload_bytes") {
		config.Server.MaxUploadBytes = v.GetInt64("server.max_upload_bytes")
	}
	if v.IsSet("server.rate_limit") {
		config.Server.RateLimit = v.GetFloat64("server.rate_limit")
	}
	if v.IsSet("parser.validate_pdf") {
		config.Parser.ValidatePDF = v.GetBool("parser.validate_pdf")
	}
}

// =============================================================================
// COMPONENT OPTIONS
// =============================================================================
// Validation above guarantees these conversions succeed.

// SegmenterOptions builds the segmenter options.
func (c *MainConfig) SegmenterOptions() (segmenter.Options, error) {
	policy, err := segmenter.ParseDuplicatePolicy(c.Parser.DuplicatePolicy)
	if err != nil {
		return segmenter.Options{}, err
	}
	noise, err := textutil.NewNoiseFilter(c.Parser.NoisePatterns...)
	if err != nil {
		return segmenter.Options{}, err
	}
	return segmenter.Options{DuplicatePolicy: policy, Noise: noise}, nil
}

// FieldOptions builds the field extractor options.
func (c *MainConfig) FieldOptions() (fields.Options, error) {
	policy, err := fields.ParseMoneyPolicy(c.Parser.MoneyPolicy)
	if err != nil {
		return fields.Options{}, err
	}
	noise, err := textutil.NewNoiseFilter(c.Parser.NoisePatterns...)
	if err != nil {
		return fields.Options{}, err
	}
	return fields.Options{MoneyPolicy: policy, Noise: noise}, nil
}

// HeaderOptions builds the template header sniffing options.
func (c *MainConfig) HeaderOptions() xlsxparser.HeaderOptions {
	return xlsxparser.HeaderOptions{
		ScanRows: c.Parser.HeaderScanRows,
		Keywords: c.Parser.HeaderKeywords,
	}
}

// ValidationOptions builds the row validation options.
func (c *MainConfig) ValidationOptions() validation.Options {
	return validation.Options{RequiredKeywords: c.Parser.RequiredColumns}
}
