// Package config loads exametl settings from an optional YAML file, an
// optional .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all exametl settings.
type Config struct {
	PDFPath          string  `yaml:"pdf_path"`
	OutputCSV        string  `yaml:"output_csv"`
	OutputDir        string  `yaml:"output_dir"`
	MinContentLength int     `yaml:"min_content_length"`
	MaxContentLength int     `yaml:"max_content_length"`
	LogLevel         string  `yaml:"log_level"`
	Subject          string  `yaml:"subject"`
	SubjectDir       string  `yaml:"subject_dir"`
	QualityThreshold float64 `yaml:"quality_threshold"`
	MinChars         int     `yaml:"min_chars"`
	DBPath           string  `yaml:"db_path"`
	HTTPAddr         string  `yaml:"http_addr"`

	// ServeRoot confines the input paths accepted over HTTP and MCP.
	// Empty accepts any path readable by the process.
	ServeRoot string `yaml:"serve_root"`

	OCR   OCRConfig   `yaml:"ocr"`
	Cache CacheConfig `yaml:"cache"`
}

// OCRConfig controls the recognition pass. Engine is "tesseract" or
// "none"; Require makes an engine that fails to start a fatal error.
type OCRConfig struct {
	Engine    string        `yaml:"engine"`
	Languages string        `yaml:"languages"`
	DPI       int           `yaml:"dpi"`
	Workers   int           `yaml:"workers"`
	Timeout   time.Duration `yaml:"timeout"`
	Require   bool          `yaml:"require"`
}

// CacheConfig controls the recognition cache. Backend is "dir" or "sqlite".
type CacheConfig struct {
	Disabled bool   `yaml:"disabled"`
	Backend  string `yaml:"backend"`
	Dir      string `yaml:"dir"`
	DB       string `yaml:"db"`
}

// Engine names.
const (
	EngineTesseract = "tesseract"
	EngineNone      = "none"
)

// Cache backends.
const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
)

// Defaults fills zero fields. Content lengths stay zero so that each
// subject profile keeps its own bounds unless they are set explicitly.
func (c *Config) Defaults() {
	if c.PDFPath == "" {
		c.PDFPath = "data/input"
	}
	if c.OutputCSV == "" {
		c.OutputCSV = "data/output/exam_analysis.csv"
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Dir(c.OutputCSV)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = 0.5
	}
	if c.MinChars <= 0 {
		c.MinChars = 50
	}
	if c.DBPath == "" {
		c.DBPath = "data/exametl.db"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8087"
	}
	if c.OCR.Engine == "" {
		c.OCR.Engine = EngineTesseract
	}
	if c.OCR.Languages == "" {
		c.OCR.Languages = "chi_sim+eng"
	}
	if c.OCR.DPI <= 0 {
		c.OCR.DPI = 200
	}
	if c.OCR.Workers <= 0 {
		c.OCR.Workers = 4
	}
	if c.OCR.Timeout == 0 {
		c.OCR.Timeout = 2 * time.Minute
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendDir
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = filepath.Join(".cache", "ocr")
	}
	if c.Cache.DB == "" {
		c.Cache.DB = filepath.Join(".cache", "ocr.db")
	}
}

// LoadFile reads a YAML config file without applying defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the effective configuration: the YAML file at path when
// non-empty, then .env (if present), then the environment, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	// .env is optional; existing environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}
	if err := cfg.FromEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Defaults()
	return cfg, nil
}

// FromEnv overlays every variable that lookup reports as set.
func (c *Config) FromEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flt := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PDF_PATH", &c.PDFPath)
	str("OUTPUT_CSV", &c.OutputCSV)
	str("OUTPUT_DIR", &c.OutputDir)
	num("MIN_CONTENT_LENGTH", &c.MinContentLength)
	num("MAX_CONTENT_LENGTH", &c.MaxContentLength)
	str("LOG_LEVEL", &c.LogLevel)
	str("SUBJECT", &c.Subject)
	str("SUBJECT_DIR", &c.SubjectDir)
	flt("QUALITY_THRESHOLD", &c.QualityThreshold)
	num("MIN_CHARS", &c.MinChars)
	str("DB_PATH", &c.DBPath)
	str("HTTP_ADDR", &c.HTTPAddr)
	str("SERVE_ROOT", &c.ServeRoot)
	str("OCR_ENGINE", &c.OCR.Engine)
	str("OCR_LANGUAGES", &c.OCR.Languages)
	num("OCR_DPI", &c.OCR.DPI)
	num("OCR_WORKERS", &c.OCR.Workers)
	dur("OCR_TIMEOUT", &c.OCR.Timeout)
	boolean("OCR_REQUIRE", &c.OCR.Require)
	str("CACHE_BACKEND", &c.Cache.Backend)
	str("CACHE_DIR", &c.Cache.Dir)
	str("CACHE_DB", &c.Cache.DB)

	var enabled = !c.Cache.Disabled
	boolean("OCR_CACHE", &enabled)
	c.Cache.Disabled = !enabled

	return errors.Join(errs...)
}

// Validate checks settings and that the output directory can be created.
// The input path is checked by the caller that knows whether it is needed.
func (c *Config) Validate() error {
	if c.MaxContentLength > 0 && c.MaxContentLength < c.MinContentLength {
		return fmt.Errorf("config: max_content_length %d < min_content_length %d", c.MaxContentLength, c.MinContentLength)
	}
	if c.QualityThreshold > 1 {
		return fmt.Errorf("config: quality_threshold %.2f out of (0, 1]", c.QualityThreshold)
	}
	switch c.OCR.Engine {
	case EngineTesseract, EngineNone:
	default:
		return fmt.Errorf("config: unknown ocr engine %q", c.OCR.Engine)
	}
	switch c.Cache.Backend {
	case BackendDir, BackendSQLite:
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("config: cannot create output directory: %w", err)
	}
	return nil
}

// ValidateInput checks that the configured input path exists.
func (c *Config) ValidateInput() error {
	if _, err := os.Stat(c.PDFPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: input not found: %s", c.PDFPath)
		}
		return fmt.Errorf("config: input: %w", err)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level; unknown names give info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a JSON logger writing to w at the named level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}
