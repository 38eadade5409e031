// CLAUDE:SUMMARY Configuration struct and defaults for the hybrid extraction pipeline.
package docpipe

import "log/slog"

// Config configures the pipeline. Zero values take the defaults below.
type Config struct {
	// MaxFileSize is the largest input accepted (default: 200 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// QualityThreshold: pages scoring below it are recognized (default: 0.5).
	QualityThreshold float64 `json:"quality_threshold" yaml:"quality_threshold"`

	// MinChars: pages with fewer runes are recognized regardless of score (default: 50).
	MinChars int `json:"min_chars" yaml:"min_chars"`

	// DPI used to render pages for recognition (default: 200).
	DPI int `json:"dpi" yaml:"dpi"`

	// DisableCache skips the recognition cache for this pipeline.
	DisableCache bool `json:"disable_cache" yaml:"disable_cache"`

	// RequireOCR makes an engine initialization failure fatal instead of
	// degrading flagged pages to recognized_fallback.
	RequireOCR bool `json:"require_ocr" yaml:"require_ocr"`

	// Recognizer runs pass 2. Nil disables recognition.
	Recognizer Recognizer `json:"-" yaml:"-"`

	// Renderer rasterizes PDF pages. Nil uses pdftoppm.
	Renderer Renderer `json:"-" yaml:"-"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 200 * 1024 * 1024
	}
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = 0.5
	}
	if c.MinChars <= 0 {
		c.MinChars = 50
	}
	if c.DPI <= 0 {
		c.DPI = 200
	}
	if c.Renderer == nil {
		c.Renderer = &PopplerRenderer{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
