// Package etl wires the extraction pipeline, the subject profiles, the
// exporters and the question bank into single-file and batch runs, and
// exposes them over MCP and HTTP.
package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hazyhaar/exametl/config"
	"github.com/hazyhaar/exametl/docpipe"
	"github.com/hazyhaar/exametl/examparse"
	"github.com/hazyhaar/exametl/export"
	"github.com/hazyhaar/exametl/ocrcache"
	"github.com/hazyhaar/exametl/qbank"
	"github.com/hazyhaar/exametl/recognize"
	"github.com/hazyhaar/exametl/recognize/tesseract"
	"github.com/hazyhaar/exametl/subject"
	"github.com/hazyhaar/exametl/tagger"
)

// Runner runs extractions with one shared recognition engine and cache.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	subjects *subject.Registry

	cache      *ocrcache.Cache
	recognizer docpipe.Recognizer
	renderer   docpipe.Renderer
	store      *qbank.Store
	ownsStore  bool
}

// Option customises a Runner.
type Option func(*Runner)

// WithRecognizer replaces the recognizer built from the OCR settings.
func WithRecognizer(r docpipe.Recognizer) Option { return func(rn *Runner) { rn.recognizer = r } }

// WithRenderer replaces the pdftoppm renderer.
func WithRenderer(r docpipe.Renderer) Option { return func(rn *Runner) { rn.renderer = r } }

// WithStore uses an opened question bank instead of opening cfg.DBPath.
func WithStore(s *qbank.Store) Option { return func(rn *Runner) { rn.store = s } }

// New builds a Runner from cfg. cfg must have defaults applied.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{cfg: cfg, logger: logger}
	for _, o := range opts {
		o(r)
	}

	reg, err := subject.NewRegistry(cfg.SubjectDir)
	if err != nil {
		return nil, err
	}
	r.subjects = reg

	if !cfg.Cache.Disabled {
		if r.cache, err = openCache(cfg.Cache, logger); err != nil {
			return nil, err
		}
	}

	if r.recognizer == nil && cfg.OCR.Engine == config.EngineTesseract {
		handle := recognize.NewHandle(config.EngineTesseract, tesseract.Factory(tesseract.Options{
			Languages: tesseract.ParseLanguages(cfg.OCR.Languages),
		}))
		dcfg := recognize.Config{
			Workers:     cfg.OCR.Workers,
			CallTimeout: cfg.OCR.Timeout,
			Logger:      logger,
			Progress: func(done, total int) {
				logger.Debug("recognition progress", "done", done, "total", total)
			},
		}
		if r.cache != nil {
			dcfg.Cache = r.cache
		}
		r.recognizer = recognize.NewDispatcher(handle, dcfg)
	}

	if r.store == nil {
		if r.store, err = qbank.Open(cfg.DBPath); err != nil {
			r.closeCache()
			return nil, fmt.Errorf("open question bank: %w", err)
		}
		r.ownsStore = true
	}
	return r, nil
}

func openCache(c config.CacheConfig, logger *slog.Logger) (*ocrcache.Cache, error) {
	switch c.Backend {
	case config.BackendSQLite:
		st, err := ocrcache.OpenSQLiteStore(c.DB)
		if err != nil {
			return nil, err
		}
		return ocrcache.New(st, logger), nil
	default:
		st, err := ocrcache.NewDirStore(c.Dir)
		if err != nil {
			return nil, err
		}
		return ocrcache.New(st, logger), nil
	}
}

func (r *Runner) closeCache() {
	if r.cache != nil {
		r.cache.Close()
	}
}

// Close releases the cache and the question bank.
func (r *Runner) Close() error {
	r.closeCache()
	if r.ownsStore {
		return r.store.Close()
	}
	return nil
}

// Store returns the question bank.
func (r *Runner) Store() *qbank.Store { return r.store }

// Subjects lists the available subject profiles.
func (r *Runner) Subjects() []*subject.Profile { return r.subjects.List() }

// Options tunes one ProcessFile call.
type Options struct {
	// Subject forces a subject id; empty or "auto" detects it.
	Subject string `json:"subject,omitempty"`
	// OutputCSV overrides the configured CSV path.
	OutputCSV string `json:"output_csv,omitempty"`
	// ReportDir receives the statistics reports; empty uses the CSV's directory.
	ReportDir string `json:"report_dir,omitempty"`
	// NoReports skips the statistics reports.
	NoReports bool `json:"no_reports,omitempty"`
	// NoCache bypasses the recognition cache.
	NoCache bool `json:"no_cache,omitempty"`
}

// Result describes one processed file.
type Result struct {
	RunID       string          `json:"run_id"`
	Source      string          `json:"source"`
	Subject     string          `json:"subject"`
	SubjectName string          `json:"subject_name"`
	PageCount   int             `json:"page_count"`
	Pages       docpipe.Counts  `json:"pages"`
	Sections    int             `json:"sections"`
	Questions   []tagger.Tagged `json:"questions"`
	CSVPath     string          `json:"csv_path,omitempty"`
	Reports     []string        `json:"reports,omitempty"`
	Stats       *export.Stats   `json:"stats"`
	Cache       *ocrcache.Stats `json:"cache,omitempty"`
	Duration    time.Duration   `json:"duration_ns"`
}

// ProcessFile extracts, parses, tags and exports one paper and records the
// run in the question bank.
func (r *Runner) ProcessFile(ctx context.Context, path string, opts Options) (*Result, error) {
	start := time.Now()
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", docpipe.ErrDocumentNotFound, path)
		}
		return nil, err
	}
	r.logger.Info("processing file", "path", path, "size", humanize.Bytes(uint64(info.Size())))

	pipe := docpipe.New(docpipe.Config{
		QualityThreshold: r.cfg.QualityThreshold,
		MinChars:         r.cfg.MinChars,
		DPI:              r.cfg.OCR.DPI,
		DisableCache:     opts.NoCache || r.cache == nil,
		RequireOCR:       r.cfg.OCR.Require,
		Recognizer:       r.recognizer,
		Renderer:         r.renderer,
		Logger:           r.logger,
	})
	pages, err := pipe.Extract(ctx, path)
	if err != nil {
		return nil, err
	}

	profile := r.profileFor(path, pages, opts.Subject)
	profile = profile.WithLengths(r.cfg.MinContentLength, r.cfg.MaxContentLength)

	sections := examparse.Segment(pages, profile.Patterns())
	questions := profile.Extractor().ExtractAll(sections)
	tagged := profile.Tagger().TagAll(questions)

	res := &Result{
		Source:      path,
		Subject:     profile.ID,
		SubjectName: profile.Name,
		PageCount:   len(pages),
		Pages:       docpipe.Summarize(pages),
		Sections:    len(sections),
		Questions:   tagged,
		Stats:       export.BuildStats(tagged),
	}
	if len(tagged) == 0 {
		r.logger.Warn("no questions extracted", "path", path, "subject", profile.ID, "sections", len(sections))
	}

	res.CSVPath = opts.OutputCSV
	if res.CSVPath == "" {
		res.CSVPath = r.cfg.OutputCSV
	}
	if err := export.SaveCSV(res.CSVPath, tagged); err != nil {
		return nil, err
	}

	if !opts.NoReports {
		dir := opts.ReportDir
		if dir == "" {
			dir = filepath.Dir(res.CSVPath)
		}
		stem := strings.TrimSuffix(filepath.Base(res.CSVPath), filepath.Ext(res.CSVPath)) + "_report"
		report := &export.Report{
			Title:     "统计分析报告",
			Subject:   profile.Name,
			Source:    filepath.Base(path),
			Generated: time.Now(),
			Stats:     res.Stats,
		}
		if res.Reports, err = export.SaveReports(dir, stem, report); err != nil {
			return nil, err
		}
	}

	run := &qbank.Run{
		SourcePath:      absPath(path),
		Subject:         profile.ID,
		SubjectName:     profile.Name,
		Pages:           len(pages),
		NativePages:     res.Pages.Native,
		RecognizedPages: res.Pages.Recognized,
		FallbackPages:   res.Pages.Fallback,
		CSVPath:         res.CSVPath,
		StartedAt:       start.UnixMilli(),
		FinishedAt:      time.Now().UnixMilli(),
	}
	if err := r.store.SaveRun(ctx, run, tagged); err != nil {
		return nil, err
	}
	res.RunID = run.ID

	if r.cache != nil {
		st := r.cache.Stats()
		res.Cache = &st
	}
	res.Duration = time.Since(start)
	r.logger.Info("file processed",
		"path", path, "subject", profile.ID, "questions", len(tagged),
		"csv", res.CSVPath, "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// profileFor resolves the forced subject, then the configured one, then
// detection on the filename and the page text.
func (r *Runner) profileFor(path string, pages []docpipe.Page, forced string) *subject.Profile {
	id := forced
	if id == "" || id == "auto" {
		id = r.cfg.Subject
	}
	if id == "" || id == "auto" {
		var b strings.Builder
		for _, p := range pages {
			b.WriteString(p.Text)
			b.WriteByte('\n')
		}
		id = subject.Detect(path, b.String())
		r.logger.Debug("subject detected", "path", path, "subject", id)
	}
	return r.subjects.Get(id)
}

// ClearCache removes every cached recognition result.
func (r *Runner) ClearCache(ctx context.Context) error {
	if r.cache == nil {
		return errors.New("recognition cache is disabled")
	}
	return r.cache.Clear(ctx)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
