package etl

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/exametl/export"
)

// FileResult is the outcome of one file of a batch.
type FileResult struct {
	Path      string `json:"path"`
	CSVPath   string `json:"csv_path,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Questions int    `json:"questions"`
	Error     string `json:"error,omitempty"`
}

// BatchResult summarizes a directory run.
type BatchResult struct {
	Dir       string       `json:"dir"`
	OutputDir string       `json:"output_dir"`
	Succeeded []FileResult `json:"succeeded"`
	Failed    []FileResult `json:"failed"`
}

// FindPDFs lists the *.pdf files under dir recursively, sorted and without
// duplicates.
func FindPDFs(dir string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		key := absPath(path)
		if !seen[key] {
			seen[key] = true
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// ProcessDir processes every PDF under dir into a timestamped directory
// below <output_dir>/batch. A failing file is recorded and the batch goes
// on; only a cancelled context or an unusable directory stops it.
func (r *Runner) ProcessDir(ctx context.Context, dir string, opts Options) (*BatchResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("batch: %s is not a directory", dir)
	}
	files, err := FindPDFs(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("batch: no PDF files in %s", dir)
	}

	outDir := filepath.Join(r.cfg.OutputDir, "batch", "batch_"+time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	r.logger.Info("batch started", "dir", dir, "files", len(files), "output_dir", outDir)

	res := &BatchResult{Dir: dir, OutputDir: outDir}
	used := make(map[string]int)
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if n := used[stem]; n > 0 {
			used[stem]++
			stem += "_" + strconv.Itoa(n+1)
		} else {
			used[stem] = 1
		}

		fileOpts := opts
		fileOpts.OutputCSV = filepath.Join(outDir, stem+".csv")
		r.logger.Info("batch file", "n", i+1, "of", len(files), "path", path)

		one, err := r.ProcessFile(ctx, path, fileOpts)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			r.logger.Error("batch file failed", "path", path, "error", err)
			res.Failed = append(res.Failed, FileResult{Path: path, Error: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, FileResult{
			Path:      path,
			CSVPath:   one.CSVPath,
			Subject:   one.Subject,
			Questions: len(one.Questions),
		})
	}
	r.logger.Info("batch finished", "succeeded", len(res.Succeeded), "failed", len(res.Failed), "output_dir", outDir)
	return res, nil
}

// MergeResult describes a merge.
type MergeResult struct {
	CSVPath   string        `json:"csv_path"`
	Sources   int           `json:"sources"`
	Questions int           `json:"questions"`
	Reports   []string      `json:"reports,omitempty"`
	Stats     *export.Stats `json:"stats"`
}

// Merge writes the questions of the latest run of every source into one CSV
// at outPath (default: the configured output CSV) with its reports.
func (r *Runner) Merge(ctx context.Context, outPath string) (*MergeResult, error) {
	if outPath == "" {
		outPath = r.cfg.OutputCSV
	}
	runs, err := r.store.LatestRuns(ctx)
	if err != nil {
		return nil, err
	}
	qs, err := r.store.MergedQuestions(ctx)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("merge: no stored questions in %s", r.cfg.DBPath)
	}
	if err := export.SaveCSV(outPath, qs); err != nil {
		return nil, err
	}
	res := &MergeResult{
		CSVPath:   outPath,
		Sources:   len(runs),
		Questions: len(qs),
		Stats:     export.BuildStats(qs),
	}
	stem := strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath)) + "_report"
	res.Reports, err = export.SaveReports(filepath.Dir(outPath), stem, &export.Report{
		Title:     "合并统计报告",
		Source:    fmt.Sprintf("%d files", len(runs)),
		Generated: time.Now(),
		Stats:     res.Stats,
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("merged", "sources", len(runs), "questions", len(qs), "csv", outPath)
	return res, nil
}
