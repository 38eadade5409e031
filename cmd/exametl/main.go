// Command exametl extracts exam-paper questions from PDFs into tagged CSV
// files, statistics reports and a SQLite question bank.
//
// Usage:
//
//	exametl run      [-config f] [-subject id] [-o out.csv] [-v] paper.pdf
//	exametl batch    [-config f] [-subject id] [-v] [dir]
//	exametl subjects [-config f]
//	exametl merge    [-config f] [-o all.csv]
//	exametl cache-clear [-config f]
//	exametl serve    [-config f] [-addr :8087]
//	exametl mcp      [-config f]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/exametl/config"
	"github.com/hazyhaar/exametl/etl"
	"github.com/hazyhaar/exametl/subject"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "run":
		err = cmdRun(ctx, args)
	case "batch":
		err = cmdBatch(ctx, args)
	case "subjects":
		err = cmdSubjects(args)
	case "merge":
		err = cmdMerge(ctx, args)
	case "cache-clear":
		err = cmdCacheClear(ctx, args)
	case "serve":
		err = cmdServe(ctx, args)
	case "mcp":
		err = cmdMCP(ctx, args)
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "exametl %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `exametl %s: exam paper question extraction

usage:
  exametl run         [flags] <paper.pdf>   process one paper
  exametl batch       [flags] [dir]         process every PDF under dir (default: PDF_PATH)
  exametl subjects    [flags]               list subject profiles
  exametl merge       [flags]               merge the latest run of every paper into one CSV
  exametl cache-clear [flags]               drop every cached recognition result
  exametl serve       [flags]               HTTP API
  exametl mcp         [flags]               MCP server on stdio

common flags:
  -config <file>   YAML config file (environment variables override it)
  -v               debug logging
`, version)
}

// common holds the flags every subcommand accepts.
type common struct {
	configPath string
	verbose    bool
}

func newFlagSet(name string) (*flag.FlagSet, *common) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &common{}
	fs.StringVar(&c.configPath, "config", "", "path to exametl.yaml config file")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
	return fs, c
}

func (c *common) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if c.verbose {
		level = "debug"
	}
	logger := config.NewLogger(level, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func (c *common) runner() (*etl.Runner, *config.Config, error) {
	cfg, logger, err := c.load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	r, err := etl.New(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init: %w", err)
	}
	return r, cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdRun(ctx context.Context, args []string) error {
	fs, c := newFlagSet("run")
	subjectID := fs.String("subject", "", "subject id (default: auto-detect)")
	out := fs.String("o", "", "output CSV path (default: OUTPUT_CSV)")
	noCache := fs.Bool("no-cache", false, "bypass the recognition cache")
	noReports := fs.Bool("no-reports", false, "skip the statistics reports")
	fs.Parse(args)

	r, cfg, err := c.runner()
	if err != nil {
		return err
	}
	defer r.Close()

	path := fs.Arg(0)
	if path == "" {
		path = cfg.PDFPath
		if err := cfg.ValidateInput(); err != nil {
			return err
		}
	}

	res, err := r.ProcessFile(ctx, path, etl.Options{
		Subject:   *subjectID,
		OutputCSV: *out,
		NoCache:   *noCache,
		NoReports: *noReports,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s: %d questions (%s), %d pages (native %d, recognized %d, fallback %d)\n",
		res.Source, len(res.Questions), res.SubjectName, res.PageCount,
		res.Pages.Native, res.Pages.Recognized, res.Pages.Fallback)
	fmt.Fprintf(os.Stderr, "csv: %s\n", res.CSVPath)
	for _, p := range res.Reports {
		fmt.Fprintf(os.Stderr, "report: %s\n", p)
	}
	return nil
}

func cmdBatch(ctx context.Context, args []string) error {
	fs, c := newFlagSet("batch")
	subjectID := fs.String("subject", "", "subject id for every file (default: auto-detect)")
	noCache := fs.Bool("no-cache", false, "bypass the recognition cache")
	fs.Parse(args)

	r, cfg, err := c.runner()
	if err != nil {
		return err
	}
	defer r.Close()

	dir := fs.Arg(0)
	if dir == "" {
		dir = cfg.PDFPath
	}
	res, err := r.ProcessDir(ctx, dir, etl.Options{Subject: *subjectID, NoCache: *noCache})
	if err != nil {
		return err
	}
	if err := printJSON(res); err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(res.Failed), len(res.Failed)+len(res.Succeeded))
	}
	return nil
}

func cmdSubjects(args []string) error {
	fs, c := newFlagSet("subjects")
	fs.Parse(args)

	cfg, _, err := c.load()
	if err != nil {
		return err
	}
	reg, err := subject.NewRegistry(cfg.SubjectDir)
	if err != nil {
		return err
	}
	for _, p := range reg.List() {
		fmt.Printf("  %-15s - %s\n", p.ID, p.Name)
	}
	return nil
}

func cmdMerge(ctx context.Context, args []string) error {
	fs, c := newFlagSet("merge")
	out := fs.String("o", "", "merged CSV path (default: OUTPUT_CSV)")
	fs.Parse(args)

	r, _, err := c.runner()
	if err != nil {
		return err
	}
	defer r.Close()

	res, err := r.Merge(ctx, *out)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func cmdCacheClear(ctx context.Context, args []string) error {
	fs, c := newFlagSet("cache-clear")
	fs.Parse(args)

	r, _, err := c.runner()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.ClearCache(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "recognition cache cleared")
	return nil
}

func cmdServe(ctx context.Context, args []string) error {
	fs, c := newFlagSet("serve")
	addr := fs.String("addr", "", "listen address (default: HTTP_ADDR)")
	fs.Parse(args)

	r, cfg, err := c.runner()
	if err != nil {
		return err
	}
	defer r.Close()
	if *addr == "" {
		*addr = cfg.HTTPAddr
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func cmdMCP(ctx context.Context, args []string) error {
	fs, c := newFlagSet("mcp")
	fs.Parse(args)

	r, _, err := c.runner()
	if err != nil {
		return err
	}
	defer r.Close()

	srv := mcp.NewServer(&mcp.Implementation{Name: "exametl", Version: version}, nil)
	r.RegisterMCP(srv)
	slog.Info("mcp server on stdio")
	err = srv.Run(ctx, &mcp.IOTransport{Reader: os.Stdin, Writer: os.Stdout})
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
