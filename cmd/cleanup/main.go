// Command cleanup runs one retention sweep and exits. It is meant for an
// external scheduler such as cron when the API's own ticker is disabled.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"

	"qrforge/internal/config"
	"qrforge/internal/database"
	"qrforge/internal/database/migration"
	"qrforge/internal/logging"
	"qrforge/internal/repository/sqlstore"
	"qrforge/internal/service"
	"qrforge/internal/storage"
)

// Exit codes: 0 clean sweep, 1 failure, 2 partial sweep.
const exitPartial = 2

type options struct {
	window time.Duration
	json   bool
}

func parseFlags(args []string, defWindow time.Duration, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("cleanup", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.DurationVar(&opts.window, "window", defWindow, "delete content and metadata older than this (e.g. 720h)")
	fs.BoolVar(&opts.json, "json", false, "print the sweep result as JSON")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if opts.window <= 0 {
		return opts, errors.New("--window must be positive")
	}
	return opts, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	opts, err := parseFlags(os.Args[1:], cfg.Cleanup.RetentionWindow, os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := sweep(ctx, cfg, opts.window)
	if res != nil {
		if perr := report(os.Stdout, res, opts.json); perr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", perr)
		}
	}
	switch {
	case errors.Is(err, service.ErrPartialSweep):
		os.Exit(exitPartial)
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func sweep(ctx context.Context, cfg *config.AppConfig, window time.Duration) (*service.SweepResult, error) {
	// logs go to stderr so stdout stays machine readable
	log := logging.NewWithWriter(os.Stderr, cfg.Log.Level, cfg.Location())

	sel, err := database.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer sel.DB.Close()
	if err := migration.EnsureMigrated(ctx, sel.DB, sel.Kind, log); err != nil {
		return nil, err
	}

	files, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	meta := sqlstore.New(sel.DB, sel.Kind)
	cleaner := service.NewCleanupScheduler(files, meta.Cleanup(), window, 0, 0, log.WithField("component", "cleanup"))
	return cleaner.Sweep(ctx, window)
}

func report(w io.Writer, res *service.SweepResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := fmt.Fprintf(w,
		"Cleanup complete. Deleted %d files, %d batch archives, %d artifacts, %d analytics events and %d batch jobs older than %s (%d bytes freed).\n",
		res.FilesDeleted, res.BatchFilesDeleted, res.ArtifactsDeleted, res.AnalyticsDeleted, res.BatchJobsDeleted,
		res.Window, res.BytesFreed)
	if err != nil {
		return err
	}
	for _, e := range res.Errors {
		if _, err := fmt.Fprintf(w, "  failed: %s\n", e); err != nil {
			return err
		}
	}
	return nil
}
