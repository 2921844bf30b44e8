package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mcooley/PlayFabExport/internal/config"
	"github.com/mcooley/PlayFabExport/internal/database"
	"github.com/mcooley/PlayFabExport/internal/export"
	"github.com/mcooley/PlayFabExport/internal/fetch"
	"github.com/mcooley/PlayFabExport/internal/history"
	"github.com/mcooley/PlayFabExport/internal/merge"
	"github.com/mcooley/PlayFabExport/internal/model"
	"github.com/mcooley/PlayFabExport/internal/playfab"
	"github.com/mcooley/PlayFabExport/internal/sink"
	"github.com/mcooley/PlayFabExport/internal/version"
)

// historyTimeout bounds the final history update, which runs after the
// main context may already be cancelled.
const historyTimeout = 10 * time.Second

// runDownload starts (or resumes) a segment export, waits for it to
// complete and merges every shard into the output.
func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to YAML config file")
	titleID := fs.String("title", "", "PlayFab title id")
	segmentID := fs.String("segment", "", "Segment id to export")
	exportID := fs.String("export", "", "Existing export id to resume (takes precedence over -segment)")
	output := fs.String("output", "", "Output file path or bucket URL")
	pollInterval := fs.Duration("poll-interval", 0, "Delay between export status checks (default 10s)")
	shardDelay := fs.Duration("shard-delay", 0, "Pause between shard downloads (default 1s)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	verbose := fs.Bool("v", false, "Enable debug logging")
	showProgress := fs.Bool("progress", true, "Print a line after each merged shard")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: playfabexport download -title T (-segment S | -export E) -output O [options]

Export the players of a PlayFab segment and merge the sharded result into a
single tab-separated file with one header row.

The developer secret key is read from PLAYFAB_SECRET_KEY.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Error: unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := config.LoadAndValidate(*configPath, config.Overrides{
		TitleID:      *titleID,
		SegmentID:    *segmentID,
		ExportID:     *exportID,
		Output:       *output,
		PollInterval: *pollInterval,
		ShardDelay:   *shardDelay,
		LogLevel:     *logLevel,
	})
	if err != nil {
		fmt.Fprintf(stderr, "playfabexport: %v\n", err)
		return ExitInvalidArgs
	}

	logger := newLogger(cfg.Log, *verbose, stderr)

	logger.Info("starting playfabexport",
		"version", version.Version,
		"title_id", cfg.PlayFab.TitleID,
		"segment_id", cfg.Export.SegmentID,
		"export_id", cfg.Export.ExportID,
		"output", cfg.Export.Output,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Warn("received shutdown signal, partial output is kept", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var progress io.Writer = io.Discard
	if *showProgress {
		progress = stderr
	}

	err = download(ctx, cfg, logger, progress)
	if err != nil {
		fmt.Fprintf(stderr, "playfabexport: %v\n", err)
	}
	return exitCode(err)
}

// download runs one export against an already validated config.
func download(ctx context.Context, cfg *config.Config, logger *slog.Logger, progress io.Writer) (err error) {
	// The output is acquired before any remote call so a bad destination
	// fails fast.
	out, err := sink.Open(ctx, cfg.Export.Output)
	if err != nil {
		return err
	}

	recorder, closeHistory := openHistory(ctx, cfg, logger)
	defer closeHistory()

	run := model.NewRun(cfg.PlayFab.TitleID, cfg.Export.SegmentID, cfg.Export.ExportID, out.Target())
	if err := recorder.Begin(ctx, run); err != nil {
		logger.Warn("failed to record run start", "run_id", run.RunID, "error", err)
	}
	defer func() {
		// Partial output is committed on failure too.
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}

		run.Finish(err)
		finishCtx, finishCancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
		defer finishCancel()
		if herr := recorder.Finish(finishCtx, run); herr != nil {
			logger.Warn("failed to record run outcome", "run_id", run.RunID, "error", herr)
		}
	}()

	client := playfab.NewClient(
		cfg.PlayFab.TitleID,
		cfg.PlayFab.SecretKey,
		playfab.WithBaseURL(cfg.PlayFab.APIURL),
		playfab.WithTimeout(cfg.PlayFab.Timeout),
		playfab.WithLogger(logger),
	)

	coordinator := export.New(
		export.Config{PollInterval: cfg.Export.PollInterval},
		client,
		waiter,
		logger,
	)

	job, err := coordinator.Resolve(ctx, export.Target{
		SegmentID: cfg.Export.SegmentID,
		ExportID:  cfg.Export.ExportID,
	})
	run.ExportID = job.ID
	if err != nil {
		return err
	}
	run.ManifestURL = job.ManifestURL

	logger.Info("export complete, downloading",
		"export_id", job.ID,
		"manifest_url", job.ManifestURL,
	)

	merger := merge.New(
		merge.Config{
			HeaderMarker: cfg.Export.HeaderMarker,
			ShardDelay:   cfg.Export.ShardDelay,
		},
		fetch.NewClient(fetch.WithTimeout(cfg.Fetch.Timeout), fetch.WithLogger(logger)),
		waiter,
		merge.WithProgress(progress),
		merge.WithLogger(logger),
	)

	stats, err := merger.Download(ctx, job.ManifestURL, out)
	run.Stats = stats
	if err != nil {
		return err
	}

	logger.Info("download complete",
		"export_id", job.ID,
		"output", out.Target(),
		"shards", stats.ShardsMerged,
		"rows", stats.RowsWritten,
		"size", humanize.Bytes(uint64(stats.BytesWritten)),
		"duration", time.Since(run.StartedAt).Round(time.Millisecond),
	)
	return nil
}

// openHistory returns the run recorder. A history store that cannot be
// reached is logged and replaced by history.Nop.
func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (history.Recorder, func()) {
	if !cfg.History.Enabled {
		return history.Nop{}, func() {}
	}

	recorder, closeFn, err := connectHistory(ctx, cfg.History, logger)
	if err != nil {
		logger.Warn("run history unavailable", "driver", cfg.History.Driver, "error", err)
		return history.Nop{}, func() {}
	}
	return recorder, closeFn
}

func connectHistory(ctx context.Context, cfg config.HistoryConfig, logger *slog.Logger) (history.Recorder, func(), error) {
	if cfg.Driver == config.HistorySQLite {
		db, err := database.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		store := history.NewSQLiteStore(db, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	}

	pool, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	store := history.NewStore(pool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

// exitCode maps an error onto the documented process exit codes.
func exitCode(err error) int {
	var (
		cfgErr       *config.ConfigurationError
		remoteErr    *export.RemoteServiceError
		transferErr  *fetch.TransferError
		integrityErr *merge.IntegrityError
		sinkErr      *sink.Error
	)

	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &cfgErr):
		return ExitInvalidArgs
	case errors.As(err, &remoteErr):
		return ExitRemoteError
	case errors.As(err, &transferErr):
		return ExitTransferError
	case errors.As(err, &integrityErr):
		return ExitIntegrityError
	case errors.As(err, &sinkErr):
		return ExitOutputError
	default:
		return ExitGeneralError
	}
}
