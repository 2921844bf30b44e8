package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcooley/PlayFabExport/internal/model"
	"github.com/mcooley/PlayFabExport/internal/wait"
)

// JobService is the remote job-management API.
type JobService interface {
	// StartExport starts an export of segmentID and returns its export id.
	StartExport(ctx context.Context, segmentID string) (string, error)

	// ExportStatus reports the current state of an export. A Complete job
	// carries its manifest URL.
	ExportStatus(ctx context.Context, exportID string) (model.ExportJob, error)
}

// RemoteServiceError wraps an error reported by the job-start or job-status
// call.
type RemoteServiceError struct {
	Op  string // "start export" or "get export status"
	ID  string // Segment id for Op "start export", export id otherwise
	Err error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// Config holds coordinator configuration.
type Config struct {
	PollInterval time.Duration // Delay between status calls (default: 10s)
}

// DefaultConfig returns the polling policy of the PlayFab export flow.
func DefaultConfig() Config {
	return Config{
		PollInterval: 10 * time.Second,
	}
}

// Target selects the export to wait on. ExportID takes precedence; when it
// is empty a new export of SegmentID is started.
type Target struct {
	SegmentID string
	ExportID  string
}

// Coordinator obtains the manifest URL of a completed export.
type Coordinator struct {
	cfg    Config
	jobs   JobService
	waiter wait.Waiter
	logger *slog.Logger
}

// New creates a new Coordinator.
func New(cfg Config, jobs JobService, waiter wait.Waiter, logger *slog.Logger) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if waiter == nil {
		waiter = wait.Sleep{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		cfg:    cfg,
		jobs:   jobs,
		waiter: waiter,
		logger: logger,
	}
}

// StartExport starts a new export of segmentID. It makes exactly one call.
func (c *Coordinator) StartExport(ctx context.Context, segmentID string) (string, error) {
	c.logger.Info("starting export", "segment_id", segmentID)

	exportID, err := c.jobs.StartExport(ctx, segmentID)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &RemoteServiceError{Op: "start export", ID: segmentID, Err: err}
	}

	c.logger.Info("export started", "segment_id", segmentID, "export_id", exportID)
	return exportID, nil
}

// AwaitManifest polls the status of exportID until it is complete and
// returns the manifest URL. There is no attempt cap; it only returns on
// completion, on a service error, or when ctx is done.
func (c *Coordinator) AwaitManifest(ctx context.Context, exportID string) (string, error) {
	c.logger.Info("checking for results", "export_id", exportID)

	for attempt := 1; ; attempt++ {
		job, err := c.jobs.ExportStatus(ctx, exportID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &RemoteServiceError{Op: "get export status", ID: exportID, Err: err}
		}

		if job.State == model.ExportComplete && job.ManifestURL != "" {
			c.logger.Info("export ready",
				"export_id", exportID,
				"manifest_url", job.ManifestURL,
				"attempts", attempt,
			)
			return job.ManifestURL, nil
		}

		c.logger.Info("export not ready yet",
			"export_id", exportID,
			"attempt", attempt,
			"retry_in", c.cfg.PollInterval,
		)

		if err := c.waiter.Wait(ctx, c.cfg.PollInterval); err != nil {
			return "", fmt.Errorf("await export %s: %w", exportID, err)
		}
	}
}

// Resolve drives target to a completed export. The returned job carries
// whatever was learned before a failure, so a started export id is never
// lost.
func (c *Coordinator) Resolve(ctx context.Context, target Target) (model.ExportJob, error) {
	job := model.ExportJob{
		ID:        target.ExportID,
		SegmentID: target.SegmentID,
		State:     model.ExportPending,
	}

	if job.ID == "" {
		id, err := c.StartExport(ctx, target.SegmentID)
		if err != nil {
			job.Fail()
			return job, err
		}
		job.ID = id
	} else {
		// Resuming: the segment is whatever the earlier run asked for.
		job.SegmentID = ""
	}

	manifestURL, err := c.AwaitManifest(ctx, job.ID)
	if err != nil {
		job.Fail()
		return job, err
	}

	job.Complete(manifestURL)
	return job, nil
}
