package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Export Job
// -----------------------------------------------------------------------------

// ExportState is the lifecycle state of a server-side export job.
type ExportState string

const (
	ExportPending  ExportState = "Pending"
	ExportComplete ExportState = "Complete"
	ExportFailed   ExportState = "Failed"
)

// Terminal reports whether no further transition can happen.
func (s ExportState) Terminal() bool {
	return s == ExportComplete || s == ExportFailed
}

// ExportJob is an asynchronous export of one segment. PlayFab owns its
// lifecycle; this tool only starts and observes it.
type ExportJob struct {
	ID          string      // Export id returned by the start call
	SegmentID   string      // Empty when resuming a job started elsewhere
	State       ExportState // Pending until the manifest is available
	ManifestURL string      // Set only when State is Complete
}

// Complete moves the job to its terminal success state.
func (j *ExportJob) Complete(manifestURL string) {
	j.State = ExportComplete
	j.ManifestURL = manifestURL
}

// Fail moves the job to its terminal failure state.
func (j *ExportJob) Fail() {
	j.State = ExportFailed
	j.ManifestURL = ""
}

// -----------------------------------------------------------------------------
// Manifest
// -----------------------------------------------------------------------------

// Manifest is the ordered list of shard locations of a completed export.
// Entries are kept exactly as split from the index file, so a trailing
// newline shows up as a final empty entry.
type Manifest struct {
	URL    string
	Shards []string
}

// ParseManifest splits an index body on newline characters.
func ParseManifest(url, body string) Manifest {
	return Manifest{URL: url, Shards: strings.Split(body, "\n")}
}

// Fetchable returns the number of entries that name an actual shard.
func (m Manifest) Fetchable() int {
	n := 0
	for _, s := range m.Shards {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------
// Merge Results
// -----------------------------------------------------------------------------

// MergeStats summarizes one merge of shards into an output sink.
type MergeStats struct {
	ShardsTotal   int   // Non-empty manifest entries
	ShardsMerged  int   // Shards fetched and fully written
	RowsWritten   int64 // Data rows, header excluded
	BytesWritten  int64 // Bytes handed to the sink, header included
	HeaderWritten bool
}

// -----------------------------------------------------------------------------
// Run History
// -----------------------------------------------------------------------------

// RunStatus is the outcome of one invocation of the tool.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run records one invocation from start to finish.
type Run struct {
	RunID       uuid.UUID
	TitleID     string
	SegmentID   string
	ExportID    string
	ManifestURL string
	Output      string
	Status      RunStatus
	Error       string
	Stats       MergeStats
	StartedAt   time.Time
	FinishedAt  time.Time
}

// NewRun creates a Run in the running state.
func NewRun(titleID, segmentID, exportID, output string) *Run {
	return &Run{
		RunID:     uuid.New(),
		TitleID:   titleID,
		SegmentID: segmentID,
		ExportID:  exportID,
		Output:    output,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Finish sets the terminal status from err.
func (r *Run) Finish(err error) {
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		r.Status = RunFailed
		r.Error = err.Error()
		return
	}
	r.Status = RunSucceeded
	r.Error = ""
}

// Duration is the wall time of a finished run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
