package merge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mcooley/PlayFabExport/internal/fetch"
	"github.com/mcooley/PlayFabExport/internal/model"
	"github.com/mcooley/PlayFabExport/internal/wait"
)

// IntegrityError reports a shard whose first line is not a header.
type IntegrityError struct {
	URL    string
	Marker string
	Line   string // First line as received, truncated
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("first row of exported file %s did not contain a header row (missing %q)", e.URL, e.Marker)
}

// Config holds merger configuration.
type Config struct {
	HeaderMarker string        // Token every shard header must contain (default: "PlayerId")
	ShardDelay   time.Duration // Pause before each shard after the first (default: 1s)
}

// DefaultConfig returns the PlayFab export defaults.
func DefaultConfig() Config {
	return Config{
		HeaderMarker: "PlayerId",
		ShardDelay:   time.Second,
	}
}

// Merger fetches shards and streams them into a single sink.
type Merger struct {
	cfg      Config
	fetcher  fetch.Fetcher
	waiter   wait.Waiter
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithProgress writes one human-readable line per merged shard to w.
func WithProgress(w io.Writer) Option {
	return func(m *Merger) {
		m.progress = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) {
		m.logger = logger
	}
}

// New creates a new Merger. A zero ShardDelay in cfg means no pause.
func New(cfg Config, fetcher fetch.Fetcher, waiter wait.Waiter, opts ...Option) *Merger {
	if cfg.HeaderMarker == "" {
		cfg.HeaderMarker = DefaultConfig().HeaderMarker
	}
	if waiter == nil {
		waiter = wait.Sleep{}
	}
	m := &Merger{
		cfg:      cfg,
		fetcher:  fetcher,
		waiter:   waiter,
		progress: io.Discard,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Download fetches the manifest at manifestURL and merges every shard it
// lists into sink.
func (m *Merger) Download(ctx context.Context, manifestURL string, sink io.Writer) (model.MergeStats, error) {
	shards, err := m.FetchManifest(ctx, manifestURL)
	if err != nil {
		return model.MergeStats{}, err
	}
	return m.MergeShards(ctx, shards, sink)
}

// FetchManifest downloads the index file and splits it on newlines. A
// trailing newline yields a final empty entry, which MergeShards skips.
func (m *Merger) FetchManifest(ctx context.Context, manifestURL string) ([]string, error) {
	body, err := m.fetcher.Fetch(ctx, manifestURL)
	if err != nil {
		return nil, fmt.Errorf("index file: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}

	manifest := model.ParseManifest(manifestURL, string(data))
	m.logger.Info("found files to download",
		"manifest_url", manifestURL,
		"files", manifest.Fetchable(),
	)
	return manifest.Shards, nil
}

// MergeShards fetches each shard in order and streams it into sink. The
// first error aborts the merge; stats reflect what was written up to that
// point.
func (m *Merger) MergeShards(ctx context.Context, shardURLs []string, sink io.Writer) (model.MergeStats, error) {
	stats := model.MergeStats{
		ShardsTotal: model.Manifest{Shards: shardURLs}.Fetchable(),
	}

	for _, raw := range shardURLs {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}

		if stats.ShardsMerged > 0 && m.cfg.ShardDelay > 0 {
			if err := m.waiter.Wait(ctx, m.cfg.ShardDelay); err != nil {
				return stats, fmt.Errorf("wait before next shard: %w", err)
			}
		}

		rows, err := m.mergeShard(ctx, url, sink, &stats)
		if err != nil {
			return stats, err
		}
		stats.ShardsMerged++

		m.logger.Info("shard merged",
			"downloaded", stats.ShardsMerged,
			"total", stats.ShardsTotal,
			"rows", rows,
		)
		fmt.Fprintf(m.progress, "Downloaded %d files out of %d...\n", stats.ShardsMerged, stats.ShardsTotal)
	}

	return stats, nil
}

// mergeShard streams one shard into sink and returns its data row count.
func (m *Merger) mergeShard(ctx context.Context, url string, sink io.Writer, stats *model.MergeStats) (int64, error) {
	body, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("tsv file: %w", err)
	}
	defer body.Close()

	r := bufio.NewReaderSize(body, 64*1024)

	header, ok, err := readLine(r)
	if err != nil {
		return 0, fmt.Errorf("read tsv file %s: %w", url, err)
	}
	if !ok {
		m.logger.Warn("empty shard", "url", url)
		return 0, nil
	}
	if !strings.Contains(header, m.cfg.HeaderMarker) {
		return 0, &IntegrityError{URL: url, Marker: m.cfg.HeaderMarker, Line: truncate(header, 80)}
	}

	if !stats.HeaderWritten {
		n, err := writeLine(sink, header)
		stats.BytesWritten += n
		if err != nil {
			return 0, err
		}
		stats.HeaderWritten = true
	}

	var rows int64
	for {
		line, ok, err := readLine(r)
		if err != nil {
			return rows, fmt.Errorf("read tsv file %s: %w", url, err)
		}
		if !ok {
			return rows, nil
		}
		if line == "" {
			continue
		}

		n, err := writeLine(sink, line)
		stats.BytesWritten += n
		if err != nil {
			return rows, err
		}
		rows++
		stats.RowsWritten++
	}
}

// readLine returns the next "\n"-terminated line without its terminator.
// ok is false once the body is exhausted.
func readLine(r *bufio.Reader) (line string, ok bool, err error) {
	line, err = r.ReadString('\n')
	if err == io.EOF {
		return line, line != "", nil
	}
	if err != nil {
		return "", false, err
	}
	return line[:len(line)-1], true, nil
}

func writeLine(w io.Writer, line string) (int64, error) {
	n, err := io.WriteString(w, line+"\n")
	if err != nil {
		return int64(n), fmt.Errorf("write output: %w", err)
	}
	return int64(n), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
