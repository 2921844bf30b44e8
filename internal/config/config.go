package config

import "time"

// Config is the root configuration for one export run.
type Config struct {
	PlayFab PlayFabConfig `yaml:"playfab"`
	Export  ExportConfig  `yaml:"export"`
	Fetch   FetchConfig   `yaml:"fetch"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// PlayFabConfig holds PlayFab Admin API settings.
type PlayFabConfig struct {
	TitleID   string        `yaml:"title_id" envconfig:"TITLE_ID"`
	SecretKey string        `yaml:"secret_key" envconfig:"SECRET_KEY"` // Developer secret key (X-SecretKey header)
	APIURL    string        `yaml:"api_url" envconfig:"API_URL"`       // Defaults to https://{title_id}.playfabapi.com
	Timeout   time.Duration `yaml:"timeout" envconfig:"API_TIMEOUT"`
}

// ExportConfig selects what to export and where the merged file goes.
type ExportConfig struct {
	SegmentID    string        `yaml:"segment_id"`
	ExportID     string        `yaml:"export_id"` // Takes precedence over segment_id
	Output       string        `yaml:"output"`    // Local path or bucket URL (file://, mem://, s3://, gs://)
	PollInterval time.Duration `yaml:"poll_interval"`
	ShardDelay   time.Duration `yaml:"shard_delay"`
	HeaderMarker string        `yaml:"header_marker"`
}

// FetchConfig holds settings for manifest and shard downloads.
type FetchConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// HistoryConfig enables the optional run ledger.
type HistoryConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Driver   string   `yaml:"driver"` // postgres or sqlite
	Path     string   `yaml:"path"`   // SQLite database file
	Database DBConfig `yaml:"database"`
}

// History drivers.
const (
	HistoryPostgres = "postgres"
	HistorySQLite   = "sqlite"
)

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LogConfig controls the slog handler built by the CLI.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Overrides carries values set on the command line. Zero values are ignored.
type Overrides struct {
	TitleID      string
	SegmentID    string
	ExportID     string
	Output       string
	PollInterval time.Duration
	ShardDelay   time.Duration
	LogLevel     string
}

// ApplyOverrides copies every non-zero override into c.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.TitleID != "" {
		c.PlayFab.TitleID = o.TitleID
	}
	if o.SegmentID != "" {
		c.Export.SegmentID = o.SegmentID
	}
	if o.ExportID != "" {
		c.Export.ExportID = o.ExportID
	}
	if o.Output != "" {
		c.Export.Output = o.Output
	}
	if o.PollInterval != 0 {
		c.Export.PollInterval = o.PollInterval
	}
	if o.ShardDelay != 0 {
		c.Export.ShardDelay = o.ShardDelay
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
}

// ResumesExport reports whether the run attaches to an existing export job
// instead of starting a new one.
func (c *Config) ResumesExport() bool {
	return c.Export.ExportID != ""
}
