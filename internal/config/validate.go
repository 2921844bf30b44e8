package config

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or invalid input. It is raised before
// any remote call is made.
type ConfigurationError struct {
	Field  string // Dotted config path, e.g. "playfab.title_id"
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Field + " " + e.Reason
}

func required(field string) error {
	return &ConfigurationError{Field: field, Reason: "is required"}
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.PlayFab.TitleID == "" {
		return required("playfab.title_id")
	}
	if c.PlayFab.SecretKey == "" {
		return &ConfigurationError{
			Field:  "playfab.secret_key",
			Reason: "is required (set " + EnvPrefix + "_SECRET_KEY)",
		}
	}
	if c.PlayFab.Timeout < 0 {
		return invalid("playfab.timeout", "must be >= 0, got %s", c.PlayFab.Timeout)
	}

	if c.Export.ExportID == "" && c.Export.SegmentID == "" {
		return required("export.segment_id")
	}
	if c.Export.Output == "" {
		return required("export.output")
	}
	if c.Export.PollInterval <= 0 {
		return invalid("export.poll_interval", "must be > 0, got %s", c.Export.PollInterval)
	}
	if c.Export.ShardDelay < 0 {
		return invalid("export.shard_delay", "must be >= 0, got %s", c.Export.ShardDelay)
	}
	if strings.TrimSpace(c.Export.HeaderMarker) == "" {
		return required("export.header_marker")
	}

	if c.Fetch.Timeout < 0 {
		return invalid("fetch.timeout", "must be >= 0, got %s", c.Fetch.Timeout)
	}

	if c.History.Enabled {
		switch c.History.Driver {
		case "", HistoryPostgres:
			if err := c.History.Database.validate("history.database"); err != nil {
				return err
			}
		case HistorySQLite:
			if c.History.Path == "" {
				return required("history.path")
			}
		default:
			return invalid("history.driver", "must be postgres or sqlite, got %q", c.History.Driver)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", "must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format", "must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return required(prefix + ".host")
	}
	if db.Name == "" {
		return required(prefix + ".name")
	}
	if db.User == "" {
		return required(prefix + ".user")
	}
	if db.Password == "" {
		return required(prefix + ".password")
	}
	if db.MaxConns < 1 {
		return invalid(prefix+".max_conns", "must be >= 1")
	}
	if db.MinConns < 0 {
		return invalid(prefix+".min_conns", "must be >= 0")
	}
	if db.MinConns > db.MaxConns {
		return invalid(prefix+".min_conns", "(%d) cannot exceed max_conns (%d)", db.MinConns, db.MaxConns)
	}
	return nil
}
