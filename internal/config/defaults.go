package config

import (
	"fmt"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultAPIURLFormat = "https://%s.playfabapi.com"
	DefaultAPITimeout   = 30 * time.Second
	DefaultPollInterval = 10 * time.Second
	DefaultShardDelay   = 1 * time.Second
	DefaultHeaderMarker = "PlayerId"
	DefaultFetchTimeout = 10 * time.Minute
	DefaultDBPort       = 5432
	DefaultDBSSLMode    = "prefer"
	DefaultMaxConns     = 4
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

func (c *Config) applyDefaults() {
	// PlayFab defaults
	if c.PlayFab.APIURL == "" && c.PlayFab.TitleID != "" {
		c.PlayFab.APIURL = fmt.Sprintf(DefaultAPIURLFormat, c.PlayFab.TitleID)
	}
	if c.PlayFab.Timeout == 0 {
		c.PlayFab.Timeout = DefaultAPITimeout
	}

	// Export defaults
	if c.Export.PollInterval == 0 {
		c.Export.PollInterval = DefaultPollInterval
	}
	if c.Export.ShardDelay == 0 {
		c.Export.ShardDelay = DefaultShardDelay
	}
	if c.Export.HeaderMarker == "" {
		c.Export.HeaderMarker = DefaultHeaderMarker
	}

	// Fetch defaults
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = DefaultFetchTimeout
	}

	// History defaults
	if c.History.Enabled {
		if c.History.Driver == "" {
			c.History.Driver = HistoryPostgres
		}
		if c.History.Driver == HistoryPostgres {
			applyDBDefaults(&c.History.Database)
		}
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
}
