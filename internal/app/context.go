package app

import (
	"github.com/m-mizutani/goerr/v2"

	"hotelops/internal/config"
)

// Overrides are flag or environment values applied on top of the config file.
type Overrides struct {
	Driver    string
	DSN       string
	JWTSecret string
	Addr      string
	LogFormat string
	LogLevel  string
	SyncMode  string
	SentryDSN string
}

// ResolveConfig loads the workspace config, or the explicit file when
// configPath is set, and applies non-empty overrides before validating.
func ResolveConfig(workspace, configPath string, o Overrides) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.FromFile(configPath)
		if err == nil && cfg.Database.Workspace == "" {
			cfg.Database.Workspace = workspace
		}
	} else {
		cfg, err = config.Load(workspace)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "load config", goerr.V("workspace", workspace), goerr.V("path", configPath))
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Database.Driver, o.Driver)
	set(&cfg.Database.DSN, o.DSN)
	set(&cfg.Auth.JWTSecret, o.JWTSecret)
	set(&cfg.Server.Addr, o.Addr)
	set(&cfg.Logging.Format, o.LogFormat)
	set(&cfg.Logging.Level, o.LogLevel)
	set(&cfg.Sync.Mode, o.SyncMode)
	set(&cfg.Sentry.DSN, o.SentryDSN)

	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid config")
	}
	return cfg, nil
}
