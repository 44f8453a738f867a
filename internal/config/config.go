package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models hotelops.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Database struct {
		Driver    string `yaml:"driver"`
		DSN       string `yaml:"dsn" masq:"secret"`
		Workspace string `yaml:"workspace"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string              `yaml:"jwt_secret" masq:"secret"`
		TokenTTL  Duration            `yaml:"token_ttl"`
		Roles     map[string]RoleSpec `yaml:"roles"`
	} `yaml:"auth"`
	Sync struct {
		Mode string `yaml:"mode"`
	} `yaml:"sync"`
	Logging struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
	} `yaml:"logging"`
	Sentry struct {
		DSN         string `yaml:"dsn" masq:"secret"`
		Environment string `yaml:"environment"`
	} `yaml:"sentry"`
	Cache struct {
		SupervisorTTL  Duration `yaml:"supervisor_ttl"`
		SupervisorSize int      `yaml:"supervisor_size"`
	} `yaml:"cache"`
	Categories []string `yaml:"categories"`
	Seed       struct {
		Rooms       []SeedRoom       `yaml:"rooms"`
		Supervisors []SeedSupervisor `yaml:"supervisors"`
	} `yaml:"seed"`
}

type RoleSpec struct {
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

type SeedRoom struct {
	Number string `yaml:"number"`
	Tower  string `yaml:"tower"`
	Floor  int    `yaml:"floor"`
}

type SeedSupervisor struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// Duration accepts "15m"-style strings in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

const (
	SyncInline = "inline"
	SyncAsync  = "async"
)

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("config.database.driver must be sqlite or mysql, got %q", c.Database.Driver)
	}
	if c.Database.Driver == "mysql" && c.Database.DSN == "" {
		return fmt.Errorf("config.database.dsn is required for mysql")
	}
	switch c.Sync.Mode {
	case SyncInline, SyncAsync:
	default:
		return fmt.Errorf("config.sync.mode must be inline or async, got %q", c.Sync.Mode)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config.logging.format must be console or json, got %q", c.Logging.Format)
	}
	if len(c.Auth.Roles) == 0 {
		return fmt.Errorf("config.auth.roles is required")
	}
	if _, ok := c.Auth.Roles["admin"]; !ok {
		return fmt.Errorf("config.auth.roles must include admin")
	}
	for roleID, role := range c.Auth.Roles {
		if roleID == "" {
			return fmt.Errorf("config.auth.roles contains empty role id")
		}
		for _, perm := range role.Permissions {
			if perm == "" {
				return fmt.Errorf("role %s has empty permission id", roleID)
			}
		}
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("config.auth.token_ttl must not be negative")
	}
	if c.Cache.SupervisorSize < 0 {
		return fmt.Errorf("config.cache.supervisor_size must not be negative")
	}
	seen := map[string]bool{}
	for _, r := range c.Seed.Rooms {
		if r.Number == "" {
			return fmt.Errorf("seed room with empty number")
		}
		if seen[r.Number] {
			return fmt.Errorf("seed room %s listed twice", r.Number)
		}
		seen[r.Number] = true
	}
	for _, s := range c.Seed.Supervisors {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("seed supervisor requires id and name")
		}
		if _, ok := c.Auth.Roles[s.Role]; s.Role != "" && !ok {
			return fmt.Errorf("seed supervisor %s references unknown role %s", s.ID, s.Role)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "hotelops.yml")
}

// Load reads the workspace config, falling back to defaults when the file is absent.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.Database.Workspace = workspace
			return cfg, nil
		}
		return nil, err
	}
	cfg, err := FromYAML(data)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Workspace == "" {
		cfg.Database.Workspace = workspace
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses config on top of the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Permissions returns the permission set granted to a role.
func (c *Config) Permissions(role string) []string {
	if c == nil {
		return nil
	}
	return c.Auth.Roles[role].Permissions
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v1

database:
  driver: sqlite

auth:
  token_ttl: 12h
  roles:
    admin:
      description: "Front office and maintenance management"
      permissions:
        - room.read
        - room.write
        - supervisor.read
        - supervisor.write
        - wo.create
        - wo.read
        - wo.update
        - wo.assign
        - wo.close
        - wo.comment
        - wo.delete
        - note.create
        - note.read
        - note.update
        - note.comment
        - note.delete
    supervisor:
      description: "Maintenance supervisor working their task board"
      permissions:
        - room.read
        - supervisor.read
        - wo.create
        - wo.read
        - wo.update
        - wo.assign
        - wo.close
        - wo.comment
        - note.create
        - note.read
        - note.update
        - note.comment
    integration:
      description: "Guest feedback importers"
      permissions:
        - room.read
        - wo.create
        - wo.read
        - wo.comment

sync:
  mode: inline

logging:
  format: console
  level: info

cache:
  supervisor_ttl: 5m
  supervisor_size: 256
`
