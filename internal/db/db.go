package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-sql-driver/mysql"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

const defaultDBName = "hotelops.db"

type Config struct {
	Driver    string
	DSN       string
	Workspace string
}

func dbPath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".hotelops", defaultDBName)
}

// EnsureWorkspace creates workspace directory if missing.
func EnsureWorkspace(workspace string) (string, error) {
	path := filepath.Join(workspace, ".hotelops")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// Open opens the configured database. SQLite runs with foreign keys on.
// MySQL keeps timestamps unparsed so both drivers scan them as strings, and
// reports matched rather than changed rows on UPDATE.
func Open(cfg Config) (*sql.DB, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return openSQLite(cfg)
	case "mysql":
		return openMySQL(cfg)
	default:
		return nil, goerr.New("unsupported database driver", goerr.V("driver", cfg.Driver))
	}
}

func openSQLite(cfg Config) (*sql.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath(cfg.Workspace))
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "open sqlite")
	}
	return conn, nil
}

func openMySQL(cfg Config) (*sql.DB, error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, goerr.Wrap(err, "parse mysql dsn")
	}
	mc.ParseTime = false
	mc.ClientFoundRows = true
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	mc.Params["time_zone"] = "'+00:00'"
	conn, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, goerr.Wrap(err, "open mysql")
	}
	return conn, nil
}

// Path returns the sqlite db path for the workspace.
func Path(workspace string) string {
	return dbPath(workspace)
}
