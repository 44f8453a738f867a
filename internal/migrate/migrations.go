package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed sql/sqlite/*.sql sql/mysql/*.sql
var migrationsFS embed.FS

type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

func dialectDir(driver string) (string, error) {
	switch driver {
	case "", "sqlite":
		return "sql/sqlite", nil
	case "mysql":
		return "sql/mysql", nil
	default:
		return "", goerr.New("no migrations for driver", goerr.V("driver", driver))
	}
}

func loadMigrations(driver string) ([]Migration, error) {
	dir, err := dialectDir(driver)
	if err != nil {
		return nil, err
	}
	files, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	var migrations []Migration
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}
		data, err := migrationsFS.ReadFile(path.Join(dir, f.Name()))
		if err != nil {
			return nil, err
		}
		var v int
		if _, err := fmt.Sscanf(f.Name(), "%d_", &v); err != nil {
			return nil, goerr.Wrap(err, "invalid migration filename", goerr.V("file", f.Name()))
		}
		migrations = append(migrations, Migration{
			Version: v,
			Name:    f.Name(),
			UpSQL:   string(data),
		})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// statements splits a migration file on semicolons so drivers that reject
// multi-statement Exec calls still apply it.
func statements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Version returns the applied schema version, 0 when nothing ran yet.
func Version(db *sql.DB) (int, error) {
	var v int
	err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, goerr.Wrap(err, "read schema_version")
	}
	return v, nil
}

// Migrate applies embedded migrations for driver in order. MySQL commits
// DDL implicitly, so the transaction only guards the version bookkeeping there.
func Migrate(db *sql.DB, driver string) error {
	migrations, err := loadMigrations(driver)
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL)`); err != nil {
		return goerr.Wrap(err, "create schema_version")
	}

	var currentVersion int
	err = tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&currentVersion)
	if err == sql.ErrNoRows {
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return goerr.Wrap(err, "init schema_version")
		}
		currentVersion = 0
	} else if err != nil {
		return goerr.Wrap(err, "read schema_version")
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}
		for _, stmt := range statements(m.UpSQL) {
			if _, err := tx.Exec(stmt); err != nil {
				return goerr.Wrap(err, "apply migration", goerr.V("migration", m.Name))
			}
		}
		if _, err := tx.Exec(`UPDATE schema_version SET version=?`, m.Version); err != nil {
			return goerr.Wrap(err, "update schema_version")
		}
		currentVersion = m.Version
	}
	return tx.Commit()
}
