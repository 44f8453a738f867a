package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"hotelops/internal/config"
	"hotelops/internal/domain"
	"hotelops/internal/events"
	"hotelops/internal/repo"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const dateLayout = "2006-01-02"

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Config    *config.Config
	Directory *Directory
	Syncer    Syncer
	Now       func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	r := repo.Repo{DB: db}
	size, ttl := 256, 5*time.Minute
	var syncer Syncer = InlineSyncer{}
	if cfg != nil {
		if cfg.Cache.SupervisorSize > 0 {
			size = cfg.Cache.SupervisorSize
		}
		if cfg.Cache.SupervisorTTL > 0 {
			ttl = cfg.Cache.SupervisorTTL.Std()
		}
		if cfg.Sync.Mode == config.SyncAsync {
			syncer = &AsyncSyncer{}
		}
	}
	return Engine{
		DB:        db,
		Repo:      r,
		Events:    events.Writer{},
		Config:    cfg,
		Directory: NewDirectory(r, size, ttl),
		Syncer:    syncer,
		Now:       time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) today() string {
	return e.now().UTC().Format(dateLayout)
}

// appendLog writes one status log row inside tx using the engine clock.
func (e Engine) appendLog(ctx context.Context, tx *sql.Tx, woID string, status domain.Status, note, actorID string) error {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	_, err := w.Append(ctx, tx, woID, status, note, optionalString(actorID))
	return err
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func invalid(msg string, opts ...goerr.Option) error {
	return goerr.Wrap(ErrValidation, msg, opts...)
}

func conflict(msg string, opts ...goerr.Option) error {
	return goerr.Wrap(ErrConflict, msg, opts...)
}

// notFound tags repo.ErrNotFound with the entity that was looked up.
func notFound(err error, entity, id string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return goerr.Wrap(err, entity+" not found", goerr.V("id", id))
	}
	return goerr.Wrap(err, "load "+entity, goerr.V("id", id))
}

func parseDate(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid(field+" is required")
	}
	if _, err := time.Parse(dateLayout, v); err != nil {
		return "", invalid(field+" must be YYYY-MM-DD", goerr.V(field, v))
	}
	return v, nil
}

// Categories returns the suggestion list for the category field.
func (e Engine) Categories() []string {
	if e.Config != nil && len(e.Config.Categories) > 0 {
		return e.Config.Categories
	}
	return domain.DefaultCategories
}
