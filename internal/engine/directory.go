package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/m-mizutani/goerr/v2"

	"hotelops/internal/domain"
	"hotelops/internal/repo"
)

// Directory caches supervisor lookups. Entries expire after the configured
// TTL and are dropped when the engine writes a supervisor.
type Directory struct {
	repo  repo.Repo
	cache *expirable.LRU[string, domain.Supervisor]
}

func NewDirectory(r repo.Repo, size int, ttl time.Duration) *Directory {
	return &Directory{
		repo:  r,
		cache: expirable.NewLRU[string, domain.Supervisor](size, nil, ttl),
	}
}

func (d *Directory) Supervisor(ctx context.Context, id string) (domain.Supervisor, error) {
	if s, ok := d.cache.Get(id); ok {
		return s, nil
	}
	s, err := d.repo.GetSupervisor(ctx, nil, id)
	if err != nil {
		return s, err
	}
	d.cache.Add(id, s)
	return s, nil
}

func (d *Directory) Forget(id string) {
	d.cache.Remove(id)
}

func (e Engine) supervisor(ctx context.Context, id string) (domain.Supervisor, error) {
	if e.Directory != nil {
		return e.Directory.Supervisor(ctx, id)
	}
	return e.Repo.GetSupervisor(ctx, nil, id)
}

// activeSupervisor resolves id for assignment. Unknown or inactive staff is a
// validation failure on the caller's input, not a missing resource.
func (e Engine) activeSupervisor(ctx context.Context, id string) (domain.Supervisor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Supervisor{}, invalid("supervisor_id is required")
	}
	s, err := e.supervisor(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return s, invalid("supervisor does not exist", goerr.V("supervisor_id", id))
	}
	if err != nil {
		return s, goerr.Wrap(err, "load supervisor", goerr.V("supervisor_id", id))
	}
	if !s.Active {
		return s, invalid("supervisor is inactive", goerr.V("supervisor_id", id))
	}
	return s, nil
}

type SupervisorCreateOptions struct {
	ID    string
	Name  string
	Email string
	Role  string
}

func (e Engine) CreateSupervisor(ctx context.Context, opts SupervisorCreateOptions) (domain.Supervisor, error) {
	s := domain.Supervisor{
		ID:        strings.TrimSpace(opts.ID),
		Name:      strings.TrimSpace(opts.Name),
		Email:     strings.TrimSpace(opts.Email),
		Role:      strings.TrimSpace(opts.Role),
		Active:    true,
		CreatedAt: e.timestamp(),
	}
	if s.Name == "" {
		return s, invalid("name is required")
	}
	if s.ID == "" {
		s.ID = newID()
	}
	if s.Role == "" {
		s.Role = "supervisor"
	}
	if e.Config != nil {
		if _, ok := e.Config.Auth.Roles[s.Role]; !ok {
			return s, invalid("unknown role", goerr.V("role", s.Role))
		}
	}
	if _, err := e.Repo.GetSupervisor(ctx, nil, s.ID); err == nil {
		return s, conflict("supervisor already exists", goerr.V("supervisor_id", s.ID))
	}
	if err := e.Repo.InsertSupervisor(ctx, nil, s); err != nil {
		return s, goerr.Wrap(err, "insert supervisor", goerr.V("supervisor_id", s.ID))
	}
	if e.Directory != nil {
		e.Directory.Forget(s.ID)
	}
	return s, nil
}

func (e Engine) SetSupervisorActive(ctx context.Context, id string, active bool) (domain.Supervisor, error) {
	if err := e.Repo.SetSupervisorActive(ctx, id, active); err != nil {
		return domain.Supervisor{}, notFound(err, "supervisor", id)
	}
	if e.Directory != nil {
		e.Directory.Forget(id)
	}
	return e.Repo.GetSupervisor(ctx, nil, id)
}

func (e Engine) ListSupervisors(ctx context.Context, activeOnly bool) ([]domain.Supervisor, error) {
	return e.Repo.ListSupervisors(ctx, activeOnly)
}

type RoomCreateOptions struct {
	Number string
	Tower  string
	Floor  int
}

func (e Engine) CreateRoom(ctx context.Context, opts RoomCreateOptions) (domain.Room, error) {
	room := domain.Room{
		ID:     newID(),
		Number: strings.TrimSpace(opts.Number),
		Tower:  strings.TrimSpace(opts.Tower),
		Floor:  opts.Floor,
	}
	if room.Number == "" {
		return room, invalid("room number is required")
	}
	if _, err := e.Repo.GetRoomByNumber(ctx, nil, room.Number); err == nil {
		return room, conflict("room already exists", goerr.V("number", room.Number))
	}
	if err := e.Repo.InsertRoom(ctx, nil, room); err != nil {
		return room, goerr.Wrap(err, "insert room", goerr.V("number", room.Number))
	}
	return room, nil
}

func (e Engine) ListRooms(ctx context.Context, tower string) ([]domain.Room, error) {
	return e.Repo.ListRooms(ctx, tower)
}

// resolveRoom finds a room by id first, then by number.
func (e Engine) resolveRoom(ctx context.Context, id, number string) (domain.Room, error) {
	id, number = strings.TrimSpace(id), strings.TrimSpace(number)
	var (
		room domain.Room
		err  error
	)
	switch {
	case id != "":
		room, err = e.Repo.GetRoom(ctx, nil, id)
	case number != "":
		room, err = e.Repo.GetRoomByNumber(ctx, nil, number)
	default:
		return room, invalid("room_id or room_number is required")
	}
	if errors.Is(err, repo.ErrNotFound) {
		return room, invalid("room does not exist", goerr.V("room_id", id), goerr.V("room_number", number))
	}
	if err != nil {
		return room, goerr.Wrap(err, "load room")
	}
	return room, nil
}
