package engine

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"hotelops/internal/domain"
	"hotelops/internal/repo"
)

type NoteCreateOptions struct {
	SupervisorID string
	Titulo       string
	Actividades  string
	Fecha        string
	Cristal      bool
	Imagen       string
	ActorID      string
}

func (e Engine) CreateNote(ctx context.Context, opts NoteCreateOptions) (domain.Note, error) {
	titulo := strings.TrimSpace(opts.Titulo)
	if titulo == "" {
		return domain.Note{}, invalid("titulo is required")
	}
	if _, err := e.activeSupervisor(ctx, opts.SupervisorID); err != nil {
		return domain.Note{}, err
	}
	fecha := e.today()
	if strings.TrimSpace(opts.Fecha) != "" {
		d, err := parseDate("fecha", opts.Fecha)
		if err != nil {
			return domain.Note{}, err
		}
		fecha = d
	}
	var imagen *string
	if strings.TrimSpace(opts.Imagen) != "" {
		u, err := validateImageURL(opts.Imagen)
		if err != nil {
			return domain.Note{}, err
		}
		imagen = &u
	}
	now := e.timestamp()
	n := domain.Note{
		ID:           newID(),
		SupervisorID: strings.TrimSpace(opts.SupervisorID),
		Titulo:       titulo,
		Actividades:  strings.TrimSpace(opts.Actividades),
		Fecha:        fecha,
		Estado:       domain.EstadoPending,
		Cristal:      opts.Cristal,
		Imagen:       imagen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.Repo.InsertNote(ctx, nil, n); err != nil {
		return n, goerr.Wrap(err, "insert note", goerr.V("supervisor_id", n.SupervisorID))
	}
	return n, nil
}

// SetNoteStatus persists the new estado and then hands a NoteStatusChanged
// message to the syncer when the note is linked to a working order. Sync
// failures never reach the caller. Setting the current estado again is a no-op.
func (e Engine) SetNoteStatus(ctx context.Context, id string, estado domain.Estado, actorID, comment string) (domain.Note, error) {
	if !estado.IsValid() {
		return domain.Note{}, invalid("estado must be 0, 1 or 2", goerr.V("estado", int(estado)))
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Note{}, err
	}
	defer tx.Rollback()

	n, err := e.Repo.GetNote(ctx, tx, id)
	if err != nil {
		return n, notFound(err, "note", id)
	}
	if n.Estado == estado {
		return n, nil
	}
	n.Estado = estado
	n.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateNote(ctx, tx, n); err != nil {
		return n, goerr.Wrap(err, "update note status", goerr.V("note_id", id))
	}
	if err := tx.Commit(); err != nil {
		return n, err
	}

	if n.WorkingOrderID != nil {
		e.syncer().Publish(ctx, NoteStatusChanged{
			NoteID:      n.ID,
			WorkOrderID: *n.WorkingOrderID,
			Estado:      estado,
			PerformedBy: actorID,
			Comment:     comment,
		}, e.HandleNoteStatusChanged)
	}
	return n, nil
}

func (e Engine) SetNoteCristal(ctx context.Context, id string, cristal bool) (domain.Note, error) {
	return e.UpdateNote(ctx, NoteUpdateOptions{ID: id, Cristal: &cristal})
}

// NoteUpdateOptions is a partial update; nil fields are left as they are.
// An empty Imagen clears the primary image.
type NoteUpdateOptions struct {
	ID          string
	Titulo      *string
	Actividades *string
	Fecha       *string
	Imagen      *string
	Cristal     *bool
}

func (e Engine) UpdateNote(ctx context.Context, opts NoteUpdateOptions) (domain.Note, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Note{}, err
	}
	defer tx.Rollback()

	n, err := e.Repo.GetNote(ctx, tx, opts.ID)
	if err != nil {
		return n, notFound(err, "note", opts.ID)
	}
	if opts.Titulo != nil {
		t := strings.TrimSpace(*opts.Titulo)
		if t == "" {
			return n, invalid("titulo must not be empty")
		}
		n.Titulo = t
	}
	if opts.Actividades != nil {
		n.Actividades = strings.TrimSpace(*opts.Actividades)
	}
	if opts.Fecha != nil {
		d, err := parseDate("fecha", *opts.Fecha)
		if err != nil {
			return n, err
		}
		n.Fecha = d
	}
	if opts.Imagen != nil {
		if strings.TrimSpace(*opts.Imagen) == "" {
			n.Imagen = nil
		} else {
			u, err := validateImageURL(*opts.Imagen)
			if err != nil {
				return n, err
			}
			n.Imagen = &u
		}
	}
	if opts.Cristal != nil {
		n.Cristal = *opts.Cristal
	}
	n.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateNote(ctx, tx, n); err != nil {
		return n, goerr.Wrap(err, "update note", goerr.V("note_id", n.ID))
	}
	if err := tx.Commit(); err != nil {
		return n, err
	}
	return n, nil
}

var mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@([\p{L}\p{N}_][\p{L}\p{N}_.\-]*)`)

// ExtractMentions returns the distinct @name tokens of body in order of appearance.
func ExtractMentions(body string) []string {
	mentions := []string{}
	seen := map[string]bool{}
	for _, m := range mentionPattern.FindAllStringSubmatch(body, -1) {
		name := strings.TrimRight(m[1], ".-")
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		mentions = append(mentions, name)
	}
	return mentions
}

func (e Engine) AddNoteComment(ctx context.Context, id, authorID, body string) (domain.NoteComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.NoteComment{}, invalid("comment body is required")
	}
	if _, err := e.Repo.GetNote(ctx, nil, id); err != nil {
		return domain.NoteComment{}, notFound(err, "note", id)
	}
	c := domain.NoteComment{
		ID:        newID(),
		NoteID:    id,
		AuthorID:  optionalString(authorID),
		Body:      body,
		Mentions:  ExtractMentions(body),
		CreatedAt: e.timestamp(),
	}
	if err := e.Repo.InsertNoteComment(ctx, nil, c); err != nil {
		return c, goerr.Wrap(err, "insert note comment", goerr.V("note_id", id))
	}
	return c, nil
}

func (e Engine) AddNoteImage(ctx context.Context, id, rawURL string) (domain.NoteImage, error) {
	u, err := validateImageURL(rawURL)
	if err != nil {
		return domain.NoteImage{}, err
	}
	if _, err := e.Repo.GetNote(ctx, nil, id); err != nil {
		return domain.NoteImage{}, notFound(err, "note", id)
	}
	img := domain.NoteImage{
		ID:        newID(),
		NoteID:    id,
		URL:       u,
		CreatedAt: e.timestamp(),
	}
	if err := e.Repo.InsertNoteImage(ctx, nil, img); err != nil {
		return img, goerr.Wrap(err, "insert note image", goerr.V("note_id", id))
	}
	return img, nil
}

func (e Engine) GetNote(ctx context.Context, id string) (domain.Note, error) {
	n, err := e.Repo.GetNote(ctx, nil, id)
	if err != nil {
		return n, notFound(err, "note", id)
	}
	var g errgroup.Group
	g.Go(func() error {
		comments, err := e.Repo.ListNoteComments(ctx, id)
		n.Comments = comments
		return err
	})
	g.Go(func() error {
		imgs, err := e.Repo.ListNoteImages(ctx, id)
		n.Images = imgs
		return err
	})
	if err := g.Wait(); err != nil {
		return n, goerr.Wrap(err, "load note children", goerr.V("note_id", id))
	}
	return n, nil
}

func (e Engine) ListNotes(ctx context.Context, f repo.NoteFilters) ([]domain.Note, error) {
	if f.Estado != nil && !f.Estado.IsValid() {
		return nil, invalid("estado must be 0, 1 or 2")
	}
	for field, v := range map[string]string{"from": f.From, "to": f.To} {
		if v == "" {
			continue
		}
		if _, err := parseDate(field, v); err != nil {
			return nil, err
		}
	}
	return e.Repo.ListNotes(ctx, f)
}

// DeleteNote removes a note. The schema clears the linked working order's
// note_id, so the order can be converted again.
func (e Engine) DeleteNote(ctx context.Context, id string) error {
	err := e.Repo.DeleteNote(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound(err, "note", id)
	}
	if err != nil {
		return goerr.Wrap(err, "delete note", goerr.V("note_id", id))
	}
	return nil
}
