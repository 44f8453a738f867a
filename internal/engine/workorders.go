package engine

import (
	"context"
	"database/sql"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"hotelops/internal/domain"
	"hotelops/internal/repo"
)

// WorkOrderCreateOptions are parameters for logging a guest complaint.
type WorkOrderCreateOptions struct {
	RoomID         string
	RoomNumber     string
	StayFrom       string
	StayTo         string
	Summary        string
	Detail         string
	Source         string
	Category       string
	Severity       string
	AssignedTo     string
	HasPendingNext bool
	ActorID        string
}

// CreateWorkOrder inserts a working order in OPEN. When AssignedTo is set the
// order moves to ASSIGNED in the same transaction, leaving two log rows.
func (e Engine) CreateWorkOrder(ctx context.Context, opts WorkOrderCreateOptions) (domain.WorkingOrder, error) {
	summary := strings.TrimSpace(opts.Summary)
	if summary == "" {
		return domain.WorkingOrder{}, invalid("summary is required")
	}
	stayFrom, err := parseDate("stay_from", opts.StayFrom)
	if err != nil {
		return domain.WorkingOrder{}, err
	}
	stayTo, err := parseDate("stay_to", opts.StayTo)
	if err != nil {
		return domain.WorkingOrder{}, err
	}
	if stayTo < stayFrom {
		return domain.WorkingOrder{}, invalid("stay_to must not be before stay_from", goerr.V("stay_from", stayFrom), goerr.V("stay_to", stayTo))
	}
	severity, err := domain.ParseSeverity(opts.Severity)
	if err != nil {
		return domain.WorkingOrder{}, invalid(err.Error())
	}
	source, err := domain.ParseSource(opts.Source)
	if err != nil {
		return domain.WorkingOrder{}, invalid(err.Error())
	}
	room, err := e.resolveRoom(ctx, opts.RoomID, opts.RoomNumber)
	if err != nil {
		return domain.WorkingOrder{}, err
	}
	assignee := optionalString(opts.AssignedTo)
	if assignee != nil {
		if _, err := e.activeSupervisor(ctx, *assignee); err != nil {
			return domain.WorkingOrder{}, err
		}
	}

	now := e.timestamp()
	wo := domain.WorkingOrder{
		ID:             newID(),
		RoomID:         room.ID,
		RoomNumber:     room.Number,
		StayFrom:       stayFrom,
		StayTo:         stayTo,
		Summary:        summary,
		Detail:         strings.TrimSpace(opts.Detail),
		Source:         source,
		Category:       strings.TrimSpace(opts.Category),
		Severity:       severity,
		Status:         domain.StatusOpen,
		AssignedTo:     assignee,
		CreatedBy:      optionalString(opts.ActorID),
		HasPendingNext: opts.HasPendingNext,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if assignee != nil {
		wo.Status = domain.StatusAssigned
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return wo, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertWorkOrder(ctx, tx, wo); err != nil {
		return wo, goerr.Wrap(err, "insert working order", goerr.V("room_number", room.Number))
	}
	if err := e.appendLog(ctx, tx, wo.ID, domain.StatusOpen, "", opts.ActorID); err != nil {
		return wo, err
	}
	if assignee != nil {
		if err := e.appendLog(ctx, tx, wo.ID, domain.StatusAssigned, "", opts.ActorID); err != nil {
			return wo, err
		}
	}
	if err := tx.Commit(); err != nil {
		return wo, err
	}
	return wo, nil
}

// WorkOrderUpdateOptions carries a partial update. Nil pointers and an empty
// Status leave the field untouched. An empty AssignedTo clears it, which only
// an order ending the update in OPEN accepts. A linked order keeps the note
// owner as its assignee.
type WorkOrderUpdateOptions struct {
	ID             string
	Summary        *string
	Detail         *string
	Category       *string
	Severity       *string
	Status         string
	AssignedTo     *string
	HasPendingNext *bool
	Note           string
	Force          bool
	ActorID        string
}

func (e Engine) UpdateWorkOrder(ctx context.Context, opts WorkOrderUpdateOptions) (domain.WorkingOrder, error) {
	var target domain.Status
	if opts.Status != "" {
		st, err := domain.ParseStatus(opts.Status)
		if err != nil {
			return domain.WorkingOrder{}, invalid(err.Error())
		}
		target = st
	}
	var severity domain.Severity
	if opts.Severity != nil {
		sev, err := domain.ParseSeverity(*opts.Severity)
		if err != nil {
			return domain.WorkingOrder{}, invalid(err.Error())
		}
		severity = sev
	}
	if opts.Summary != nil && strings.TrimSpace(*opts.Summary) == "" {
		return domain.WorkingOrder{}, invalid("summary must not be empty")
	}
	if opts.AssignedTo != nil && strings.TrimSpace(*opts.AssignedTo) != "" {
		if _, err := e.activeSupervisor(ctx, *opts.AssignedTo); err != nil {
			return domain.WorkingOrder{}, err
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkingOrder{}, err
	}
	defer tx.Rollback()

	wo, err := e.Repo.GetWorkOrder(ctx, tx, opts.ID)
	if err != nil {
		return wo, notFound(err, "working order", opts.ID)
	}
	if opts.Summary != nil {
		wo.Summary = strings.TrimSpace(*opts.Summary)
	}
	if opts.Detail != nil {
		wo.Detail = strings.TrimSpace(*opts.Detail)
	}
	if opts.Category != nil {
		wo.Category = strings.TrimSpace(*opts.Category)
	}
	if opts.Severity != nil {
		wo.Severity = severity
	}
	if opts.AssignedTo != nil {
		assignee := optionalString(*opts.AssignedTo)
		if wo.NoteID != nil && stringValue(assignee) != stringValue(wo.AssignedTo) {
			return wo, conflict("working order is linked to a note; reassign the note owner instead", goerr.V("working_order_id", wo.ID), goerr.V("note_id", *wo.NoteID))
		}
		wo.AssignedTo = assignee
	}
	if opts.HasPendingNext != nil {
		wo.HasPendingNext = *opts.HasPendingNext
	}
	changed := target != "" && target != wo.Status
	if changed {
		if err := ensureWorkOrderTransition(wo.Status, target, opts.Force); err != nil {
			return wo, err
		}
		if target == domain.StatusAssigned && wo.AssignedTo == nil {
			return wo, invalid("assigned_to is required to move a working order to ASSIGNED", goerr.V("working_order_id", wo.ID))
		}
	}
	if opts.AssignedTo != nil && wo.AssignedTo == nil {
		final := wo.Status
		if changed {
			final = target
		}
		if final != domain.StatusOpen {
			return wo, invalid("assigned_to can only be cleared on an OPEN working order", goerr.V("working_order_id", wo.ID), goerr.V("status", final))
		}
	}
	if changed {
		e.setStatus(&wo, target)
	}
	wo.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateWorkOrder(ctx, tx, wo); err != nil {
		return wo, goerr.Wrap(err, "update working order", goerr.V("working_order_id", wo.ID))
	}
	if changed {
		note := strings.TrimSpace(opts.Note)
		if opts.Force {
			note = strings.TrimSpace("[force] " + note)
		}
		if err := e.appendLog(ctx, tx, wo.ID, target, note, opts.ActorID); err != nil {
			return wo, err
		}
	}
	if err := tx.Commit(); err != nil {
		return wo, err
	}
	return wo, nil
}

// ensureWorkOrderTransition rejects edges outside the lifecycle table. force
// allows manual correction between open states but never reopens a closed order.
func ensureWorkOrderTransition(from, to domain.Status, force bool) error {
	if from.IsTerminal() {
		return goerr.Wrap(ErrInvalidTransition, "working order is closed", goerr.V("from", from), goerr.V("to", to))
	}
	if force || domain.CanTransition(from, to) {
		return nil
	}
	return goerr.Wrap(ErrInvalidTransition, "transition not allowed", goerr.V("from", from), goerr.V("to", to))
}

func (e Engine) setStatus(wo *domain.WorkingOrder, to domain.Status) {
	wo.Status = to
	if to == domain.StatusResolved {
		ts := e.timestamp()
		wo.ResolvedAt = &ts
	}
}

// transition moves wo to status inside tx and appends the matching log row.
func (e Engine) transition(ctx context.Context, tx *sql.Tx, wo *domain.WorkingOrder, to domain.Status, note, actorID string) error {
	e.setStatus(wo, to)
	wo.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateWorkOrder(ctx, tx, *wo); err != nil {
		return goerr.Wrap(err, "update working order", goerr.V("working_order_id", wo.ID), goerr.V("status", to))
	}
	return e.appendLog(ctx, tx, wo.ID, to, note, actorID)
}

// AssignOptions drive the assign action. CreateNote turns it into a
// convert-to-note, with Note used as the initial comment.
type AssignOptions struct {
	ID           string
	SupervisorID string
	Note         string
	CreateNote   bool
	Date         string
	ActorID      string
}

func (e Engine) AssignWorkOrder(ctx context.Context, opts AssignOptions) (domain.WorkingOrder, error) {
	if opts.CreateNote {
		wo, _, err := e.ConvertToNote(ctx, ConvertOptions{
			WorkOrderID:    opts.ID,
			SupervisorID:   opts.SupervisorID,
			Date:           opts.Date,
			InitialComment: opts.Note,
			ActorID:        opts.ActorID,
		})
		return wo, err
	}
	wo, err := e.Repo.GetWorkOrder(ctx, nil, opts.ID)
	if err != nil {
		return wo, notFound(err, "working order", opts.ID)
	}
	if _, err := e.activeSupervisor(ctx, opts.SupervisorID); err != nil {
		return wo, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return wo, err
	}
	defer tx.Rollback()

	wo, err = e.Repo.GetWorkOrder(ctx, tx, opts.ID)
	if err != nil {
		return wo, notFound(err, "working order", opts.ID)
	}
	if wo.Status.IsTerminal() {
		return wo, goerr.Wrap(ErrInvalidTransition, "working order is closed", goerr.V("working_order_id", wo.ID), goerr.V("status", wo.Status))
	}
	if wo.NoteID != nil {
		return wo, conflict("working order is linked to a note; reassign the note owner instead", goerr.V("working_order_id", wo.ID), goerr.V("note_id", *wo.NoteID))
	}
	supervisorID := strings.TrimSpace(opts.SupervisorID)
	wo.AssignedTo = &supervisorID
	if wo.Status == domain.StatusOpen {
		if err := e.transition(ctx, tx, &wo, domain.StatusAssigned, opts.Note, opts.ActorID); err != nil {
			return wo, err
		}
	} else {
		wo.UpdatedAt = e.timestamp()
		if err := e.Repo.UpdateWorkOrder(ctx, tx, wo); err != nil {
			return wo, goerr.Wrap(err, "reassign working order", goerr.V("working_order_id", wo.ID))
		}
	}
	if err := tx.Commit(); err != nil {
		return wo, err
	}
	return wo, nil
}

func (e Engine) ResolveWorkOrder(ctx context.Context, id, note, actorID string) (domain.WorkingOrder, error) {
	return e.close(ctx, id, domain.StatusResolved, note, actorID)
}

func (e Engine) DismissWorkOrder(ctx context.Context, id, note, actorID string) (domain.WorkingOrder, error) {
	return e.close(ctx, id, domain.StatusDismissed, note, actorID)
}

// close applies an explicit terminal transition. A linked note is left alone.
func (e Engine) close(ctx context.Context, id string, to domain.Status, note, actorID string) (domain.WorkingOrder, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkingOrder{}, err
	}
	defer tx.Rollback()

	wo, err := e.Repo.GetWorkOrder(ctx, tx, id)
	if err != nil {
		return wo, notFound(err, "working order", id)
	}
	if err := ensureWorkOrderTransition(wo.Status, to, false); err != nil {
		return wo, err
	}
	if err := e.transition(ctx, tx, &wo, to, note, actorID); err != nil {
		return wo, err
	}
	if err := tx.Commit(); err != nil {
		return wo, err
	}
	return wo, nil
}

func (e Engine) DeleteWorkOrder(ctx context.Context, id string) error {
	if err := e.Repo.DeleteWorkOrder(ctx, id); err != nil {
		return notFound(err, "working order", id)
	}
	return nil
}

func (e Engine) AddWorkOrderComment(ctx context.Context, id, authorID, body string) (domain.WOComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.WOComment{}, invalid("comment body is required")
	}
	if _, err := e.Repo.GetWorkOrder(ctx, nil, id); err != nil {
		return domain.WOComment{}, notFound(err, "working order", id)
	}
	c := domain.WOComment{
		ID:             newID(),
		WorkingOrderID: id,
		AuthorID:       optionalString(authorID),
		Body:           body,
		CreatedAt:      e.timestamp(),
	}
	if err := e.Repo.InsertWOComment(ctx, nil, c); err != nil {
		return c, goerr.Wrap(err, "insert working order comment", goerr.V("working_order_id", id))
	}
	return c, nil
}

func (e Engine) AddWorkOrderImage(ctx context.Context, id, rawURL string) (domain.WOImage, error) {
	u, err := validateImageURL(rawURL)
	if err != nil {
		return domain.WOImage{}, err
	}
	if _, err := e.Repo.GetWorkOrder(ctx, nil, id); err != nil {
		return domain.WOImage{}, notFound(err, "working order", id)
	}
	img := domain.WOImage{
		ID:             newID(),
		WorkingOrderID: id,
		URL:            u,
		CreatedAt:      e.timestamp(),
	}
	if err := e.Repo.InsertWOImage(ctx, nil, img); err != nil {
		return img, goerr.Wrap(err, "insert working order image", goerr.V("working_order_id", id))
	}
	return img, nil
}

// validateImageURL accepts absolute http(s) URLs; hosting is external.
func validateImageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalid("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", invalid("url must be an absolute http(s) URL", goerr.V("url", raw))
	}
	return raw, nil
}

// GetWorkOrder returns the detail view with images, comments and status logs.
func (e Engine) GetWorkOrder(ctx context.Context, id string) (domain.WorkingOrder, error) {
	wo, err := e.Repo.GetWorkOrder(ctx, nil, id)
	if err != nil {
		return wo, notFound(err, "working order", id)
	}
	var g errgroup.Group
	g.Go(func() error {
		imgs, err := e.Repo.ListWOImages(ctx, id)
		wo.Images = imgs
		return err
	})
	g.Go(func() error {
		comments, err := e.Repo.ListWOComments(ctx, id)
		wo.Comments = comments
		return err
	})
	g.Go(func() error {
		logs, err := e.Repo.ListStatusLogs(ctx, id)
		wo.StatusLogs = logs
		return err
	})
	if err := g.Wait(); err != nil {
		return wo, goerr.Wrap(err, "load working order children", goerr.V("working_order_id", id))
	}
	return wo, nil
}

func (e Engine) ListWorkOrders(ctx context.Context, f repo.WorkOrderFilters) ([]domain.WorkingOrder, error) {
	if f.Status != "" {
		st, err := domain.ParseStatus(f.Status)
		if err != nil {
			return nil, invalid(err.Error())
		}
		f.Status = string(st)
	}
	if f.Severity != "" {
		sev, err := domain.ParseSeverity(f.Severity)
		if err != nil {
			return nil, invalid(err.Error())
		}
		f.Severity = string(sev)
	}
	if f.Source != "" {
		src, err := domain.ParseSource(f.Source)
		if err != nil {
			return nil, invalid(err.Error())
		}
		f.Source = string(src)
	}
	for field, v := range map[string]string{"from": f.From, "to": f.To} {
		if v == "" {
			continue
		}
		if _, err := parseDate(field, v); err != nil {
			return nil, err
		}
	}
	return e.Repo.ListWorkOrders(ctx, f)
}

// StatusLogs returns the audit trail in append order.
func (e Engine) StatusLogs(ctx context.Context, id string) ([]domain.StatusLog, error) {
	if _, err := e.Repo.GetWorkOrder(ctx, nil, id); err != nil {
		return nil, notFound(err, "working order", id)
	}
	return e.Repo.ListStatusLogs(ctx, id)
}

func (e Engine) Stats(ctx context.Context) (domain.WorkOrderStats, error) {
	return e.Repo.WorkOrderStats(ctx)
}
