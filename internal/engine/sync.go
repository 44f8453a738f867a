package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"hotelops/internal/async"
	"hotelops/internal/domain"
	"hotelops/internal/logging"
)

// NoteStatusChanged is published after a linked note's estado is committed.
type NoteStatusChanged struct {
	NoteID      string
	WorkOrderID string
	Estado      domain.Estado
	PerformedBy string
	Comment     string
}

type SyncHandler func(ctx context.Context, msg NoteStatusChanged) error

// Syncer delivers note status changes to the working order side. Publish
// never reports failure; implementations log what the handler returns.
type Syncer interface {
	Publish(ctx context.Context, msg NoteStatusChanged, handle SyncHandler)
}

// InlineSyncer applies the change on the caller's goroutine after the note
// write has committed.
type InlineSyncer struct{}

func (InlineSyncer) Publish(ctx context.Context, msg NoteStatusChanged, handle SyncHandler) {
	if err := handle(ctx, msg); err != nil {
		logging.Error(ctx, err, "note status sync failed",
			"note_id", msg.NoteID, "working_order_id", msg.WorkOrderID, "estado", int(msg.Estado))
	}
}

// AsyncSyncer applies the change on a detached goroutine.
type AsyncSyncer struct {
	dispatcher async.Dispatcher
}

func (s *AsyncSyncer) Publish(ctx context.Context, msg NoteStatusChanged, handle SyncHandler) {
	s.dispatcher.Dispatch(ctx, func(ctx context.Context) error {
		if err := handle(ctx, msg); err != nil {
			return goerr.Wrap(err, "note status sync failed",
				goerr.V("note_id", msg.NoteID), goerr.V("working_order_id", msg.WorkOrderID), goerr.V("estado", int(msg.Estado)))
		}
		return nil
	})
}

// Wait blocks until dispatched syncs finish.
func (s *AsyncSyncer) Wait() {
	s.dispatcher.Wait()
}

func (e Engine) syncer() Syncer {
	if e.Syncer != nil {
		return e.Syncer
	}
	return InlineSyncer{}
}

// WaitSync drains in-flight async syncs; inline mode returns at once.
func (e Engine) WaitSync() {
	if s, ok := e.Syncer.(*AsyncSyncer); ok {
		s.Wait()
	}
}

// HandleNoteStatusChanged is the SyncHandler used by SetNoteStatus.
func (e Engine) HandleNoteStatusChanged(ctx context.Context, msg NoteStatusChanged) error {
	_, err := e.SyncNoteStatus(ctx, msg.WorkOrderID, msg.Estado, msg.PerformedBy, msg.Comment)
	return err
}

// SyncNoteStatus mirrors a note estado onto its working order: 0 is ASSIGNED
// when the order has an assignee, 1 is IN_PROGRESS, 2 is RESOLVED with
// resolved_at stamped. Closed orders and orders already at the target are
// left alone. The mapping sets state directly rather than walking the
// lifecycle table. Reports whether a transition was applied.
func (e Engine) SyncNoteStatus(ctx context.Context, woID string, estado domain.Estado, actorID, comment string) (bool, error) {
	target, ok := domain.SyncTarget(estado)
	if !ok {
		return false, invalid("estado must be 0, 1 or 2", goerr.V("estado", int(estado)))
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	wo, err := e.Repo.GetWorkOrder(ctx, tx, woID)
	if err != nil {
		return false, notFound(err, "working order", woID)
	}
	switch {
	case wo.Status.IsTerminal():
		logging.From(ctx).Debug("sync skipped on closed working order", "working_order_id", woID, "status", wo.Status)
		return false, nil
	case wo.Status == target:
		return false, nil
	case target == domain.StatusAssigned && wo.AssignedTo == nil:
		return false, nil
	}
	note := strings.TrimSpace(comment)
	if note == "" {
		note = fmt.Sprintf("note status: %s", estado)
	}
	if err := e.transition(ctx, tx, &wo, target, note, actorID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// ConvertOptions are parameters for turning a working order into a note.
type ConvertOptions struct {
	WorkOrderID    string
	SupervisorID   string
	Date           string
	InitialComment string
	ActorID        string
}

// ConvertToNote creates a pending note for the supervisor from the working
// order, links the two and moves the order to ASSIGNED. The initial comment is
// stored on the working order and doubles as the status log note.
func (e Engine) ConvertToNote(ctx context.Context, opts ConvertOptions) (domain.WorkingOrder, domain.Note, error) {
	wo, err := e.Repo.GetWorkOrder(ctx, nil, opts.WorkOrderID)
	if err != nil {
		return wo, domain.Note{}, notFound(err, "working order", opts.WorkOrderID)
	}
	if err := ensureConvertible(wo); err != nil {
		return wo, domain.Note{}, err
	}
	if _, err := e.activeSupervisor(ctx, opts.SupervisorID); err != nil {
		return wo, domain.Note{}, err
	}
	fecha := e.today()
	if strings.TrimSpace(opts.Date) != "" {
		d, err := parseDate("date", opts.Date)
		if err != nil {
			return wo, domain.Note{}, err
		}
		fecha = d
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return wo, domain.Note{}, err
	}
	defer tx.Rollback()

	wo, err = e.Repo.GetWorkOrder(ctx, tx, opts.WorkOrderID)
	if err != nil {
		return wo, domain.Note{}, notFound(err, "working order", opts.WorkOrderID)
	}
	if err := ensureConvertible(wo); err != nil {
		return wo, domain.Note{}, err
	}

	now := e.timestamp()
	supervisorID := strings.TrimSpace(opts.SupervisorID)
	activity := wo.Detail
	if activity == "" {
		activity = wo.Summary
	}
	n := domain.Note{
		ID:           newID(),
		SupervisorID: supervisorID,
		Titulo:       wo.Summary,
		Actividades:  fmt.Sprintf("Room %s: %s", wo.RoomNumber, activity),
		Fecha:        fecha,
		Estado:       domain.EstadoPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.Repo.InsertNote(ctx, tx, n); err != nil {
		return wo, n, goerr.Wrap(err, "insert note", goerr.V("working_order_id", wo.ID))
	}

	wo.NoteID = &n.ID
	wo.AssignedTo = &supervisorID
	comment := strings.TrimSpace(opts.InitialComment)
	if wo.Status != domain.StatusAssigned {
		if err := e.transition(ctx, tx, &wo, domain.StatusAssigned, comment, opts.ActorID); err != nil {
			return wo, n, err
		}
	} else {
		wo.UpdatedAt = now
		if err := e.Repo.UpdateWorkOrder(ctx, tx, wo); err != nil {
			return wo, n, goerr.Wrap(err, "link working order", goerr.V("working_order_id", wo.ID))
		}
	}
	if comment != "" {
		if err := e.Repo.InsertWOComment(ctx, tx, domain.WOComment{
			ID:             newID(),
			WorkingOrderID: wo.ID,
			AuthorID:       optionalString(opts.ActorID),
			Body:           comment,
			CreatedAt:      now,
		}); err != nil {
			return wo, n, goerr.Wrap(err, "insert initial comment", goerr.V("working_order_id", wo.ID))
		}
	}
	if err := tx.Commit(); err != nil {
		return wo, n, err
	}
	n.WorkingOrderID = &wo.ID
	return wo, n, nil
}

func ensureConvertible(wo domain.WorkingOrder) error {
	if wo.NoteID != nil {
		return conflict("working order already has a note", goerr.V("working_order_id", wo.ID), goerr.V("note_id", *wo.NoteID))
	}
	if wo.Status.IsTerminal() {
		return conflict("working order is closed", goerr.V("working_order_id", wo.ID), goerr.V("status", wo.Status))
	}
	return nil
}
