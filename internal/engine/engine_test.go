package engine_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"hotelops/internal/config"
	"hotelops/internal/db"
	"hotelops/internal/domain"
	"hotelops/internal/engine"
	"hotelops/internal/migrate"
	"hotelops/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Room   domain.Room
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	gt.NoError(t, err).Required()
	t.Cleanup(func() { conn.Close() })
	gt.NoError(t, migrate.Migrate(conn, "sqlite")).Required()

	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	room, err := eng.CreateRoom(ctx, engine.RoomCreateOptions{Number: "101", Tower: "A", Floor: 1})
	gt.NoError(t, err).Required()
	_, err = eng.CreateSupervisor(ctx, engine.SupervisorCreateOptions{ID: "7", Name: "Marta", Role: "supervisor"})
	gt.NoError(t, err).Required()
	_, err = eng.CreateSupervisor(ctx, engine.SupervisorCreateOptions{ID: "8", Name: "Luis", Role: "supervisor"})
	gt.NoError(t, err).Required()
	return testEnv{Engine: eng, Ctx: ctx, Room: room}
}

func (env testEnv) createWO(t *testing.T, summary string) domain.WorkingOrder {
	t.Helper()
	wo, err := env.Engine.CreateWorkOrder(env.Ctx, engine.WorkOrderCreateOptions{
		RoomNumber: "101",
		StayFrom:   "2026-02-27",
		StayTo:     "2026-03-02",
		Summary:    summary,
		Severity:   "HIGH",
		ActorID:    "frontdesk",
	})
	gt.NoError(t, err).Required()
	return wo
}

func logStatuses(t *testing.T, env testEnv, woID string) []domain.Status {
	t.Helper()
	logs, err := env.Engine.StatusLogs(env.Ctx, woID)
	gt.NoError(t, err).Required()
	var res []domain.Status
	for _, l := range logs {
		res = append(res, l.Status)
	}
	return res
}

func TestCreateWorkOrderStartsOpen(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "AC not cooling")

	gt.Value(t, wo.Status).Equal(domain.StatusOpen)
	gt.Value(t, wo.Severity).Equal(domain.SeverityHigh)
	gt.Value(t, wo.Source).Equal(domain.SourceManual)
	gt.Value(t, wo.RoomID).Equal(env.Room.ID)
	gt.Value(t, wo.NoteID).Nil()
	gt.Value(t, logStatuses(t, env, wo.ID)).Equal([]domain.Status{domain.StatusOpen})
}

func TestCreateWithAssigneeStartsAssigned(t *testing.T) {
	env := newTestEnv(t)
	wo, err := env.Engine.CreateWorkOrder(env.Ctx, engine.WorkOrderCreateOptions{
		RoomID:     env.Room.ID,
		StayFrom:   "2026-03-01",
		StayTo:     "2026-03-01",
		Summary:    "Leaking tap",
		AssignedTo: "7",
	})
	gt.NoError(t, err).Required()
	gt.Value(t, wo.Status).Equal(domain.StatusAssigned)
	gt.Value(t, wo.Severity).Equal(domain.SeverityMedium)
	gt.Value(t, *wo.AssignedTo).Equal("7")
	gt.Value(t, logStatuses(t, env, wo.ID)).Equal([]domain.Status{domain.StatusOpen, domain.StatusAssigned})
}

func TestCreateWorkOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	base := engine.WorkOrderCreateOptions{RoomNumber: "101", StayFrom: "2026-03-01", StayTo: "2026-03-02", Summary: "Noise"}
	cases := map[string]func(o *engine.WorkOrderCreateOptions){
		"missing summary":  func(o *engine.WorkOrderCreateOptions) { o.Summary = "  " },
		"missing stay":     func(o *engine.WorkOrderCreateOptions) { o.StayFrom = "" },
		"malformed date":   func(o *engine.WorkOrderCreateOptions) { o.StayTo = "02/03/2026" },
		"reversed stay":    func(o *engine.WorkOrderCreateOptions) { o.StayFrom, o.StayTo = "2026-03-05", "2026-03-01" },
		"bad severity":     func(o *engine.WorkOrderCreateOptions) { o.Severity = "URGENT" },
		"bad source":       func(o *engine.WorkOrderCreateOptions) { o.Source = "EMAIL" },
		"unknown room":     func(o *engine.WorkOrderCreateOptions) { o.RoomNumber = "999" },
		"no room":          func(o *engine.WorkOrderCreateOptions) { o.RoomNumber = "" },
		"unknown assignee": func(o *engine.WorkOrderCreateOptions) { o.AssignedTo = "42" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opts := base
			mutate(&opts)
			_, err := env.Engine.CreateWorkOrder(env.Ctx, opts)
			gt.Error(t, err).Is(engine.ErrValidation)
		})
	}
}

func TestAssignWithNoteScenario(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "AC not cooling")
	gt.Value(t, wo.Status).Equal(domain.StatusOpen)

	wo, err := env.Engine.AssignWorkOrder(env.Ctx, engine.AssignOptions{
		ID:           wo.ID,
		SupervisorID: "7",
		Note:         "check filters",
		CreateNote:   true,
		ActorID:      "frontdesk",
	})
	gt.NoError(t, err).Required()
	gt.Value(t, wo.Status).Equal(domain.StatusAssigned)
	gt.Value(t, wo.NoteID).NotNil()

	note, err := env.Engine.GetNote(env.Ctx, *wo.NoteID)
	gt.NoError(t, err).Required()
	gt.Value(t, note.Estado).Equal(domain.EstadoPending)
	gt.Value(t, note.Titulo).Equal("AC not cooling")
	gt.Value(t, note.SupervisorID).Equal("7")
	gt.Value(t, note.Fecha).Equal("2026-03-01")
	gt.String(t, note.Actividades).Contains("101")
	gt.Value(t, *note.WorkingOrderID).Equal(wo.ID)

	_, err = env.Engine.SetNoteStatus(env.Ctx, note.ID, domain.EstadoInProgress, "7", "")
	gt.NoError(t, err).Required()
	got, err := env.Engine.GetWorkOrder(env.Ctx, wo.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(domain.StatusInProgress)

	_, err = env.Engine.SetNoteStatus(env.Ctx, note.ID, domain.EstadoCompleted, "7", "filters replaced")
	gt.NoError(t, err).Required()
	got, err = env.Engine.GetWorkOrder(env.Ctx, wo.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(domain.StatusResolved)
	gt.Value(t, got.ResolvedAt).NotNil()

	gt.Array(t, got.Comments).Length(1)
	gt.Value(t, got.Comments[0].Body).Equal("check filters")
	gt.Value(t, got.StatusLogs[1].Note).Equal("check filters")
	last := got.StatusLogs[len(got.StatusLogs)-1]
	gt.Value(t, last.Note).Equal("filters replaced")
	gt.Value(t, *last.PerformedBy).Equal("7")
}

func TestRoundTripLogsFourTransitions(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "Shower drains slowly")

	_, note, err := env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "7"})
	gt.NoError(t, err).Required()

	for _, estado := range []domain.Estado{domain.EstadoPending, domain.EstadoInProgress, domain.EstadoCompleted} {
		_, err := env.Engine.SetNoteStatus(env.Ctx, note.ID, estado, "7", "")
		gt.NoError(t, err).Required()
	}
	gt.Value(t, logStatuses(t, env, wo.ID)).Equal([]domain.Status{
		domain.StatusOpen, domain.StatusAssigned, domain.StatusInProgress, domain.StatusResolved,
	})
}

func TestConvertTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "Broken lamp")

	_, note, err := env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "7"})
	gt.NoError(t, err).Required()

	_, _, err = env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "8"})
	gt.Error(t, err).Is(engine.ErrConflict)

	// deleting the note clears the link and allows a new conversion
	gt.NoError(t, env.Engine.DeleteNote(env.Ctx, note.ID)).Required()
	got, err := env.Engine.GetWorkOrder(env.Ctx, wo.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.NoteID).Nil()

	relinked, _, err := env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "8", Date: "2026-03-04"})
	gt.NoError(t, err).Required()
	gt.Value(t, *relinked.AssignedTo).Equal("8")
	// already ASSIGNED, so relinking adds no log row
	gt.Array(t, logStatuses(t, env, wo.ID)).Length(2)
}

func TestConvertErrors(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: "missing", SupervisorID: "7"})
	gt.Error(t, err).Is(repo.ErrNotFound)

	wo := env.createWO(t, "Door lock")
	_, _, err = env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "99"})
	gt.Error(t, err).Is(engine.ErrValidation)

	_, _, err = env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "7", Date: "tomorrow"})
	gt.Error(t, err).Is(engine.ErrValidation)

	_, err = env.Engine.ResolveWorkOrder(env.Ctx, wo.ID, "fixed on the spot", "frontdesk")
	gt.NoError(t, err).Required()
	_, _, err = env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "7"})
	gt.Error(t, err).Is(engine.ErrConflict)
}

func TestDismissOpenWithoutNote(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "Guest changed mind")

	wo, err := env.Engine.DismissWorkOrder(env.Ctx, wo.ID, "duplicate", "frontdesk")
	gt.NoError(t, err).Required()
	gt.Value(t, wo.Status).Equal(domain.StatusDismissed)
	gt.Value(t, wo.NoteID).Nil()
	gt.Value(t, wo.ResolvedAt).Nil()

	logs, err := env.Engine.StatusLogs(env.Ctx, wo.ID)
	gt.NoError(t, err).Required()
	var dismissed []domain.StatusLog
	for _, l := range logs {
		if l.Status == domain.StatusDismissed {
			dismissed = append(dismissed, l)
		}
	}
	gt.Array(t, dismissed).Length(1)
	gt.Value(t, dismissed[0].Note).Equal("duplicate")

	_, err = env.Engine.ResolveWorkOrder(env.Ctx, wo.ID, "", "frontdesk")
	gt.Error(t, err).Is(engine.ErrInvalidTransition)
}

func TestSyncLeavesClosedOrdersAlone(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "Minibar empty")
	_, note, err := env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "7"})
	gt.NoError(t, err).Required()

	_, err = env.Engine.DismissWorkOrder(env.Ctx, wo.ID, "guest left", "frontdesk")
	gt.NoError(t, err).Required()
	before := logStatuses(t, env, wo.ID)

	updated, err := env.Engine.SetNoteStatus(env.Ctx, note.ID, domain.EstadoCompleted, "7", "")
	gt.NoError(t, err).Required()
	gt.Value(t, updated.Estado).Equal(domain.EstadoCompleted)

	got, err := env.Engine.GetWorkOrder(env.Ctx, wo.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(domain.StatusDismissed)
	gt.Value(t, got.ResolvedAt).Nil()
	gt.Value(t, logStatuses(t, env, wo.ID)).Equal(before)
}

func TestSyncCompletedAlwaysResolves(t *testing.T) {
	for _, start := range []domain.Status{domain.StatusOpen, domain.StatusAssigned, domain.StatusInProgress} {
		t.Run(string(start), func(t *testing.T) {
			env := newTestEnv(t)
			wo := env.createWO(t, "TV remote missing")
			if start != domain.StatusOpen {
				_, err := env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{
					ID: wo.ID, Status: string(start), AssignedTo: strPtr("7"), Force: true,
				})
				gt.NoError(t, err).Required()
			}
			applied, err := env.Engine.SyncNoteStatus(env.Ctx, wo.ID, domain.EstadoCompleted, "", "")
			gt.NoError(t, err).Required()
			gt.Bool(t, applied).True()

			got, err := env.Engine.GetWorkOrder(env.Ctx, wo.ID)
			gt.NoError(t, err).Required()
			gt.Value(t, got.Status).Equal(domain.StatusResolved)
			gt.Value(t, got.ResolvedAt).NotNil()
			last := got.StatusLogs[len(got.StatusLogs)-1]
			gt.Value(t, last.PerformedBy).Nil()
		})
	}
}

func TestSyncPendingNeedsAssignee(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "Curtain rail")

	applied, err := env.Engine.SyncNoteStatus(env.Ctx, wo.ID, domain.EstadoPending, "7", "")
	gt.NoError(t, err).Required()
	gt.Bool(t, applied).False()

	_, err = env.Engine.SyncNoteStatus(env.Ctx, "missing", domain.EstadoInProgress, "7", "")
	gt.Error(t, err).Is(repo.ErrNotFound)
}

// failingSyncer delivers inline but hands the caller a handler that errors.
type failingSyncer struct {
	calls int
}

func (f *failingSyncer) Publish(ctx context.Context, msg engine.NoteStatusChanged, _ engine.SyncHandler) {
	engine.InlineSyncer{}.Publish(ctx, msg, func(context.Context, engine.NoteStatusChanged) error {
		f.calls++
		return errors.New("working order store unavailable")
	})
}

func TestNoteStatusSurvivesFailedSync(t *testing.T) {
	env := newTestEnv(t)
	failing := &failingSyncer{}
	env.Engine.Syncer = failing
	wo := env.createWO(t, "Safe will not open")
	_, note, err := env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "7"})
	gt.NoError(t, err).Required()

	updated, err := env.Engine.SetNoteStatus(env.Ctx, note.ID, domain.EstadoInProgress, "7", "")
	gt.NoError(t, err).Required()
	gt.Value(t, updated.Estado).Equal(domain.EstadoInProgress)
	gt.Value(t, failing.calls).Equal(1)

	reloaded, err := env.Engine.GetNote(env.Ctx, note.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, reloaded.Estado).Equal(domain.EstadoInProgress)

	got, err := env.Engine.GetWorkOrder(env.Ctx, wo.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(domain.StatusAssigned)
}

func TestNoteStatusAfterLinkedOrderDeleted(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "Kettle scaled up")
	_, note, err := env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "7"})
	gt.NoError(t, err).Required()

	gt.NoError(t, env.Engine.DeleteWorkOrder(env.Ctx, wo.ID)).Required()

	updated, err := env.Engine.SetNoteStatus(env.Ctx, note.ID, domain.EstadoCompleted, "7", "")
	gt.NoError(t, err).Required()
	gt.Value(t, updated.Estado).Equal(domain.EstadoCompleted)
	gt.Value(t, updated.WorkingOrderID).Nil()
}

func TestInlineSyncerSwallowsHandlerErrors(t *testing.T) {
	env := newTestEnv(t)
	msg := engine.NoteStatusChanged{NoteID: "n1", WorkOrderID: "gone", Estado: domain.EstadoCompleted}
	called := false
	engine.InlineSyncer{}.Publish(env.Ctx, msg, func(ctx context.Context, m engine.NoteStatusChanged) error {
		called = true
		return env.Engine.HandleNoteStatusChanged(ctx, m)
	})
	gt.Bool(t, called).True()
}

type recordingSyncer struct {
	mu   sync.Mutex
	msgs []engine.NoteStatusChanged
}

func (r *recordingSyncer) Publish(_ context.Context, msg engine.NoteStatusChanged, _ engine.SyncHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func TestSetNoteStatusPublishesOnlyForLinkedChanges(t *testing.T) {
	env := newTestEnv(t)
	rec := &recordingSyncer{}
	env.Engine.Syncer = rec

	standalone, err := env.Engine.CreateNote(env.Ctx, engine.NoteCreateOptions{SupervisorID: "7", Titulo: "Check boiler"})
	gt.NoError(t, err).Required()
	_, err = env.Engine.SetNoteStatus(env.Ctx, standalone.ID, domain.EstadoInProgress, "7", "")
	gt.NoError(t, err).Required()
	gt.Array(t, rec.msgs).Length(0)

	wo := env.createWO(t, "Fridge noisy")
	_, linked, err := env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "7"})
	gt.NoError(t, err).Required()

	_, err = env.Engine.SetNoteStatus(env.Ctx, linked.ID, domain.EstadoPending, "7", "")
	gt.NoError(t, err).Required()
	gt.Array(t, rec.msgs).Length(0)

	_, err = env.Engine.SetNoteStatus(env.Ctx, linked.ID, domain.EstadoCompleted, "7", "done")
	gt.NoError(t, err).Required()
	gt.Array(t, rec.msgs).Length(1)
	gt.Value(t, rec.msgs[0]).Equal(engine.NoteStatusChanged{
		NoteID:      linked.ID,
		WorkOrderID: wo.ID,
		Estado:      domain.EstadoCompleted,
		PerformedBy: "7",
		Comment:     "done",
	})

	_, err = env.Engine.SetNoteStatus(env.Ctx, linked.ID, domain.Estado(5), "7", "")
	gt.Error(t, err).Is(engine.ErrValidation)
}

func TestAsyncSyncMode(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Sync.Mode = config.SyncAsync })
	wo := env.createWO(t, "Hairdryer broken")
	_, note, err := env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "7"})
	gt.NoError(t, err).Required()

	_, err = env.Engine.SetNoteStatus(env.Ctx, note.ID, domain.EstadoInProgress, "7", "")
	gt.NoError(t, err).Required()
	env.Engine.WaitSync()

	got, err := env.Engine.GetWorkOrder(env.Ctx, wo.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(domain.StatusInProgress)
}

func TestUpdateWorkOrderTransitions(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "Window stuck")

	_, err := env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: wo.ID, Status: "IN_PROGRESS"})
	gt.Error(t, err).Is(engine.ErrInvalidTransition)

	_, err = env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: wo.ID, Status: "ASSIGNED"})
	gt.Error(t, err).Is(engine.ErrValidation)

	_, err = env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: wo.ID, Status: "REOPENED"})
	gt.Error(t, err).Is(engine.ErrValidation)

	_, err = env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: "missing", Summary: strPtr("x")})
	gt.Error(t, err).Is(repo.ErrNotFound)

	pending := true
	wo, err = env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{
		ID:             wo.ID,
		Status:         "in_progress",
		Force:          true,
		Note:           "tech already on site",
		Category:       strPtr("Windows"),
		HasPendingNext: &pending,
	})
	gt.NoError(t, err).Required()
	gt.Value(t, wo.Status).Equal(domain.StatusInProgress)
	gt.Value(t, wo.Category).Equal("Windows")
	gt.Bool(t, wo.HasPendingNext).True()

	logs, err := env.Engine.StatusLogs(env.Ctx, wo.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, logs).Length(2)
	gt.Bool(t, strings.HasPrefix(logs[1].Note, "[force]")).True()

	// same status writes no log row
	_, err = env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: wo.ID, Status: "IN_PROGRESS", Severity: strPtr("low")})
	gt.NoError(t, err).Required()
	gt.Array(t, logStatuses(t, env, wo.ID)).Length(2)

	_, err = env.Engine.ResolveWorkOrder(env.Ctx, wo.ID, "", "")
	gt.NoError(t, err).Required()
	_, err = env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: wo.ID, Status: "OPEN", Force: true})
	gt.Error(t, err).Is(engine.ErrInvalidTransition)
}

func TestAssignWithoutNote(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "Bulb out")

	wo, err := env.Engine.AssignWorkOrder(env.Ctx, engine.AssignOptions{ID: wo.ID, SupervisorID: "7", Note: "today"})
	gt.NoError(t, err).Required()
	gt.Value(t, wo.Status).Equal(domain.StatusAssigned)
	gt.Value(t, wo.NoteID).Nil()

	// reassigning keeps the status and adds no log row
	wo, err = env.Engine.AssignWorkOrder(env.Ctx, engine.AssignOptions{ID: wo.ID, SupervisorID: "8"})
	gt.NoError(t, err).Required()
	gt.Value(t, *wo.AssignedTo).Equal("8")
	gt.Array(t, logStatuses(t, env, wo.ID)).Length(2)

	_, err = env.Engine.SetSupervisorActive(env.Ctx, "7", false)
	gt.NoError(t, err).Required()
	_, err = env.Engine.AssignWorkOrder(env.Ctx, engine.AssignOptions{ID: wo.ID, SupervisorID: "7"})
	gt.Error(t, err).Is(engine.ErrValidation)
}

func TestUpdateWorkOrderClearsAssigneeOnlyWhenOpen(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "Blinds jammed")
	wo, err := env.Engine.AssignWorkOrder(env.Ctx, engine.AssignOptions{ID: wo.ID, SupervisorID: "7"})
	gt.NoError(t, err).Required()

	_, err = env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: wo.ID, AssignedTo: strPtr("")})
	gt.Error(t, err).Is(engine.ErrValidation)
	got, err := env.Engine.GetWorkOrder(env.Ctx, wo.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(domain.StatusAssigned)
	gt.Value(t, *got.AssignedTo).Equal("7")

	_, err = env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: wo.ID, Status: "IN_PROGRESS", AssignedTo: strPtr("")})
	gt.Error(t, err).Is(engine.ErrValidation)

	// moving back to OPEN may drop the assignee in the same update
	got, err = env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: wo.ID, Status: "OPEN", Force: true, AssignedTo: strPtr("")})
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(domain.StatusOpen)
	gt.Value(t, got.AssignedTo).Nil()
}

func TestUpdateLinkedWorkOrderKeepsNoteOwner(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "Balcony door draft")
	wo, note, err := env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: wo.ID, SupervisorID: "7"})
	gt.NoError(t, err).Required()

	_, err = env.Engine.AssignWorkOrder(env.Ctx, engine.AssignOptions{ID: wo.ID, SupervisorID: "8"})
	gt.Error(t, err).Is(engine.ErrConflict)
	_, err = env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: wo.ID, AssignedTo: strPtr("8")})
	gt.Error(t, err).Is(engine.ErrConflict)
	_, err = env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: wo.ID, AssignedTo: strPtr("")})
	gt.Error(t, err).Is(engine.ErrConflict)

	// restating the current owner is not a reassignment
	got, err := env.Engine.UpdateWorkOrder(env.Ctx, engine.WorkOrderUpdateOptions{ID: wo.ID, AssignedTo: strPtr("7"), Summary: strPtr("Balcony door lets in a draft")})
	gt.NoError(t, err).Required()
	gt.Value(t, *got.AssignedTo).Equal("7")

	reloaded, err := env.Engine.GetNote(env.Ctx, note.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, reloaded.SupervisorID).Equal(*got.AssignedTo)
}

func TestWorkOrderChildren(t *testing.T) {
	env := newTestEnv(t)
	wo := env.createWO(t, "Stained carpet")

	_, err := env.Engine.AddWorkOrderComment(env.Ctx, wo.ID, "frontdesk", "guest sent photos")
	gt.NoError(t, err).Required()
	_, err = env.Engine.AddWorkOrderImage(env.Ctx, wo.ID, "https://img.example.com/carpet.jpg")
	gt.NoError(t, err).Required()

	_, err = env.Engine.AddWorkOrderComment(env.Ctx, wo.ID, "frontdesk", " ")
	gt.Error(t, err).Is(engine.ErrValidation)
	_, err = env.Engine.AddWorkOrderImage(env.Ctx, wo.ID, "carpet.jpg")
	gt.Error(t, err).Is(engine.ErrValidation)
	_, err = env.Engine.AddWorkOrderComment(env.Ctx, "missing", "frontdesk", "hello")
	gt.Error(t, err).Is(repo.ErrNotFound)

	got, err := env.Engine.GetWorkOrder(env.Ctx, wo.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, got.Comments).Length(1)
	gt.Array(t, got.Images).Length(1)
	gt.Array(t, got.StatusLogs).Length(1)
	gt.Value(t, *got.Comments[0].AuthorID).Equal("frontdesk")

	gt.NoError(t, env.Engine.DeleteWorkOrder(env.Ctx, wo.ID)).Required()
	_, err = env.Engine.GetWorkOrder(env.Ctx, wo.ID)
	gt.Error(t, err).Is(repo.ErrNotFound)
	gt.Error(t, env.Engine.DeleteWorkOrder(env.Ctx, wo.ID)).Is(repo.ErrNotFound)
}

func TestListWorkOrdersAndStats(t *testing.T) {
	env := newTestEnv(t)
	a := env.createWO(t, "one")
	env.createWO(t, "two")
	c := env.createWO(t, "three")
	_, _, err := env.Engine.ConvertToNote(env.Ctx, engine.ConvertOptions{WorkOrderID: a.ID, SupervisorID: "7"})
	gt.NoError(t, err).Required()
	_, err = env.Engine.DismissWorkOrder(env.Ctx, c.ID, "", "")
	gt.NoError(t, err).Required()

	all, err := env.Engine.ListWorkOrders(env.Ctx, repo.WorkOrderFilters{})
	gt.NoError(t, err).Required()
	gt.Array(t, all).Length(3)

	open, err := env.Engine.ListWorkOrders(env.Ctx, repo.WorkOrderFilters{Status: "open"})
	gt.NoError(t, err).Required()
	gt.Array(t, open).Length(1)
	gt.Value(t, open[0].Summary).Equal("two")

	linked := true
	withNote, err := env.Engine.ListWorkOrders(env.Ctx, repo.WorkOrderFilters{Linked: &linked, RoomNumber: "101"})
	gt.NoError(t, err).Required()
	gt.Array(t, withNote).Length(1)
	gt.Value(t, withNote[0].ID).Equal(a.ID)

	day, err := env.Engine.ListWorkOrders(env.Ctx, repo.WorkOrderFilters{From: "2026-03-01", To: "2026-03-01"})
	gt.NoError(t, err).Required()
	gt.Array(t, day).Length(3)
	none, err := env.Engine.ListWorkOrders(env.Ctx, repo.WorkOrderFilters{From: "2026-03-02"})
	gt.NoError(t, err).Required()
	gt.Array(t, none).Length(0)

	first, err := env.Engine.ListWorkOrders(env.Ctx, repo.WorkOrderFilters{Page: repo.Page{Limit: 2}})
	gt.NoError(t, err).Required()
	gt.Array(t, first).Length(2)
	rest, err := env.Engine.ListWorkOrders(env.Ctx, repo.WorkOrderFilters{Page: repo.Page{
		Limit: 2, CursorCreatedAt: first[1].CreatedAt, CursorID: first[1].ID,
	}})
	gt.NoError(t, err).Required()
	gt.Array(t, rest).Length(1)

	_, err = env.Engine.ListWorkOrders(env.Ctx, repo.WorkOrderFilters{Severity: "extreme"})
	gt.Error(t, err).Is(engine.ErrValidation)

	stats, err := env.Engine.Stats(env.Ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, stats.Total).Equal(3)
	gt.Value(t, stats.Linked).Equal(1)
	gt.Value(t, stats.ByStatus["OPEN"]).Equal(1)
	gt.Value(t, stats.ByStatus["ASSIGNED"]).Equal(1)
	gt.Value(t, stats.ByStatus["DISMISSED"]).Equal(1)
	gt.Value(t, stats.ByStatus["RESOLVED"]).Equal(0)
	gt.Value(t, stats.BySeverity["HIGH"]).Equal(3)
}

func TestNoteLifecycle(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Engine.CreateNote(env.Ctx, engine.NoteCreateOptions{SupervisorID: "7"})
	gt.Error(t, err).Is(engine.ErrValidation)
	_, err = env.Engine.CreateNote(env.Ctx, engine.NoteCreateOptions{SupervisorID: "nobody", Titulo: "x"})
	gt.Error(t, err).Is(engine.ErrValidation)

	n, err := env.Engine.CreateNote(env.Ctx, engine.NoteCreateOptions{SupervisorID: "7", Titulo: "Pool pump", Fecha: "2026-03-03"})
	gt.NoError(t, err).Required()
	gt.Value(t, n.Estado).Equal(domain.EstadoPending)
	gt.Bool(t, n.Cristal).False()

	n, err = env.Engine.SetNoteCristal(env.Ctx, n.ID, true)
	gt.NoError(t, err).Required()
	gt.Bool(t, n.Cristal).True()
	gt.Value(t, n.Estado).Equal(domain.EstadoPending)

	n, err = env.Engine.UpdateNote(env.Ctx, engine.NoteUpdateOptions{ID: n.ID, Actividades: strPtr("replace seal"), Imagen: strPtr("https://img.example.com/pump.png")})
	gt.NoError(t, err).Required()
	gt.Value(t, n.Actividades).Equal("replace seal")
	gt.Value(t, *n.Imagen).Equal("https://img.example.com/pump.png")

	c, err := env.Engine.AddNoteComment(env.Ctx, n.ID, "7", "@Luis can you bring the kit? cc @ana_m, not a@b.com")
	gt.NoError(t, err).Required()
	gt.Value(t, c.Mentions).Equal([]string{"Luis", "ana_m"})
	_, err = env.Engine.AddNoteImage(env.Ctx, n.ID, "https://img.example.com/seal.png")
	gt.NoError(t, err).Required()

	got, err := env.Engine.GetNote(env.Ctx, n.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, got.Comments).Length(1)
	gt.Value(t, got.Comments[0].Mentions).Equal([]string{"Luis", "ana_m"})
	gt.Array(t, got.Images).Length(1)

	cristal := true
	list, err := env.Engine.ListNotes(env.Ctx, repo.NoteFilters{SupervisorID: "7", Cristal: &cristal})
	gt.NoError(t, err).Required()
	gt.Array(t, list).Length(1)
	pending := domain.EstadoInProgress
	list, err = env.Engine.ListNotes(env.Ctx, repo.NoteFilters{Estado: &pending})
	gt.NoError(t, err).Required()
	gt.Array(t, list).Length(0)

	gt.NoError(t, env.Engine.DeleteNote(env.Ctx, n.ID)).Required()
	_, err = env.Engine.GetNote(env.Ctx, n.ID)
	gt.Error(t, err).Is(repo.ErrNotFound)
}

func TestExtractMentions(t *testing.T) {
	gt.Value(t, engine.ExtractMentions("no mentions here")).Equal([]string{})
	gt.Value(t, engine.ExtractMentions("@marta @Marta @luis.")).Equal([]string{"marta", "luis"})
	gt.Value(t, engine.ExtractMentions("mail ops@hotel.com")).Equal([]string{})
}

func TestDirectoryWrites(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Engine.CreateRoom(env.Ctx, engine.RoomCreateOptions{Number: "101"})
	gt.Error(t, err).Is(engine.ErrConflict)
	_, err = env.Engine.CreateSupervisor(env.Ctx, engine.SupervisorCreateOptions{ID: "7", Name: "Again"})
	gt.Error(t, err).Is(engine.ErrConflict)
	_, err = env.Engine.CreateSupervisor(env.Ctx, engine.SupervisorCreateOptions{Name: "Chef", Role: "chef"})
	gt.Error(t, err).Is(engine.ErrValidation)

	rooms, err := env.Engine.ListRooms(env.Ctx, "")
	gt.NoError(t, err).Required()
	gt.Array(t, rooms).Length(1)

	_, err = env.Engine.SetSupervisorActive(env.Ctx, "8", false)
	gt.NoError(t, err).Required()
	active, err := env.Engine.ListSupervisors(env.Ctx, true)
	gt.NoError(t, err).Required()
	gt.Array(t, active).Length(1)
	gt.Value(t, active[0].ID).Equal("7")
}

func strPtr(s string) *string { return &s }
