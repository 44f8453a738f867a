package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"hotelops/internal/config"
	"hotelops/internal/db"
	"hotelops/internal/domain"
	"hotelops/internal/engine"
	"hotelops/internal/engine/auth"
	"hotelops/internal/migrate"
	"hotelops/internal/repo"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	cfg := config.Default()
	cfg.Auth.JWTSecret = testSecret
	conn, err := db.Open(db.Config{Workspace: workspace})
	gt.NoError(t, err).Required()
	gt.NoError(t, migrate.Migrate(conn, "sqlite")).Required()

	e := engine.New(conn, cfg)
	ctx := context.Background()
	_, err = e.CreateRoom(ctx, engine.RoomCreateOptions{Number: "101", Tower: "A", Floor: 1})
	gt.NoError(t, err).Required()
	_, err = e.CreateSupervisor(ctx, engine.SupervisorCreateOptions{ID: "7", Name: "Marta"})
	gt.NoError(t, err).Required()

	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: AuthConfig{JWTSecret: testSecret}})
	gt.NoError(t, err).Required()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	gt.NoError(t, err).Required()
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func bearer(t *testing.T, subject string, roles ...string) map[string]string {
	t.Helper()
	token, err := auth.IssueToken(testSecret, subject, roles, time.Hour, time.Now())
	gt.NoError(t, err).Required()
	return map[string]string{"Authorization": "Bearer " + token}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		gt.NoError(t, err).Required()
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	gt.NoError(t, err).Required()
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	gt.NoError(t, err).Required()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	gt.NoError(t, err).Required()
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(data, &v)).Required()
	return v
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func createWorkOrder(t *testing.T, srv *testServer, headers map[string]string, summary string) domain.WorkingOrder {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/working-orders", map[string]any{
		"room_number": "101",
		"stay_from":   "2026-03-01",
		"stay_to":     "2026-03-04",
		"summary":     summary,
		"severity":    "HIGH",
	}, headers)
	gt.Value(t, res.StatusCode).Equal(http.StatusCreated)
	return decode[domain.WorkingOrder](t, data)
}

func TestHealthAndAuthentication(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	gt.Value(t, res.StatusCode).Equal(http.StatusOK)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, nil)
	gt.Value(t, res.StatusCode).Equal(http.StatusUnauthorized)
	gt.Value(t, decode[errorEnvelope](t, data).Error.Code).Equal("unauthorized")

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, map[string]string{"Authorization": "Bearer nope"})
	gt.Value(t, res.StatusCode).Equal(http.StatusUnauthorized)

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, bearer(t, "7", "supervisor"))
	gt.Value(t, res.StatusCode).Equal(http.StatusOK)
	me := decode[WhoAmIResponse](t, data)
	gt.Value(t, me.ActorID).Equal("7")
	gt.Value(t, me.Source).Equal("jwt")
	gt.Array(t, me.Permissions).Has("note.update")
}

func TestAPIKeyAuthentication(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	err := srv.Engine.Repo.InsertAPIKey(context.Background(), nil, domain.APIKey{
		ID:        "key-1",
		ActorID:   "medallia-import",
		Name:      "importer",
		Role:      "integration",
		KeyHash:   repo.HashAPIKey("k3y"),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	gt.NoError(t, err).Required()
	headers := map[string]string{"X-Api-Key": "k3y"}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, headers)
	gt.Value(t, res.StatusCode).Equal(http.StatusOK)
	me := decode[WhoAmIResponse](t, data)
	gt.Value(t, me.ActorID).Equal("medallia-import")
	gt.Value(t, me.Roles).Equal([]string{"integration"})

	wo := createWorkOrder(t, srv, headers, "Noisy neighbours")
	gt.Value(t, *wo.CreatedBy).Equal("medallia-import")

	res, data = doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/v1/working-orders/"+wo.ID, nil, headers)
	gt.Value(t, res.StatusCode).Equal(http.StatusForbidden)
	env := decode[errorEnvelope](t, data)
	gt.Value(t, env.Error.Code).Equal("forbidden")
	gt.Value(t, env.Error.Details["permission"]).Equal(any("wo.delete"))

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, map[string]string{"X-Api-Key": "wrong"})
	gt.Value(t, res.StatusCode).Equal(http.StatusUnauthorized)
}

func TestAssignWithNoteAndSyncOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	admin := bearer(t, "frontdesk", "admin")
	supervisor := bearer(t, "7", "supervisor")
	client := srv.Client()

	wo := createWorkOrder(t, srv, admin, "AC not cooling")
	gt.Value(t, wo.Status).Equal(domain.StatusOpen)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/working-orders/"+wo.ID+"/assign", map[string]any{
		"supervisor_id": "7",
		"note":          "check filters",
		"create_note":   true,
	}, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusOK)
	wo = decode[domain.WorkingOrder](t, data)
	gt.Value(t, wo.Status).Equal(domain.StatusAssigned)
	gt.Value(t, wo.NoteID).NotNil()
	noteURL := srv.URL + "/v1/notes/" + *wo.NoteID

	res, data = doJSON(t, client, http.MethodGet, noteURL, nil, supervisor)
	gt.Value(t, res.StatusCode).Equal(http.StatusOK)
	note := decode[domain.Note](t, data)
	gt.Value(t, note.Estado).Equal(domain.EstadoPending)
	gt.Value(t, *note.WorkingOrderID).Equal(wo.ID)

	for _, estado := range []int{1, 2} {
		res, data = doJSON(t, client, http.MethodPatch, noteURL+"/status", map[string]any{"estado": estado}, supervisor)
		gt.Value(t, res.StatusCode).Equal(http.StatusOK)
		gt.Value(t, decode[domain.Note](t, data).Estado).Equal(domain.Estado(estado))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/working-orders/"+wo.ID, nil, supervisor)
	gt.Value(t, res.StatusCode).Equal(http.StatusOK)
	got := decode[domain.WorkingOrder](t, data)
	gt.Value(t, got.Status).Equal(domain.StatusResolved)
	gt.Value(t, got.ResolvedAt).NotNil()

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/working-orders/"+wo.ID+"/status-logs", nil, supervisor)
	gt.Value(t, res.StatusCode).Equal(http.StatusOK)
	var statuses []domain.Status
	for _, l := range decode[[]domain.StatusLog](t, data) {
		statuses = append(statuses, l.Status)
	}
	gt.Value(t, statuses).Equal([]domain.Status{
		domain.StatusOpen, domain.StatusAssigned, domain.StatusInProgress, domain.StatusResolved,
	})

	res, data = doJSON(t, client, http.MethodPost, noteURL+"/comments", map[string]any{"body": "done, thanks @frontdesk"}, supervisor)
	gt.Value(t, res.StatusCode).Equal(http.StatusCreated)
	gt.Value(t, decode[domain.NoteComment](t, data).Mentions).Equal([]string{"frontdesk"})
}

func TestErrorMapping(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	admin := bearer(t, "frontdesk", "admin")
	client := srv.Client()
	wo := createWorkOrder(t, srv, admin, "Broken lamp")
	woURL := srv.URL + "/v1/working-orders/" + wo.ID

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/working-orders/missing", nil, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusNotFound)
	gt.Value(t, decode[errorEnvelope](t, data).Error.Code).Equal("not_found")

	res, data = doJSON(t, client, http.MethodPatch, woURL, map[string]any{"status": "IN_PROGRESS"}, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusConflict)
	gt.Value(t, decode[errorEnvelope](t, data).Error.Code).Equal("invalid_transition")

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/working-orders", map[string]any{
		"room_number": "101",
		"stay_from":   "2026-03-04",
		"stay_to":     "2026-03-01",
		"summary":     "Backwards stay",
	}, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusBadRequest)
	gt.Value(t, decode[errorEnvelope](t, data).Error.Code).Equal("bad_request")

	res, _ = doJSON(t, client, http.MethodPost, woURL+"/convert-to-note", map[string]any{"supervisor_id": "7"}, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusCreated)
	res, data = doJSON(t, client, http.MethodPost, woURL+"/convert-to-note", map[string]any{"supervisor_id": "7"}, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusConflict)
	gt.Value(t, decode[errorEnvelope](t, data).Error.Code).Equal("conflict")

	res, _ = doJSON(t, client, http.MethodPost, woURL+"/assign", map[string]any{"supervisor_id": "7"}, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusConflict)

	res, _ = doJSON(t, client, http.MethodPost, woURL+"/dismiss", map[string]any{"note": "guest checked out"}, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusOK)
	res, _ = doJSON(t, client, http.MethodPost, woURL+"/resolve", map[string]any{}, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusConflict)
}

func TestListWorkOrdersPagination(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	admin := bearer(t, "frontdesk", "admin")
	for _, s := range []string{"one", "two", "three"} {
		createWorkOrder(t, srv, admin, s)
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/working-orders?limit=2", nil, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusOK)
	first := decode[paginatedWorkOrders](t, data)
	gt.Array(t, first.Items).Length(2)
	gt.String(t, first.NextCursor).NotEqual("")

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/working-orders?limit=2&cursor="+url.QueryEscape(first.NextCursor), nil, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusOK)
	second := decode[paginatedWorkOrders](t, data)
	gt.Array(t, second.Items).Length(1)
	gt.Value(t, second.NextCursor).Equal("")

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/working-orders?linked=maybe", nil, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusBadRequest)

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/working-orders/stats", nil, admin)
	gt.Value(t, res.StatusCode).Equal(http.StatusOK)
	gt.Value(t, decode[domain.WorkOrderStats](t, data).Total).Equal(3)
}
