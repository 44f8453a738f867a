package hotelopssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal hotelops HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client for the API mounted at /v1.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// WorkingOrder represents the API working order model (partial).
type WorkingOrder struct {
	ID         string  `json:"id"`
	RoomNumber string  `json:"room_number"`
	StayFrom   string  `json:"stay_from"`
	StayTo     string  `json:"stay_to"`
	Summary    string  `json:"summary"`
	Severity   string  `json:"severity"`
	Status     string  `json:"status"`
	AssignedTo *string `json:"assigned_to,omitempty"`
	NoteID     *string `json:"note_id,omitempty"`
	ResolvedAt *string `json:"resolved_at,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// Note represents a supervisor note.
type Note struct {
	ID             string  `json:"id"`
	SupervisorID   string  `json:"supervisor_id"`
	Titulo         string  `json:"titulo"`
	Actividades    string  `json:"actividades,omitempty"`
	Fecha          string  `json:"fecha"`
	Estado         int     `json:"estado"`
	Cristal        bool    `json:"cristal"`
	WorkingOrderID *string `json:"working_order_id,omitempty"`
}

// StatusLog is one audit row of a working order.
type StatusLog struct {
	Status      string  `json:"status"`
	Note        string  `json:"note,omitempty"`
	PerformedBy *string `json:"performed_by,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// CreateWorkOrderInput mirrors the create request body.
type CreateWorkOrderInput struct {
	RoomNumber string `json:"room_number,omitempty"`
	RoomID     string `json:"room_id,omitempty"`
	StayFrom   string `json:"stay_from"`
	StayTo     string `json:"stay_to"`
	Summary    string `json:"summary"`
	Detail     string `json:"detail,omitempty"`
	Source     string `json:"source,omitempty"`
	Category   string `json:"category,omitempty"`
	Severity   string `json:"severity,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

// APIError wraps non-2xx responses. Code and Message come from the error
// envelope when the body carries one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// PaginatedWorkOrders wraps list responses with cursors.
type PaginatedWorkOrders struct {
	Items      []WorkingOrder `json:"items"`
	NextCursor string         `json:"next_cursor"`
}

// CreateWorkOrder logs a guest complaint.
func (c *Client) CreateWorkOrder(ctx context.Context, in CreateWorkOrderInput) (WorkingOrder, error) {
	var resp WorkingOrder
	err := c.do(ctx, http.MethodPost, "working-orders", in, &resp)
	return resp, err
}

// GetWorkOrder fetches a working order by id.
func (c *Client) GetWorkOrder(ctx context.Context, id string) (WorkingOrder, error) {
	var resp WorkingOrder
	err := c.do(ctx, http.MethodGet, "working-orders/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListWorkOrders returns one page of working orders filtered by status when set.
func (c *Client) ListWorkOrders(ctx context.Context, status string, limit int, cursor string) (PaginatedWorkOrders, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "working-orders"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedWorkOrders
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Assign assigns a supervisor. With createNote a linked note is created and
// note becomes its first activity.
func (c *Client) Assign(ctx context.Context, id, supervisorID, note string, createNote bool) (WorkingOrder, error) {
	body := map[string]any{
		"supervisor_id": supervisorID,
		"note":          note,
		"create_note":   createNote,
	}
	var resp WorkingOrder
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("working-orders/%s/assign", url.PathEscape(id)), body, &resp)
	return resp, err
}

// ConvertToNote creates a pending note from the working order and links them.
func (c *Client) ConvertToNote(ctx context.Context, id, supervisorID, comment string) (WorkingOrder, Note, error) {
	body := map[string]any{
		"supervisor_id":   supervisorID,
		"initial_comment": comment,
	}
	var resp struct {
		WorkingOrder WorkingOrder `json:"working_order"`
		Note         Note         `json:"note"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("working-orders/%s/convert-to-note", url.PathEscape(id)), body, &resp)
	return resp.WorkingOrder, resp.Note, err
}

// Resolve closes a working order as fixed.
func (c *Client) Resolve(ctx context.Context, id, note string) (WorkingOrder, error) {
	return c.close(ctx, id, "resolve", note)
}

// Dismiss closes a working order without a fix.
func (c *Client) Dismiss(ctx context.Context, id, note string) (WorkingOrder, error) {
	return c.close(ctx, id, "dismiss", note)
}

func (c *Client) close(ctx context.Context, id, action, note string) (WorkingOrder, error) {
	var resp WorkingOrder
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("working-orders/%s/%s", url.PathEscape(id), action), map[string]any{"note": note}, &resp)
	return resp, err
}

// StatusLogs returns the status history, oldest first.
func (c *Client) StatusLogs(ctx context.Context, id string) ([]StatusLog, error) {
	var resp []StatusLog
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("working-orders/%s/status-logs", url.PathEscape(id)), nil, &resp)
	return resp, err
}

// GetNote fetches a note by id.
func (c *Client) GetNote(ctx context.Context, id string) (Note, error) {
	var resp Note
	err := c.do(ctx, http.MethodGet, "notes/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// SetNoteStatus sets a note's estado; a linked working order follows.
func (c *Client) SetNoteStatus(ctx context.Context, id string, estado int) (Note, error) {
	var resp Note
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("notes/%s/status", url.PathEscape(id)), map[string]any{"estado": estado}, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string         `json:"code"`
				Message string         `json:"message"`
				Details map[string]any `json:"details"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
			apiErr.Details = envelope.Error.Details
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
