package domain

type WorkingOrder struct {
	ID             string      `json:"id"`
	RoomID         string      `json:"room_id"`
	RoomNumber     string      `json:"room_number"`
	StayFrom       string      `json:"stay_from" format:"date"`
	StayTo         string      `json:"stay_to" format:"date"`
	Summary        string      `json:"summary"`
	Detail         string      `json:"detail,omitempty"`
	Source         Source      `json:"source" enum:"MANUAL,MEDALLIA"`
	Category       string      `json:"category,omitempty"`
	Severity       Severity    `json:"severity" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	Status         Status      `json:"status" enum:"OPEN,ASSIGNED,IN_PROGRESS,RESOLVED,DISMISSED"`
	AssignedTo     *string     `json:"assigned_to,omitempty"`
	CreatedBy      *string     `json:"created_by,omitempty"`
	HasPendingNext bool        `json:"has_pending_next"`
	NoteID         *string     `json:"note_id,omitempty"`
	CreatedAt      string      `json:"created_at" format:"date-time"`
	UpdatedAt      string      `json:"updated_at" format:"date-time"`
	ResolvedAt     *string     `json:"resolved_at,omitempty" format:"date-time"`
	Images         []WOImage   `json:"images,omitempty"`
	Comments       []WOComment `json:"comments,omitempty"`
	StatusLogs     []StatusLog `json:"status_logs,omitempty"`
}

type WOImage struct {
	ID             string `json:"id"`
	WorkingOrderID string `json:"working_order_id"`
	URL            string `json:"url"`
	CreatedAt      string `json:"created_at" format:"date-time"`
}

type WOComment struct {
	ID             string  `json:"id"`
	WorkingOrderID string  `json:"working_order_id"`
	AuthorID       *string `json:"author_id,omitempty"`
	Body           string  `json:"body"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

// StatusLog is one row of a working order's audit trail.
type StatusLog struct {
	ID             int64   `json:"id"`
	WorkingOrderID string  `json:"working_order_id"`
	Status         Status  `json:"status"`
	Note           string  `json:"note,omitempty"`
	PerformedBy    *string `json:"performed_by,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

// Note is a supervisor task. Field names follow the hotel staff vocabulary.
type Note struct {
	ID             string        `json:"id"`
	SupervisorID   string        `json:"supervisor_id"`
	Titulo         string        `json:"titulo"`
	Actividades    string        `json:"actividades,omitempty"`
	Fecha          string        `json:"fecha" format:"date"`
	Estado         Estado        `json:"estado" enum:"0,1,2"`
	Cristal        bool          `json:"cristal"`
	Imagen         *string       `json:"imagen,omitempty"`
	WorkingOrderID *string       `json:"working_order_id,omitempty"`
	CreatedAt      string        `json:"created_at" format:"date-time"`
	UpdatedAt      string        `json:"updated_at" format:"date-time"`
	Comments       []NoteComment `json:"comments,omitempty"`
	Images         []NoteImage   `json:"images,omitempty"`
}

type NoteComment struct {
	ID        string   `json:"id"`
	NoteID    string   `json:"note_id"`
	AuthorID  *string  `json:"author_id,omitempty"`
	Body      string   `json:"body"`
	Mentions  []string `json:"mentions"`
	CreatedAt string   `json:"created_at" format:"date-time"`
}

type NoteImage struct {
	ID        string `json:"id"`
	NoteID    string `json:"note_id"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Room struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Tower  string `json:"tower,omitempty"`
	Floor  int    `json:"floor"`
}

type Supervisor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// WorkOrderStats backs the dashboard counters.
type WorkOrderStats struct {
	ByStatus   map[string]int `json:"by_status"`
	BySeverity map[string]int `json:"by_severity"`
	Linked     int            `json:"linked"`
	Total      int            `json:"total"`
}
