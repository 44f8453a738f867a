package server

import (
	"hotelops/internal/domain"
)

// Request payloads

type CreateRoomRequest struct {
	Number string `json:"number"`
	Tower  string `json:"tower,omitempty"`
	Floor  int    `json:"floor,omitempty"`
}

type CreateSupervisorRequest struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

type SetSupervisorActiveRequest struct {
	Active bool `json:"active"`
}

type CreateWorkOrderRequest struct {
	RoomID         string `json:"room_id,omitempty"`
	RoomNumber     string `json:"room_number,omitempty"`
	StayFrom       string `json:"stay_from" example:"2026-03-01"`
	StayTo         string `json:"stay_to" example:"2026-03-03"`
	Summary        string `json:"summary"`
	Detail         string `json:"detail,omitempty"`
	Source         string `json:"source,omitempty" enum:"MANUAL,MEDALLIA"`
	Category       string `json:"category,omitempty"`
	Severity       string `json:"severity,omitempty" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	AssignedTo     string `json:"assigned_to,omitempty"`
	HasPendingNext bool   `json:"has_pending_next,omitempty"`
}

type UpdateWorkOrderRequest struct {
	Summary        *string `json:"summary,omitempty"`
	Detail         *string `json:"detail,omitempty"`
	Category       *string `json:"category,omitempty"`
	Severity       *string `json:"severity,omitempty" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	Status         *string `json:"status,omitempty" enum:"OPEN,ASSIGNED,IN_PROGRESS,RESOLVED,DISMISSED"`
	AssignedTo     *string `json:"assigned_to,omitempty" nullable:"true"`
	HasPendingNext *bool   `json:"has_pending_next,omitempty"`
	Note           string  `json:"note,omitempty"`
	Force          bool    `json:"force,omitempty"`
}

type AssignWorkOrderRequest struct {
	SupervisorID string `json:"supervisor_id"`
	Note         string `json:"note,omitempty"`
	CreateNote   bool   `json:"create_note,omitempty"`
	Date         string `json:"date,omitempty"`
}

type ConvertToNoteRequest struct {
	SupervisorID   string `json:"supervisor_id"`
	Date           string `json:"date,omitempty"`
	InitialComment string `json:"initial_comment,omitempty"`
}

type CloseWorkOrderRequest struct {
	Note string `json:"note,omitempty"`
}

type CommentRequest struct {
	Body string `json:"body"`
}

type ImageRequest struct {
	URL string `json:"url" example:"https://files.example.com/room-101.jpg"`
}

type CreateNoteRequest struct {
	SupervisorID string `json:"supervisor_id"`
	Titulo       string `json:"titulo"`
	Actividades  string `json:"actividades,omitempty"`
	Fecha        string `json:"fecha,omitempty"`
	Cristal      bool   `json:"cristal,omitempty"`
	Imagen       string `json:"imagen,omitempty"`
}

type UpdateNoteRequest struct {
	Titulo      *string `json:"titulo,omitempty"`
	Actividades *string `json:"actividades,omitempty"`
	Fecha       *string `json:"fecha,omitempty"`
	Imagen      *string `json:"imagen,omitempty"`
	Cristal     *bool   `json:"cristal,omitempty"`
}

type SetNoteStatusRequest struct {
	Estado  int    `json:"estado" minimum:"0" maximum:"2"`
	Comment string `json:"comment,omitempty"`
}

// Response payloads

type (
	paginatedWorkOrders = keysetPage[domain.WorkingOrder]
	paginatedNotes      = keysetPage[domain.Note]
)

type ConvertToNoteResponse struct {
	WorkingOrder domain.WorkingOrder `json:"working_order"`
	Note         domain.Note         `json:"note"`
}

type WhoAmIResponse struct {
	ActorID     string   `json:"actor_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Source      string   `json:"source"`
}

func nonNilSlice(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
