package domain

import (
	"fmt"
	"strings"
)

// Status is the working order lifecycle state.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusDismissed  Status = "DISMISSED"
)

func AllStatuses() []Status {
	return []Status{StatusOpen, StatusAssigned, StatusInProgress, StatusResolved, StatusDismissed}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusInProgress, StatusResolved, StatusDismissed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

func (s Status) String() string { return string(s) }

func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid status: %s", s)
	}
	return status, nil
}

var transitions = map[Status][]Status{
	StatusOpen:       {StatusAssigned, StatusResolved, StatusDismissed},
	StatusAssigned:   {StatusInProgress, StatusResolved, StatusDismissed},
	StatusInProgress: {StatusAssigned, StatusResolved, StatusDismissed},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// ParseSeverity defaults an empty value to MEDIUM.
func ParseSeverity(s string) (Severity, error) {
	if strings.TrimSpace(s) == "" {
		return SeverityMedium, nil
	}
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", fmt.Errorf("invalid severity: %s", s)
	}
	return sev, nil
}

type Source string

const (
	SourceManual   Source = "MANUAL"
	SourceMedallia Source = "MEDALLIA"
)

func (s Source) IsValid() bool {
	return s == SourceManual || s == SourceMedallia
}

// ParseSource defaults an empty value to MANUAL.
func ParseSource(s string) (Source, error) {
	if strings.TrimSpace(s) == "" {
		return SourceManual, nil
	}
	src := Source(strings.ToUpper(strings.TrimSpace(s)))
	if !src.IsValid() {
		return "", fmt.Errorf("invalid source: %s", s)
	}
	return src, nil
}

// Estado is a note's progress: 0 pending, 1 in progress, 2 completed.
type Estado int

const (
	EstadoPending    Estado = 0
	EstadoInProgress Estado = 1
	EstadoCompleted  Estado = 2
)

func (e Estado) IsValid() bool {
	return e >= EstadoPending && e <= EstadoCompleted
}

func (e Estado) String() string {
	switch e {
	case EstadoPending:
		return "pending"
	case EstadoInProgress:
		return "in_progress"
	case EstadoCompleted:
		return "completed"
	default:
		return fmt.Sprintf("estado(%d)", int(e))
	}
}

func ParseEstado(v int) (Estado, error) {
	e := Estado(v)
	if !e.IsValid() {
		return 0, fmt.Errorf("invalid estado: %d", v)
	}
	return e, nil
}

// SyncTarget maps a note estado onto the working order status it mirrors.
func SyncTarget(e Estado) (Status, bool) {
	switch e {
	case EstadoPending:
		return StatusAssigned, true
	case EstadoInProgress:
		return StatusInProgress, true
	case EstadoCompleted:
		return StatusResolved, true
	default:
		return "", false
	}
}
