package alert

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle position of an alert.
type Status string

// Alert statuses.
const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusAssigned     Status = "assigned"
	StatusInProgress   Status = "in-progress"
	StatusResolved     Status = "resolved"
	StatusEscalated    Status = "escalated"
	StatusClosed       Status = "closed"
)

// Type describes how the alert was raised.
type Type string

// Alert types.
const (
	TypeEmergency  Type = "emergency"
	TypeVoice      Type = "voice"
	TypeManual     Type = "manual"
	TypeSuspicious Type = "suspicious"
)

// Priority ranks alerts for responders.
type Priority string

// Alert priorities.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// UnknownLocation is used for voice alerts raised before the device has a fix.
const UnknownLocation = "Location not available"

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusAcknowledged, StatusAssigned, StatusInProgress,
		StatusResolved, StatusEscalated, StatusClosed:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known alert type.
func (t Type) Valid() bool {
	switch t {
	case TypeEmergency, TypeVoice, TypeManual, TypeSuspicious:
		return true
	default:
		return false
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Alert is one reported safety incident.
type Alert struct {
	// ID is the stable identifier.
	ID string
	// ReporterID is the principal who raised the alert. Immutable.
	ReporterID string
	// ReporterName is the display name of the reporter.
	ReporterName string
	// Type describes how the alert was raised.
	Type Type
	// Location is a human-readable place description.
	Location string
	// Coordinates holds raw device coordinates, if any.
	Coordinates string
	// Priority ranks the alert.
	Priority Priority
	// Status is the current lifecycle position.
	Status Status
	// Description is free text from the reporter.
	Description string

	// AssignedOfficerID is the responsible officer, if any.
	AssignedOfficerID string
	// Station is the police station handling the case.
	Station string
	// Badge is the badge number of the assigned officer.
	Badge string
	// Jurisdiction is the area the case belongs to.
	Jurisdiction string

	// Milestones are write-once: set the first time a status is reached.
	AssignedAt     *time.Time
	AcknowledgedAt *time.Time
	InProgressAt   *time.Time
	ResolvedAt     *time.Time
	EscalatedAt    *time.Time
	ClosedAt       *time.Time

	// EscalatedBy is the principal who last escalated the alert.
	EscalatedBy string
	// EscalationReason is optional free text supplied with escalate.
	EscalationReason string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version is bumped by the store on every successful update.
	Version int64
}

// Clone returns a deep copy of the alert.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}

	cloned := *a
	cloned.AssignedAt = cloneTime(a.AssignedAt)
	cloned.AcknowledgedAt = cloneTime(a.AcknowledgedAt)
	cloned.InProgressAt = cloneTime(a.InProgressAt)
	cloned.ResolvedAt = cloneTime(a.ResolvedAt)
	cloned.EscalatedAt = cloneTime(a.EscalatedAt)
	cloned.ClosedAt = cloneTime(a.ClosedAt)

	return &cloned
}

// NewAlertInput carries the fields accepted when an alert is raised.
type NewAlertInput struct {
	ReporterID   string
	ReporterName string
	Location     string
	Coordinates  string
	Description  string
	Type         Type
	Priority     Priority
	// Voice marks alerts raised by an audio upload; they default to high priority.
	Voice bool
}

// NewAlert validates the input and builds an active alert.
func NewAlert(id string, in NewAlertInput, now time.Time) (*Alert, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidPayload)
	}

	if strings.TrimSpace(in.ReporterID) == "" {
		return nil, fmt.Errorf("%w: reporter id is required", ErrInvalidPayload)
	}

	location := strings.TrimSpace(in.Location)
	if location == "" && in.Voice {
		location = UnknownLocation
	}

	if location == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidPayload)
	}

	alertType, priority := TypeManual, PriorityMedium
	if in.Voice {
		alertType, priority = TypeVoice, PriorityHigh
	}

	if in.Type != "" {
		if !in.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPayload, in.Type)
		}

		alertType = in.Type
	}

	if in.Priority != "" {
		if !in.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidPayload, in.Priority)
		}

		priority = in.Priority
	}

	return &Alert{
		ID:           id,
		ReporterID:   in.ReporterID,
		ReporterName: in.ReporterName,
		Type:         alertType,
		Location:     location,
		Coordinates:  in.Coordinates,
		Priority:     priority,
		Status:       StatusActive,
		Description:  in.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	cloned := *t

	return &cloned
}
