package alert

import (
	"fmt"
	"time"
)

// Action names a lifecycle transition requested by a responder.
type Action string

// Recognized actions.
const (
	ActionAssign      Action = "assign"
	ActionAcknowledge Action = "acknowledge"
	ActionInProgress  Action = "in-progress"
	ActionResolve     Action = "resolved"
	ActionEscalate    Action = "escalate"
)

// Valid reports whether a is one of the recognized actions.
func (a Action) Valid() bool {
	switch a {
	case ActionAssign, ActionAcknowledge, ActionInProgress, ActionResolve, ActionEscalate:
		return true
	default:
		return false
	}
}

// Payload carries optional action arguments. Only assign and escalate read it.
type Payload struct {
	// OfficerID overrides the assignee on assign; defaults to the actor.
	OfficerID    string `json:"assignedOfficerId,omitempty"`
	Station      string `json:"station,omitempty"`
	Badge        string `json:"badge,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	// Reason is recorded on escalate.
	Reason string `json:"reason,omitempty"`
}

// Delta is the set of field changes produced by an accepted transition.
// Nil pointers leave the field untouched.
type Delta struct {
	Action Action
	Status Status

	AssignedOfficerID *string
	Station           *string
	Badge             *string
	Jurisdiction      *string

	AssignedAt     *time.Time
	AcknowledgedAt *time.Time
	InProgressAt   *time.Time
	ResolvedAt     *time.Time
	EscalatedAt    *time.Time

	EscalatedBy      *string
	EscalationReason *string

	// At is the decision time, used as the new UpdatedAt.
	At time.Time
}

// Transition decides whether actor may apply action to current and returns
// the resulting changes. A nil current means the alert does not exist.
//
// Checks run in a fixed order: the action name, then the actor's role, then
// existence. A rejection never carries a delta.
func Transition(current *Alert, action Action, actor Principal, payload Payload, now time.Time) (*Delta, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	if !actor.IsResponder() {
		return nil, fmt.Errorf("%w: role %q may not %s alerts", ErrForbidden, actor.Role, action)
	}

	if current == nil {
		return nil, ErrNotFound
	}

	delta := &Delta{
		Action: action,
		At:     now,
	}

	switch action {
	case ActionAssign:
		officer := payload.OfficerID
		if officer == "" {
			officer = actor.ID
		}

		delta.Status = StatusAssigned
		delta.AssignedOfficerID = &officer
		delta.Station = optional(payload.Station)
		delta.Badge = optional(payload.Badge)
		delta.Jurisdiction = optional(payload.Jurisdiction)
		delta.AssignedAt = firstTime(current.AssignedAt, now)
	case ActionAcknowledge:
		delta.Status = StatusAcknowledged
		delta.AcknowledgedAt = firstTime(current.AcknowledgedAt, now)

		// Unassigned alerts are claimed by whoever acknowledges them.
		if current.AssignedOfficerID == "" {
			officer := actor.ID
			delta.AssignedOfficerID = &officer
		}
	case ActionInProgress:
		delta.Status = StatusInProgress
		delta.InProgressAt = firstTime(current.InProgressAt, now)
	case ActionResolve:
		delta.Status = StatusResolved
		delta.ResolvedAt = firstTime(current.ResolvedAt, now)
	case ActionEscalate:
		escalatedBy := actor.ID

		delta.Status = StatusEscalated
		delta.EscalatedAt = firstTime(current.EscalatedAt, now)
		delta.EscalatedBy = &escalatedBy
		delta.EscalationReason = optional(payload.Reason)
	}

	return delta, nil
}

// Apply returns a copy of a with the delta applied. The input is not modified.
func (d *Delta) Apply(a *Alert) *Alert {
	next := a.Clone()
	if d == nil || next == nil {
		return next
	}

	next.Status = d.Status
	next.UpdatedAt = d.At

	setString(&next.AssignedOfficerID, d.AssignedOfficerID)
	setString(&next.Station, d.Station)
	setString(&next.Badge, d.Badge)
	setString(&next.Jurisdiction, d.Jurisdiction)
	setString(&next.EscalatedBy, d.EscalatedBy)
	setString(&next.EscalationReason, d.EscalationReason)

	// Milestones are only ever filled, never replaced or cleared.
	next.AssignedAt = keepFirst(next.AssignedAt, d.AssignedAt)
	next.AcknowledgedAt = keepFirst(next.AcknowledgedAt, d.AcknowledgedAt)
	next.InProgressAt = keepFirst(next.InProgressAt, d.InProgressAt)
	next.ResolvedAt = keepFirst(next.ResolvedAt, d.ResolvedAt)
	next.EscalatedAt = keepFirst(next.EscalatedAt, d.EscalatedAt)

	return next
}

// firstTime returns now when the milestone has never been reached.
func firstTime(existing *time.Time, now time.Time) *time.Time {
	if existing != nil {
		return nil
	}

	stamp := now

	return &stamp
}

func keepFirst(existing, candidate *time.Time) *time.Time {
	if existing != nil {
		return existing
	}

	return cloneTime(candidate)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
