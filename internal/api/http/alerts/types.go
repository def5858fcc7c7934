package alerts

import (
	"time"

	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/relay"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateAlertRequest is the body of POST /api/alerts.
type CreateAlertRequest struct {
	ReporterName string `json:"reporterName"`
	Type         string `json:"type"`
	Location     string `json:"location"`
	Coordinates  string `json:"coordinates"`
	Priority     string `json:"priority"`
	Description  string `json:"description"`
}

// AlertResponse is the public view of an alert.
type AlertResponse struct {
	ID                string     `json:"id"`
	ReporterID        string     `json:"reporterId"`
	ReporterName      string     `json:"reporterName"`
	Type              string     `json:"type"`
	Location          string     `json:"location"`
	Coordinates       string     `json:"coordinates,omitempty"`
	Priority          string     `json:"priority"`
	Status            string     `json:"status"`
	Description       string     `json:"description,omitempty"`
	AssignedOfficerID string     `json:"assignedOfficerId,omitempty"`
	Station           string     `json:"station,omitempty"`
	Badge             string     `json:"badge,omitempty"`
	Jurisdiction      string     `json:"jurisdiction,omitempty"`
	AssignedAt        *time.Time `json:"assignedAt,omitempty"`
	AcknowledgedAt    *time.Time `json:"acknowledgedAt,omitempty"`
	InProgressAt      *time.Time `json:"inProgressAt,omitempty"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
	EscalatedAt       *time.Time `json:"escalatedAt,omitempty"`
	ClosedAt          *time.Time `json:"closedAt,omitempty"`
	EscalatedBy       string     `json:"escalatedBy,omitempty"`
	EscalationReason  string     `json:"escalationReason,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	Version           int64      `json:"version"`
}

// AlertListResponse wraps a list of alerts.
type AlertListResponse struct {
	Alerts []AlertResponse `json:"alerts"`
}

// RecordingResponse is the public view of a voice recording.
type RecordingResponse struct {
	ID         string    `json:"id"`
	AlertID    string    `json:"alertId"`
	OwnerID    string    `json:"ownerId"`
	OwnerName  string    `json:"ownerName"`
	FileURL    string    `json:"fileUrl"`
	MimeType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	DurationMs int64     `json:"durationMs,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RecordingListResponse wraps a list of recordings.
type RecordingListResponse struct {
	Recordings []RecordingResponse `json:"recordings"`
}

// VoiceResponse is returned by the voice upload.
type VoiceResponse struct {
	Alert     AlertResponse     `json:"alert"`
	Recording RecordingResponse `json:"recording"`
}

// LiveResponse lists the rooms currently carrying a broadcast.
type LiveResponse struct {
	Rooms []relay.LiveRoom `json:"rooms"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Relay   relay.Stats `json:"relay"`
}

func toAlertResponse(a *alert.Alert) AlertResponse {
	return AlertResponse{
		ID:                a.ID,
		ReporterID:        a.ReporterID,
		ReporterName:      a.ReporterName,
		Type:              string(a.Type),
		Location:          a.Location,
		Coordinates:       a.Coordinates,
		Priority:          string(a.Priority),
		Status:            string(a.Status),
		Description:       a.Description,
		AssignedOfficerID: a.AssignedOfficerID,
		Station:           a.Station,
		Badge:             a.Badge,
		Jurisdiction:      a.Jurisdiction,
		AssignedAt:        a.AssignedAt,
		AcknowledgedAt:    a.AcknowledgedAt,
		InProgressAt:      a.InProgressAt,
		ResolvedAt:        a.ResolvedAt,
		EscalatedAt:       a.EscalatedAt,
		ClosedAt:          a.ClosedAt,
		EscalatedBy:       a.EscalatedBy,
		EscalationReason:  a.EscalationReason,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
		Version:           a.Version,
	}
}

func toAlertList(alerts []*alert.Alert) AlertListResponse {
	response := AlertListResponse{Alerts: make([]AlertResponse, 0, len(alerts))}
	for _, a := range alerts {
		response.Alerts = append(response.Alerts, toAlertResponse(a))
	}

	return response
}

func toRecordingResponse(rec *alert.Recording) RecordingResponse {
	return RecordingResponse{
		ID:         rec.ID,
		AlertID:    rec.AlertID,
		OwnerID:    rec.OwnerID,
		OwnerName:  rec.OwnerName,
		FileURL:    rec.FileURL,
		MimeType:   rec.MimeType,
		Size:       rec.Size,
		DurationMs: rec.DurationMs,
		CreatedAt:  rec.CreatedAt,
	}
}
