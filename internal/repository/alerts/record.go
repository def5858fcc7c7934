package alerts

import (
	"time"

	"github.com/oshokin/safety-relay/internal/domain/alert"
)

// alertRecord is the persisted form of alert.Alert.
type alertRecord struct {
	ID                string     `gorm:"primaryKey;size:36"`
	ReporterID        string     `gorm:"size:64;not null;index:idx_alerts_reporter_created,priority:1"`
	ReporterName      string     `gorm:"size:200"`
	Type              string     `gorm:"size:20;not null"`
	Location          string     `gorm:"size:500;not null"`
	Coordinates       string     `gorm:"size:100"`
	Priority          string     `gorm:"size:20;not null"`
	Status            string     `gorm:"size:20;not null;index:idx_alerts_status_created,priority:1"`
	Description       string     `gorm:"type:text"`
	AssignedOfficerID string     `gorm:"size:64;index"`
	Station           string     `gorm:"size:200"`
	Badge             string     `gorm:"size:50"`
	Jurisdiction      string     `gorm:"size:100;index"`
	AssignedAt        *time.Time ``
	AcknowledgedAt    *time.Time ``
	InProgressAt      *time.Time ``
	ResolvedAt        *time.Time ``
	EscalatedAt       *time.Time ``
	ClosedAt          *time.Time ``
	EscalatedBy       string     `gorm:"size:64"`
	EscalationReason  string     `gorm:"type:text"`
	CreatedAt         time.Time  `gorm:"autoCreateTime:false;index:idx_alerts_reporter_created,priority:2;index:idx_alerts_status_created,priority:2"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime:false"`
	Version           int64      `gorm:"not null;default:0"`
}

// TableName returns the table name for alert records.
func (alertRecord) TableName() string {
	return "alerts"
}

// recordingRecord is the persisted form of alert.Recording.
type recordingRecord struct {
	ID         string    `gorm:"primaryKey;size:36"`
	AlertID    string    `gorm:"size:36;not null;index:idx_recordings_alert_created,priority:1"`
	OwnerID    string    `gorm:"size:64;not null;index"`
	OwnerName  string    `gorm:"size:200;not null"`
	FileURL    string    `gorm:"size:500;not null"`
	MimeType   string    `gorm:"size:100"`
	Size       int64     `gorm:"not null;default:0"`
	DurationMs int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false;index:idx_recordings_alert_created,priority:2"`
}

// TableName returns the table name for recording records.
func (recordingRecord) TableName() string {
	return "voice_recordings"
}

// fromDomain converts the domain alert into its persisted form.
func fromDomain(a *alert.Alert) *alertRecord {
	return &alertRecord{
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
		AssignedAt:        utc(a.AssignedAt),
		AcknowledgedAt:    utc(a.AcknowledgedAt),
		InProgressAt:      utc(a.InProgressAt),
		ResolvedAt:        utc(a.ResolvedAt),
		EscalatedAt:       utc(a.EscalatedAt),
		ClosedAt:          utc(a.ClosedAt),
		EscalatedBy:       a.EscalatedBy,
		EscalationReason:  a.EscalationReason,
		CreatedAt:         a.CreatedAt.UTC(),
		UpdatedAt:         a.UpdatedAt.UTC(),
		Version:           a.Version,
	}
}

// toDomain converts a persisted record into the domain alert.
func (r *alertRecord) toDomain() *alert.Alert {
	return &alert.Alert{
		ID:                r.ID,
		ReporterID:        r.ReporterID,
		ReporterName:      r.ReporterName,
		Type:              alert.Type(r.Type),
		Location:          r.Location,
		Coordinates:       r.Coordinates,
		Priority:          alert.Priority(r.Priority),
		Status:            alert.Status(r.Status),
		Description:       r.Description,
		AssignedOfficerID: r.AssignedOfficerID,
		Station:           r.Station,
		Badge:             r.Badge,
		Jurisdiction:      r.Jurisdiction,
		AssignedAt:        utc(r.AssignedAt),
		AcknowledgedAt:    utc(r.AcknowledgedAt),
		InProgressAt:      utc(r.InProgressAt),
		ResolvedAt:        utc(r.ResolvedAt),
		EscalatedAt:       utc(r.EscalatedAt),
		ClosedAt:          utc(r.ClosedAt),
		EscalatedBy:       r.EscalatedBy,
		EscalationReason:  r.EscalationReason,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
		Version:           r.Version,
	}
}

func recordingFromDomain(rec *alert.Recording) *recordingRecord {
	return &recordingRecord{
		ID:         rec.ID,
		AlertID:    rec.AlertID,
		OwnerID:    rec.OwnerID,
		OwnerName:  rec.OwnerName,
		FileURL:    rec.FileURL,
		MimeType:   rec.MimeType,
		Size:       rec.Size,
		DurationMs: rec.DurationMs,
		CreatedAt:  rec.CreatedAt.UTC(),
	}
}

func (r *recordingRecord) toDomain() *alert.Recording {
	return &alert.Recording{
		ID:         r.ID,
		AlertID:    r.AlertID,
		OwnerID:    r.OwnerID,
		OwnerName:  r.OwnerName,
		FileURL:    r.FileURL,
		MimeType:   r.MimeType,
		Size:       r.Size,
		DurationMs: r.DurationMs,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	converted := t.UTC()

	return &converted
}
