package alerts

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/oshokin/safety-relay/internal/domain/alert"
)

// Filter narrows List results. Empty fields do not filter.
type Filter struct {
	ReporterID   string
	OfficerID    string
	Jurisdiction string
	Status       alert.Status
	Limit        int
}

// Repository persists alerts and their voice recordings.
type Repository struct {
	db *gorm.DB
}

// New creates a repository backed by db.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new alert.
func (r *Repository) Create(ctx context.Context, a *alert.Alert) error {
	if err := r.db.WithContext(ctx).Create(fromDomain(a)).Error; err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	return nil
}

// Get loads the alert with the given id.
func (r *Repository) Get(ctx context.Context, id string) (*alert.Alert, error) {
	var rec alertRecord

	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, alert.ErrNotFound
		}

		return nil, fmt.Errorf("load alert: %w", err)
	}

	return rec.toDomain(), nil
}

// Update saves a modified alert when its version still matches the stored one.
// On success a.Version is advanced.
func (r *Repository) Update(ctx context.Context, a *alert.Alert) error {
	var (
		expected = a.Version
		rec      = fromDomain(a)
	)

	rec.Version = expected + 1

	result := r.db.WithContext(ctx).
		Model(&alertRecord{ID: a.ID}).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "reporter_id", "created_at").
		Updates(rec)
	if result.Error != nil {
		return fmt.Errorf("update alert: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(new(alertRecord)).Where("id = ?", a.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("check alert: %w", err)
		}

		if count == 0 {
			return alert.ErrNotFound
		}

		return alert.ErrConflict
	}

	a.Version = rec.Version

	return nil
}

// List returns alerts matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]*alert.Alert, error) {
	query := r.db.WithContext(ctx).Model(new(alertRecord))

	if filter.ReporterID != "" {
		query = query.Where("reporter_id = ?", filter.ReporterID)
	}

	if filter.OfficerID != "" {
		query = query.Where("assigned_officer_id = ?", filter.OfficerID)
	}

	if filter.Jurisdiction != "" {
		query = query.Where("jurisdiction = ?", filter.Jurisdiction)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []alertRecord
	if err := query.Order("created_at DESC").Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	result := make([]*alert.Alert, 0, len(records))
	for i := range records {
		result = append(result, records[i].toDomain())
	}

	return result, nil
}

// Delete removes the alert. Its recordings are kept for audit.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(alertRecord))
	if result.Error != nil {
		return fmt.Errorf("delete alert: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return alert.ErrNotFound
	}

	return nil
}

// SaveRecording stores recording metadata.
func (r *Repository) SaveRecording(ctx context.Context, rec *alert.Recording) error {
	if err := r.db.WithContext(ctx).Create(recordingFromDomain(rec)).Error; err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}

	return nil
}

// Recordings lists the recordings of an alert, newest first.
func (r *Repository) Recordings(ctx context.Context, alertID string) ([]*alert.Recording, error) {
	var records []recordingRecord

	err := r.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order("created_at DESC").
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}

	result := make([]*alert.Recording, 0, len(records))
	for i := range records {
		result = append(result, records[i].toDomain())
	}

	return result, nil
}
