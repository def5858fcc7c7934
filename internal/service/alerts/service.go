package alerts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/logger"
	repository "github.com/oshokin/safety-relay/internal/repository/alerts"
	"github.com/oshokin/safety-relay/internal/repository/recordings"
)

// JurisdictionAll disables the jurisdiction filter.
const JurisdictionAll = "all"

// DefaultRecordingURLPrefix is where recordings are served from.
const DefaultRecordingURLPrefix = "/api/recordings/"

// Repository is the alert store the service depends on.
type Repository interface {
	Create(ctx context.Context, a *alert.Alert) error
	Get(ctx context.Context, id string) (*alert.Alert, error)
	Update(ctx context.Context, a *alert.Alert) error
	List(ctx context.Context, filter repository.Filter) ([]*alert.Alert, error)
	Delete(ctx context.Context, id string) error
	SaveRecording(ctx context.Context, rec *alert.Recording) error
	Recordings(ctx context.Context, alertID string) ([]*alert.Recording, error)
}

// FileStore keeps the audio files of recordings.
type FileStore interface {
	Put(ctx context.Context, r io.Reader, ext string) (*recordings.Object, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Notifier is told when a new recording has been stored.
type Notifier interface {
	RecordingSaved(ctx context.Context, alertID string)
}

// Service coordinates the alert store, the lifecycle engine and the file store.
type Service struct {
	// repo persists alerts and recording metadata.
	repo Repository
	// files stores recording contents.
	files FileStore
	// notifier receives recording-saved hooks; optional.
	notifier Notifier
	// now is the injected clock.
	now func() time.Time
	// newID generates identifiers for alerts and recordings.
	newID func() string
	// urlPrefix is prepended to stored file names.
	urlPrefix string
}

// Option configures the service.
type Option func(*Service)

// WithNotifier sets the recording-saved hook.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithRecordingURLPrefix sets the public path prefix of recording files.
func WithRecordingURLPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.urlPrefix = prefix
		}
	}
}

// New creates the service.
func New(repo Repository, files FileStore, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		files:     files,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		urlPrefix: DefaultRecordingURLPrefix,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create raises a new alert reported by actor.
func (s *Service) Create(ctx context.Context, actor alert.Principal, in alert.NewAlertInput) (*alert.Alert, error) {
	in.ReporterID = actor.ID
	in.Voice = false

	created, err := alert.NewAlert(s.newID(), in, s.now())
	if err != nil {
		return nil, err
	}

	if err = s.repo.Create(ctx, created); err != nil {
		return nil, fmt.Errorf("save alert: %w", err)
	}

	logger.InfoKV(ctx, "Alert created",
		"alert_id", created.ID,
		"reporter", actor.String(),
		"type", created.Type,
		"priority", created.Priority)

	return created, nil
}

// Get returns one alert. Users may only read their own alerts.
func (s *Service) Get(ctx context.Context, actor alert.Principal, id string) (*alert.Alert, error) {
	found, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canView(actor, found) {
		return nil, alert.ErrForbidden
	}

	return found, nil
}

// List returns every alert. Responders only.
func (s *Service) List(ctx context.Context, actor alert.Principal) ([]*alert.Alert, error) {
	if !actor.IsResponder() {
		return nil, alert.ErrForbidden
	}

	return s.repo.List(ctx, repository.Filter{})
}

// ListByReporter returns the alerts raised by reporterID.
// Users may only list their own alerts.
func (s *Service) ListByReporter(ctx context.Context, actor alert.Principal, reporterID string) ([]*alert.Alert, error) {
	if !actor.IsResponder() && actor.ID != reporterID {
		return nil, alert.ErrForbidden
	}

	return s.repo.List(ctx, repository.Filter{ReporterID: reporterID})
}

// ListByJurisdiction returns alerts tagged with jurisdiction, or all alerts
// for JurisdictionAll. Responders only.
func (s *Service) ListByJurisdiction(ctx context.Context, actor alert.Principal, jurisdiction string) ([]*alert.Alert, error) {
	if !actor.IsResponder() {
		return nil, alert.ErrForbidden
	}

	filter := repository.Filter{}
	if !strings.EqualFold(jurisdiction, JurisdictionAll) {
		filter.Jurisdiction = jurisdiction
	}

	return s.repo.List(ctx, filter)
}

// ListAssigned returns alerts assigned to officerID.
// Police may only list their own assignments, admins anyone's.
func (s *Service) ListAssigned(ctx context.Context, actor alert.Principal, officerID string) ([]*alert.Alert, error) {
	switch {
	case actor.IsAdmin():
	case actor.Role == alert.RolePolice && actor.ID == officerID:
	default:
		return nil, alert.ErrForbidden
	}

	return s.repo.List(ctx, repository.Filter{OfficerID: officerID})
}

// Apply runs a lifecycle action against the stored alert and saves the result.
// A concurrent modification surfaces as alert.ErrConflict; nothing is retried.
func (s *Service) Apply(
	ctx context.Context,
	actor alert.Principal,
	id string,
	action alert.Action,
	payload alert.Payload,
) (*alert.Alert, error) {
	current, err := s.repo.Get(ctx, id)

	switch {
	case errors.Is(err, alert.ErrNotFound):
		// The engine reports missing alerts after the action and role checks.
		current = nil
	case err != nil:
		return nil, err
	}

	delta, err := alert.Transition(current, action, actor, payload, s.now())
	if err != nil {
		logger.DebugKV(ctx, "Action rejected", "alert_id", id, "action", action, "actor", actor.String(), "error", err)

		return nil, err
	}

	next := delta.Apply(current)

	if err = s.repo.Update(ctx, next); err != nil {
		if errors.Is(err, alert.ErrConflict) || errors.Is(err, alert.ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("save alert: %w", err)
	}

	logger.InfoKV(ctx, "Alert updated",
		"alert_id", next.ID,
		"action", action,
		"status", next.Status,
		"actor", actor.String(),
		"version", next.Version)

	return next, nil
}

// Delete removes an alert. Admins only.
func (s *Service) Delete(ctx context.Context, actor alert.Principal, id string) error {
	if !actor.IsAdmin() {
		return alert.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Alert deleted", "alert_id", id, "actor", actor.String())

	return nil
}

// CanJoin decides whether actor may listen to the live room of alertID.
// Responders may join any room, users only the rooms of their own alerts.
func (s *Service) CanJoin(ctx context.Context, actor alert.Principal, alertID string) error {
	if actor.IsResponder() {
		return nil
	}

	_, err := s.Get(ctx, actor, alertID)

	return err
}
