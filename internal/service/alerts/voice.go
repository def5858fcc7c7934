package alerts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/logger"
	"github.com/oshokin/safety-relay/internal/repository/recordings"
)

// DefaultVoiceDescription is used for voice alerts sent without a description.
const DefaultVoiceDescription = "Voice alert"

// audioExtensions maps accepted audio subtypes to file extensions.
var audioExtensions = map[string]string{
	"webm":  ".webm",
	"wav":   ".wav",
	"mp4":   ".m4a",
	"mpeg":  ".mp3",
	"ogg":   ".ogg",
	"3gpp":  ".3gp",
	"3gpp2": ".3g2",
}

// VoiceUpload is one recorded audio clip sent by a device.
type VoiceUpload struct {
	// AlertID attaches the clip to an existing alert. Empty raises a new voice alert.
	AlertID      string
	ReporterName string
	Location     string
	Coordinates  string
	Description  string
	MimeType     string
	DurationMs   int64
	Content      io.Reader
}

// AttachVoice stores an uploaded clip and records it against an alert. The
// recording is attributed to the alert's reporter, whoever uploaded it.
func (s *Service) AttachVoice(
	ctx context.Context,
	actor alert.Principal,
	upload VoiceUpload,
) (*alert.Alert, *alert.Recording, error) {
	mimeType, ext, err := ParseAudioType(upload.MimeType)
	if err != nil {
		return nil, nil, err
	}

	var target *alert.Alert

	if upload.AlertID != "" {
		if target, err = s.Get(ctx, actor, upload.AlertID); err != nil {
			return nil, nil, err
		}
	}

	obj, err := s.files.Put(ctx, upload.Content, ext)
	if err != nil {
		if errors.Is(err, recordings.ErrTooLarge) || errors.Is(err, recordings.ErrEmpty) {
			return nil, nil, fmt.Errorf("%w: %w", alert.ErrInvalidPayload, err)
		}

		return nil, nil, fmt.Errorf("store recording: %w", err)
	}

	now := s.now()

	if target == nil {
		description := upload.Description
		if strings.TrimSpace(description) == "" {
			description = DefaultVoiceDescription
		}

		target, err = alert.NewAlert(s.newID(), alert.NewAlertInput{
			ReporterID:   actor.ID,
			ReporterName: upload.ReporterName,
			Location:     upload.Location,
			Coordinates:  upload.Coordinates,
			Description:  description,
			Voice:        true,
		}, now)
		if err != nil {
			return nil, nil, err
		}

		if err = s.repo.Create(ctx, target); err != nil {
			return nil, nil, fmt.Errorf("save alert: %w", err)
		}

		logger.InfoKV(ctx, "Voice alert created", "alert_id", target.ID, "reporter", actor.String())
	}

	rec := &alert.Recording{
		ID:         s.newID(),
		AlertID:    target.ID,
		OwnerID:    target.ReporterID,
		OwnerName:  target.ReporterName,
		FileURL:    s.urlPrefix + obj.Name,
		MimeType:   mimeType,
		Size:       obj.Size,
		DurationMs: max(upload.DurationMs, 0),
		CreatedAt:  now,
	}

	if err = s.repo.SaveRecording(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("save recording: %w", err)
	}

	logger.InfoKV(ctx, "Recording saved",
		"alert_id", target.ID,
		"recording_id", rec.ID,
		"file", obj.Name,
		"size", obj.Size)

	if s.notifier != nil {
		s.notifier.RecordingSaved(ctx, target.ID)
	}

	return target, rec, nil
}

// Recordings lists the clips of an alert visible to actor.
func (s *Service) Recordings(ctx context.Context, actor alert.Principal, alertID string) ([]*alert.Recording, error) {
	if _, err := s.Get(ctx, actor, alertID); err != nil {
		return nil, err
	}

	return s.repo.Recordings(ctx, alertID)
}

// OpenRecording streams a stored clip. Responders only.
func (s *Service) OpenRecording(ctx context.Context, actor alert.Principal, name string) (io.ReadCloser, error) {
	if !actor.IsResponder() {
		return nil, alert.ErrForbidden
	}

	file, err := s.files.Open(ctx, name)
	if err != nil {
		if errors.Is(err, recordings.ErrNotFound) || errors.Is(err, recordings.ErrInvalidName) {
			return nil, alert.ErrNotFound
		}

		return nil, fmt.Errorf("open recording: %w", err)
	}

	return file, nil
}

// ParseAudioType validates an upload content type and returns the bare mime
// type with its file extension. Parameters such as codecs are dropped.
func ParseAudioType(contentType string) (string, string, error) {
	mimeType, _, _ := strings.Cut(contentType, ";")
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	subtype, ok := strings.CutPrefix(mimeType, "audio/")
	if !ok {
		return "", "", fmt.Errorf("%w: only audio files are allowed, got %q", alert.ErrInvalidPayload, contentType)
	}

	ext, ok := audioExtensions[subtype]
	if !ok {
		return "", "", fmt.Errorf("%w: unsupported audio type %q", alert.ErrInvalidPayload, contentType)
	}

	return mimeType, ext, nil
}

func canView(actor alert.Principal, a *alert.Alert) bool {
	return actor.IsResponder() || a.ReporterID == actor.ID
}
