package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/logger"
)

// AlertGetter fetches one alert from the server.
type AlertGetter interface {
	GetAlert(ctx context.Context, alertID string) (*structpb.Struct, error)
}

// Options controls the checker polling behavior.
type Options struct {
	// AlertID is the alert being watched.
	AlertID string
	// Until is the status that ends the wait. Empty waits for resolved.
	Until alert.Status
	// PollInterval defines the interval between alert checks.
	PollInterval time.Duration
}

// DefaultPollInterval defines the polling interval when none is set.
const DefaultPollInterval = 5 * time.Second

var (
	// errAlertIDRequired is returned when no alert id is given.
	errAlertIDRequired = errors.New("alert id must be provided")
	// errUnknownStatus is returned for an unrecognized target status.
	errUnknownStatus = errors.New("unknown alert status")
)

// Run polls the alert until it reaches the target status and returns the
// final snapshot. Transient failures are logged and retried; ctx cancellation
// ends the wait with ctx's error.
func Run(ctx context.Context, getter AlertGetter, opts Options) (*structpb.Struct, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alert-checker")

	if opts.AlertID == "" {
		return nil, errAlertIDRequired
	}

	if opts.Until == "" {
		opts.Until = alert.StatusResolved
	}

	if !opts.Until.Valid() {
		return nil, fmt.Errorf("%w: %q", errUnknownStatus, opts.Until)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	logger.InfoKV(ctx, "Polling alert status",
		"alert_id", opts.AlertID,
		"until", opts.Until,
		"interval", opts.PollInterval.String())

	var last alert.Status

	// check returns the snapshot once the target is reached, nil otherwise.
	check := func() *structpb.Struct {
		snapshot, err := getter.GetAlert(ctx, opts.AlertID)
		if err != nil {
			logger.ErrorKV(ctx, "Check alert failed", "alert_id", opts.AlertID, "error", err)

			return nil
		}

		current := alert.Status(snapshot.GetFields()["status"].GetStringValue())
		if current != last {
			logger.InfoKV(ctx, "Alert status", "alert_id", opts.AlertID, "status", current)
			last = current
		}

		if current != opts.Until {
			return nil
		}

		return snapshot
	}

	// Check immediately before starting the polling loop.
	if snapshot := check(); snapshot != nil {
		return snapshot, nil
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil, ctx.Err()
		case <-ticker.C:
			if snapshot := check(); snapshot != nil {
				return snapshot, nil
			}
		}
	}
}
