package alerts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/domain/alert"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	ctx := context.Background()

	db, err := Open(ctx, config.Store{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "alerts.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, Close(db))
	})

	return New(db)
}

func newTestAlert(t *testing.T, id, reporter string, createdAt time.Time) *alert.Alert {
	t.Helper()

	a, err := alert.NewAlert(id, alert.NewAlertInput{
		ReporterID:   reporter,
		ReporterName: "Reporter " + reporter,
		Location:     "Main St 1",
	}, createdAt)
	require.NoError(t, err)

	return a
}

func TestRepositoryCreateGet(t *testing.T) {
	t.Parallel()

	var (
		ctx   = context.Background()
		repo  = newTestRepository(t)
		now   = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		input = newTestAlert(t, "a-1", "u-1", now)
	)

	require.NoError(t, repo.Create(ctx, input))

	got, err := repo.Get(ctx, "a-1")
	require.NoError(t, err)
	require.Equal(t, input, got)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, alert.ErrNotFound)
}

func TestRepositoryUpdateAdvancesVersion(t *testing.T) {
	t.Parallel()

	var (
		ctx     = context.Background()
		repo    = newTestRepository(t)
		created = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		later   = created.Add(time.Minute)
		officer = alert.Principal{ID: "p-1", Role: alert.RolePolice}
	)

	require.NoError(t, repo.Create(ctx, newTestAlert(t, "a-1", "u-1", created)))

	current, err := repo.Get(ctx, "a-1")
	require.NoError(t, err)

	delta, err := alert.Transition(current, alert.ActionAcknowledge, officer, alert.Payload{}, later)
	require.NoError(t, err)

	updated := delta.Apply(current)
	require.NoError(t, repo.Update(ctx, updated))
	require.Equal(t, int64(1), updated.Version)

	stored, err := repo.Get(ctx, "a-1")
	require.NoError(t, err)
	require.Equal(t, alert.StatusAcknowledged, stored.Status)
	require.Equal(t, "p-1", stored.AssignedOfficerID)
	require.NotNil(t, stored.AcknowledgedAt)
	require.True(t, stored.AcknowledgedAt.Equal(later))
	require.True(t, stored.UpdatedAt.Equal(later))
	require.True(t, stored.CreatedAt.Equal(created))
	require.Equal(t, int64(1), stored.Version)
}

func TestRepositoryUpdateConflict(t *testing.T) {
	t.Parallel()

	var (
		ctx  = context.Background()
		repo = newTestRepository(t)
		now  = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	)

	require.NoError(t, repo.Create(ctx, newTestAlert(t, "a-1", "u-1", now)))

	first, err := repo.Get(ctx, "a-1")
	require.NoError(t, err)

	second, err := repo.Get(ctx, "a-1")
	require.NoError(t, err)

	first.Status = alert.StatusResolved
	require.NoError(t, repo.Update(ctx, first))

	second.Status = alert.StatusEscalated
	require.ErrorIs(t, repo.Update(ctx, second), alert.ErrConflict)

	stored, err := repo.Get(ctx, "a-1")
	require.NoError(t, err)
	require.Equal(t, alert.StatusResolved, stored.Status)

	ghost := newTestAlert(t, "ghost", "u-1", now)
	require.ErrorIs(t, repo.Update(ctx, ghost), alert.ErrNotFound)
}

func TestRepositoryList(t *testing.T) {
	t.Parallel()

	var (
		ctx  = context.Background()
		repo = newTestRepository(t)
		base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	)

	first := newTestAlert(t, "a-1", "u-1", base)
	first.Jurisdiction = "north"
	first.AssignedOfficerID = "p-1"

	second := newTestAlert(t, "a-2", "u-2", base.Add(time.Minute))
	second.Jurisdiction = "south"

	third := newTestAlert(t, "a-3", "u-1", base.Add(2*time.Minute))
	third.Jurisdiction = "north"
	third.Status = alert.StatusResolved

	for _, a := range []*alert.Alert{first, second, third} {
		require.NoError(t, repo.Create(ctx, a))
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "all newest first", filter: Filter{}, want: []string{"a-3", "a-2", "a-1"}},
		{name: "by reporter", filter: Filter{ReporterID: "u-1"}, want: []string{"a-3", "a-1"}},
		{name: "by officer", filter: Filter{OfficerID: "p-1"}, want: []string{"a-1"}},
		{name: "by jurisdiction", filter: Filter{Jurisdiction: "north"}, want: []string{"a-3", "a-1"}},
		{name: "by status", filter: Filter{Status: alert.StatusActive}, want: []string{"a-2", "a-1"}},
		{name: "limit", filter: Filter{Limit: 1}, want: []string{"a-3"}},
		{name: "no match", filter: Filter{ReporterID: "nobody"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, a := range got {
				ids = append(ids, a.ID)
			}

			require.Equal(t, tt.want, ids)
		})
	}
}

func TestRepositoryDelete(t *testing.T) {
	t.Parallel()

	var (
		ctx  = context.Background()
		repo = newTestRepository(t)
		now  = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	)

	require.NoError(t, repo.Create(ctx, newTestAlert(t, "a-1", "u-1", now)))
	require.NoError(t, repo.Delete(ctx, "a-1"))
	require.ErrorIs(t, repo.Delete(ctx, "a-1"), alert.ErrNotFound)

	_, err := repo.Get(ctx, "a-1")
	require.ErrorIs(t, err, alert.ErrNotFound)
}

func TestRepositoryRecordings(t *testing.T) {
	t.Parallel()

	var (
		ctx  = context.Background()
		repo = newTestRepository(t)
		now  = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	)

	older := &alert.Recording{
		ID:        "r-1",
		AlertID:   "a-1",
		OwnerID:   "u-1",
		OwnerName: "Reporter",
		FileURL:   "/uploads/voice/one.webm",
		MimeType:  "audio/webm",
		Size:      128,
		CreatedAt: now,
	}

	newer := &alert.Recording{
		ID:         "r-2",
		AlertID:    "a-1",
		OwnerID:    "u-1",
		OwnerName:  "Reporter",
		FileURL:    "/uploads/voice/two.webm",
		MimeType:   "audio/webm",
		Size:       256,
		DurationMs: 1500,
		CreatedAt:  now.Add(time.Second),
	}

	require.NoError(t, repo.SaveRecording(ctx, older))
	require.NoError(t, repo.SaveRecording(ctx, newer))

	got, err := repo.Recordings(ctx, "a-1")
	require.NoError(t, err)
	require.Equal(t, []*alert.Recording{newer, older}, got)

	none, err := repo.Recordings(ctx, "a-2")
	require.NoError(t, err)
	require.Empty(t, none)
}
