package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNewAlert_Defaults verifies manual and voice-origin defaults.
func TestNewAlert_Defaults(t *testing.T) {
	t.Parallel()

	now := time.Unix(100, 0).UTC()

	manual, err := NewAlert("a-1", NewAlertInput{ReporterID: "u1", Location: "Park"}, now)
	require.NoError(t, err)
	require.Equal(t, StatusActive, manual.Status)
	require.Equal(t, TypeManual, manual.Type)
	require.Equal(t, PriorityMedium, manual.Priority)
	require.Equal(t, now, manual.CreatedAt)

	voice, err := NewAlert("a-2", NewAlertInput{ReporterID: "u1", Voice: true}, now)
	require.NoError(t, err)
	require.Equal(t, TypeVoice, voice.Type)
	require.Equal(t, PriorityHigh, voice.Priority)
	require.Equal(t, UnknownLocation, voice.Location)

	explicit, err := NewAlert("a-3", NewAlertInput{
		ReporterID: "u1",
		Location:   "Bridge",
		Type:       TypeSuspicious,
		Priority:   PriorityCritical,
	}, now)
	require.NoError(t, err)
	require.Equal(t, TypeSuspicious, explicit.Type)
	require.Equal(t, PriorityCritical, explicit.Priority)
}

// TestNewAlert_Validation checks required fields and enum validation.
func TestNewAlert_Validation(t *testing.T) {
	t.Parallel()

	cases := map[string]NewAlertInput{
		"missing reporter": {Location: "x"},
		"missing location": {ReporterID: "u1"},
		"bad type":         {ReporterID: "u1", Location: "x", Type: "fire"},
		"bad priority":     {ReporterID: "u1", Location: "x", Priority: "urgent"},
	}

	for name, in := range cases {
		_, err := NewAlert("a-1", in, time.Now())
		require.ErrorIs(t, err, ErrInvalidPayload, name)
	}

	_, err := NewAlert("", NewAlertInput{ReporterID: "u1", Location: "x"}, time.Now())
	require.ErrorIs(t, err, ErrInvalidPayload)
}

// TestAlertClone verifies Clone deep-copies milestone pointers and handles nil.
func TestAlertClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Alert)(nil).Clone())

	ts := time.Now().UTC()
	a := &Alert{ID: "a-1", ResolvedAt: &ts}

	b := a.Clone()
	require.Equal(t, a, b)
	require.NotSame(t, a.ResolvedAt, b.ResolvedAt)
}

// TestParseRole verifies role parsing.
func TestParseRole(t *testing.T) {
	t.Parallel()

	role, err := ParseRole(" Police ")
	require.NoError(t, err)
	require.Equal(t, RolePolice, role)
	require.True(t, Principal{Role: role}.IsResponder())
	require.False(t, Principal{Role: RoleUser}.IsResponder())

	_, err = ParseRole("sheriff")
	require.ErrorIs(t, err, ErrInvalidPayload)
}
