package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	officerOne = Principal{ID: "o1", Role: RolePolice}
	officerTwo = Principal{ID: "o2", Role: RolePolice}
	admin      = Principal{ID: "adm", Role: RoleAdmin}
	citizen    = Principal{ID: "u1", Role: RoleUser}
)

func activeAlert(t *testing.T) *Alert {
	t.Helper()

	a, err := NewAlert("a-1", NewAlertInput{ReporterID: citizen.ID, Location: "Main St"}, time.Unix(1000, 0).UTC())
	require.NoError(t, err)

	return a
}

// apply runs Transition and Apply, failing the test on rejection.
func apply(t *testing.T, a *Alert, action Action, actor Principal, payload Payload, now time.Time) *Alert {
	t.Helper()

	delta, err := Transition(a, action, actor, payload, now)
	require.NoError(t, err)

	return delta.Apply(a)
}

// TestTransition_UserIsForbidden ensures a user-role actor is rejected for every action without a delta.
func TestTransition_UserIsForbidden(t *testing.T) {
	t.Parallel()

	a := activeAlert(t)
	before := a.Clone()

	for _, action := range []Action{ActionAssign, ActionAcknowledge, ActionInProgress, ActionResolve, ActionEscalate} {
		delta, err := Transition(a, action, citizen, Payload{}, time.Now())
		require.ErrorIs(t, err, ErrForbidden, action)
		require.Nil(t, delta)
	}

	require.Equal(t, before, a)
}

// TestTransition_InvalidActionRegardlessOfRole ensures unknown actions are rejected before role checks.
func TestTransition_InvalidActionRegardlessOfRole(t *testing.T) {
	t.Parallel()

	a := activeAlert(t)

	for _, actor := range []Principal{citizen, officerOne, admin} {
		for _, action := range []Action{"close", "", "ASSIGN", "delete"} {
			delta, err := Transition(a, action, actor, Payload{}, time.Now())
			require.ErrorIs(t, err, ErrInvalidAction)
			require.Nil(t, delta)
		}
	}
}

// TestTransition_NotFound ensures a missing alert yields ErrNotFound for responders.
func TestTransition_NotFound(t *testing.T) {
	t.Parallel()

	delta, err := Transition(nil, ActionResolve, officerOne, Payload{}, time.Now())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, delta)
}

// TestTransition_MilestonesAreWriteOnce replays every action and checks timestamps keep their first value.
func TestTransition_MilestonesAreWriteOnce(t *testing.T) {
	t.Parallel()

	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	cases := []struct {
		action Action
		field  func(*Alert) *time.Time
	}{
		{ActionAssign, func(a *Alert) *time.Time { return a.AssignedAt }},
		{ActionAcknowledge, func(a *Alert) *time.Time { return a.AcknowledgedAt }},
		{ActionInProgress, func(a *Alert) *time.Time { return a.InProgressAt }},
		{ActionResolve, func(a *Alert) *time.Time { return a.ResolvedAt }},
		{ActionEscalate, func(a *Alert) *time.Time { return a.EscalatedAt }},
	}

	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			t.Parallel()

			a := apply(t, activeAlert(t), tc.action, officerOne, Payload{}, first)
			require.NotNil(t, tc.field(a))
			require.Equal(t, first, *tc.field(a))

			delta, err := Transition(a, tc.action, officerTwo, Payload{}, later)
			require.NoError(t, err)

			replayed := delta.Apply(a)
			require.Equal(t, first, *tc.field(replayed))
			require.Equal(t, later, replayed.UpdatedAt)
		})
	}
}

// TestTransition_AcknowledgeAutoClaims covers both branches of the acknowledge auto-claim.
func TestTransition_AcknowledgeAutoClaims(t *testing.T) {
	t.Parallel()

	now := time.Unix(2000, 0).UTC()

	unassigned := apply(t, activeAlert(t), ActionAcknowledge, officerTwo, Payload{}, now)
	require.Equal(t, StatusAcknowledged, unassigned.Status)
	require.Equal(t, officerTwo.ID, unassigned.AssignedOfficerID)

	assigned := apply(t, activeAlert(t), ActionAssign, officerOne, Payload{}, now)
	acknowledged := apply(t, assigned, ActionAcknowledge, officerTwo, Payload{}, now)
	require.Equal(t, officerOne.ID, acknowledged.AssignedOfficerID)
}

// TestTransition_AssignPayload checks the assignee default and descriptive fields.
func TestTransition_AssignPayload(t *testing.T) {
	t.Parallel()

	now := time.Unix(3000, 0).UTC()

	self := apply(t, activeAlert(t), ActionAssign, officerOne, Payload{Station: "Central", Badge: "B-7"}, now)
	require.Equal(t, StatusAssigned, self.Status)
	require.Equal(t, officerOne.ID, self.AssignedOfficerID)
	require.Equal(t, "Central", self.Station)
	require.Equal(t, "B-7", self.Badge)
	require.Empty(t, self.Jurisdiction)

	delegated := apply(t, self, ActionAssign, admin, Payload{OfficerID: officerTwo.ID, Jurisdiction: "North"}, now.Add(time.Minute))
	require.Equal(t, officerTwo.ID, delegated.AssignedOfficerID)
	require.Equal(t, "Central", delegated.Station)
	require.Equal(t, "North", delegated.Jurisdiction)
	require.Equal(t, now, *delegated.AssignedAt)
}

// TestTransition_EscalateRecordsActor ensures escalate attributes the escalation.
func TestTransition_EscalateRecordsActor(t *testing.T) {
	t.Parallel()

	a := apply(t, activeAlert(t), ActionEscalate, admin, Payload{Reason: "no response"}, time.Unix(10, 0))
	require.Equal(t, StatusEscalated, a.Status)
	require.Equal(t, admin.ID, a.EscalatedBy)
	require.Equal(t, "no response", a.EscalationReason)
}

// TestDelta_ApplyDoesNotMutateInput ensures Apply works on a copy.
func TestDelta_ApplyDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	a := activeAlert(t)
	before := a.Clone()

	delta, err := Transition(a, ActionResolve, officerOne, Payload{}, time.Unix(50, 0))
	require.NoError(t, err)

	next := delta.Apply(a)
	require.Equal(t, before, a)
	require.Equal(t, StatusResolved, next.Status)
	require.NotSame(t, a, next)
}

// TestTransition_Deterministic ensures identical inputs yield identical decisions.
func TestTransition_Deterministic(t *testing.T) {
	t.Parallel()

	a := activeAlert(t)
	now := time.Unix(77, 0)

	first, err := Transition(a, ActionAssign, officerOne, Payload{Station: "S"}, now)
	require.NoError(t, err)

	second, err := Transition(a, ActionAssign, officerOne, Payload{Station: "S"}, now)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

// TestLifecycle_EndToEnd walks an alert from creation to resolution and checks a late user escalation.
func TestLifecycle_EndToEnd(t *testing.T) {
	t.Parallel()

	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		clock = clock.Add(time.Minute)

		return clock
	}

	a := activeAlert(t)
	require.Equal(t, StatusActive, a.Status)

	a = apply(t, a, ActionAssign, officerOne, Payload{}, tick())
	require.Equal(t, StatusAssigned, a.Status)
	require.Equal(t, officerOne.ID, a.AssignedOfficerID)
	require.NotNil(t, a.AssignedAt)

	a = apply(t, a, ActionAcknowledge, officerOne, Payload{}, tick())
	require.Equal(t, StatusAcknowledged, a.Status)
	require.Equal(t, officerOne.ID, a.AssignedOfficerID)

	a = apply(t, a, ActionResolve, officerOne, Payload{}, tick())
	require.Equal(t, StatusResolved, a.Status)

	delta, err := Transition(a, ActionEscalate, citizen, Payload{}, tick())
	require.ErrorIs(t, err, ErrForbidden)
	require.Nil(t, delta)
	require.Equal(t, StatusResolved, a.Status)
}
