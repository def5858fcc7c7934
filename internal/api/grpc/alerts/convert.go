package alerts

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safety-relay/internal/domain/alert"
)

// Request field names.
const (
	FieldAlertID      = "alertId"
	FieldAction       = "action"
	FieldPayload      = "payload"
	FieldReporterID   = "reporterId"
	FieldOfficerID    = "officerId"
	FieldJurisdiction = "jurisdiction"
	FieldAlerts       = "alerts"
)

// stringField returns a string field of s, or "" when absent.
func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

// toPayload reads the optional action payload.
func toPayload(s *structpb.Struct) alert.Payload {
	payload := s.GetFields()[FieldPayload].GetStructValue()

	return alert.Payload{
		OfficerID:    stringField(payload, "assignedOfficerId"),
		Station:      stringField(payload, "station"),
		Badge:        stringField(payload, "badge"),
		Jurisdiction: stringField(payload, "jurisdiction"),
		Reason:       stringField(payload, "reason"),
	}
}

// alertFields renders an alert as Struct fields. Empty optional fields are omitted.
func alertFields(a *alert.Alert) map[string]any {
	fields := map[string]any{
		"id":           a.ID,
		"reporterId":   a.ReporterID,
		"reporterName": a.ReporterName,
		"type":         string(a.Type),
		"location":     a.Location,
		"priority":     string(a.Priority),
		"status":       string(a.Status),
		"createdAt":    a.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt":    a.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"version":      a.Version,
	}

	optionalStrings := map[string]string{
		"coordinates":       a.Coordinates,
		"description":       a.Description,
		"assignedOfficerId": a.AssignedOfficerID,
		"station":           a.Station,
		"badge":             a.Badge,
		"jurisdiction":      a.Jurisdiction,
		"escalatedBy":       a.EscalatedBy,
		"escalationReason":  a.EscalationReason,
	}

	for name, value := range optionalStrings {
		if value != "" {
			fields[name] = value
		}
	}

	milestones := map[string]*time.Time{
		"assignedAt":     a.AssignedAt,
		"acknowledgedAt": a.AcknowledgedAt,
		"inProgressAt":   a.InProgressAt,
		"resolvedAt":     a.ResolvedAt,
		"escalatedAt":    a.EscalatedAt,
		"closedAt":       a.ClosedAt,
	}

	for name, value := range milestones {
		if value != nil {
			fields[name] = value.UTC().Format(time.RFC3339Nano)
		}
	}

	return fields
}

// toAlertStruct converts an alert into a Struct message.
func toAlertStruct(a *alert.Alert) (*structpb.Struct, error) {
	return structpb.NewStruct(alertFields(a))
}

// toAlertListStruct converts alerts into {"alerts": [...]}.
func toAlertListStruct(alerts []*alert.Alert) (*structpb.Struct, error) {
	items := make([]any, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, alertFields(a))
	}

	return structpb.NewStruct(map[string]any{FieldAlerts: items})
}
