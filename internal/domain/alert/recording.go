package alert

import "time"

// Recording is an archived audio file attached to an alert.
type Recording struct {
	ID         string
	AlertID    string
	OwnerID    string
	OwnerName  string
	FileURL    string
	MimeType   string
	Size       int64
	DurationMs int64
	CreatedAt  time.Time
}
