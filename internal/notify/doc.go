// Package notify forwards global relay events to Redis pub/sub so dashboards
// outside the server process can follow live-status and recording-saved
// signals.
package notify
