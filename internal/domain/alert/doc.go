// Package alert contains the core domain types for safety alerts and the
// lifecycle engine that decides which status transitions are allowed.
//
// Transition is pure: it never reads the wall clock or touches storage.
// Callers load the current alert, ask Transition for a Delta, persist the
// result of Delta.Apply and only then publish side effects.
package alert
