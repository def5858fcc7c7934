// Package alerts implements the HTTP transport for the alert service on top
// of fiber.
//
// Handlers translate requests into service calls and map domain errors to
// status codes in one place, ErrorHandler.
package alerts
