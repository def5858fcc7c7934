// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the alert service with call
// timeouts and bearer token propagation.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
