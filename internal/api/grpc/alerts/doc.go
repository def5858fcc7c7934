// Package alerts implements the gRPC transport for the alert service.
//
// Messages are google.protobuf.Struct values so the service needs no
// generated code; the descriptor in service.go plays the role of the
// generated registration and client stubs.
package alerts
