// Package client implements the safetyctl commands.
//
// Commands connect to the safety server over gRPC with a bearer token, either
// supplied by the operator or minted from the shared signing secret, and print
// responses as JSON. Watch follows live-status events over Redis.
package client
