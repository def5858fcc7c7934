// Package auth issues and validates bearer tokens and exposes the
// Gatekeeper that every HTTP request, gRPC call and websocket handshake
// passes through before it may act.
package auth
