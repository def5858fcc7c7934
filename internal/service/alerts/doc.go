// Package alerts implements the alert use cases shared by the HTTP, gRPC and
// websocket transports: creation, queries, lifecycle actions and voice uploads.
//
// Every operation receives the authenticated principal and applies the role
// rules before touching the store.
package alerts
