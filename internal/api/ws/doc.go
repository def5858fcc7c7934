// Package ws implements the real-time websocket transport of the relay hub.
//
// The handshake is authenticated once, before upgrade, with a bearer token
// from the Authorization header or the token query parameter. Clients speak
// JSON text frames by default; ?format=cbor switches outbound frames to CBOR
// binary frames so audio chunks travel without base64 overhead. Inbound
// frames are decoded by their websocket message type, so a client may mix
// both encodings.
package ws
