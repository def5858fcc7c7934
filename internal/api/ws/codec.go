package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/gofiber/contrib/websocket"

	"github.com/oshokin/safety-relay/internal/relay"
)

// Format selects the outbound frame encoding.
type Format string

// Supported frame encodings.
const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// Inbound event types.
const (
	TypeJoinAlert  = "join-alert"
	TypeLeaveAlert = "leave-alert"
	TypeAudioStart = "audio-start"
	TypeAudioChunk = "audio-chunk"
	TypeAudioEnd   = "audio-end"
)

// TypeError is the outbound event type for rejected requests.
const TypeError = "error"

// errUnsupportedFrame is returned for control or unknown websocket frames.
var errUnsupportedFrame = errors.New("unsupported frame type")

// Message is one inbound client event.
type Message struct {
	Type     string `json:"type"               cbor:"type"`
	AlertID  string `json:"alertId,omitempty"  cbor:"alertId,omitempty"`
	MimeType string `json:"mimeType,omitempty" cbor:"mimeType,omitempty"`
	Chunk    []byte `json:"chunk,omitempty"    cbor:"chunk,omitempty"`
}

// Frame is one outbound event as seen by clients.
type Frame struct {
	Type     string `json:"type"               cbor:"type"`
	AlertID  string `json:"alertId,omitempty"  cbor:"alertId,omitempty"`
	MimeType string `json:"mimeType,omitempty" cbor:"mimeType,omitempty"`
	Chunk    []byte `json:"chunk,omitempty"    cbor:"chunk,omitempty"`
	// IsLive is set on live-status frames only.
	IsLive  *bool  `json:"isLive,omitempty"  cbor:"isLive,omitempty"`
	Message string `json:"message,omitempty" cbor:"message,omitempty"`
}

var (
	// encMode writes deterministic CBOR so equal frames produce equal bytes.
	encMode cbor.EncMode
	// decMode ignores unknown fields for forward compatibility.
	decMode cbor.DecMode
)

func init() { //nolint:gochecknoinits // Codec modes are fixed for the process lifetime.
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ws: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("ws: CBOR decoder initialization failed: " + err.Error())
	}
}

// ParseFormat maps the format query parameter to a Format. Unknown values
// fall back to JSON.
func ParseFormat(value string) Format {
	if Format(value) == FormatCBOR {
		return FormatCBOR
	}

	return FormatJSON
}

// FrameFromEvent converts a hub event into its wire form.
func FrameFromEvent(ev relay.Event) Frame {
	frame := Frame{
		Type:     string(ev.Type),
		AlertID:  ev.AlertID,
		MimeType: ev.MimeType,
		Chunk:    ev.Chunk,
	}

	if ev.Type == relay.EventLiveStatus {
		isLive := ev.IsLive
		frame.IsLive = &isLive
	}

	return frame
}

// ErrorFrame builds an error event.
func ErrorFrame(alertID, message string) Frame {
	return Frame{Type: TypeError, AlertID: alertID, Message: message}
}

// Encode serializes f and returns the websocket message type to send it with.
func Encode(format Format, f Frame) (int, []byte, error) {
	if format == FormatCBOR {
		data, err := encMode.Marshal(f)
		if err != nil {
			return 0, nil, fmt.Errorf("encode cbor frame: %w", err)
		}

		return websocket.BinaryMessage, data, nil
	}

	data, err := json.Marshal(f)
	if err != nil {
		return 0, nil, fmt.Errorf("encode json frame: %w", err)
	}

	return websocket.TextMessage, data, nil
}

// Decode parses an inbound frame according to its websocket message type.
func Decode(messageType int, data []byte) (Message, error) {
	var msg Message

	switch messageType {
	case websocket.TextMessage:
		if err := json.Unmarshal(data, &msg); err != nil {
			return Message{}, fmt.Errorf("decode json frame: %w", err)
		}
	case websocket.BinaryMessage:
		if err := decMode.Unmarshal(data, &msg); err != nil {
			return Message{}, fmt.Errorf("decode cbor frame: %w", err)
		}
	default:
		return Message{}, errUnsupportedFrame
	}

	return msg, nil
}
