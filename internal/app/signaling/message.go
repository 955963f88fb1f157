package signaling

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"

	"rtcsignal/internal/pkg/errs"
)

// Frame is the outbound wire envelope.
type Frame struct {
	Event EventName `json:"event"`
	Data  any       `json:"data,omitempty"`

	// From is the sender connection id on relayed signaling frames.
	From string `json:"from,omitempty"`
}

// PresencePayload is the data of user_joined and user_left.
type PresencePayload struct {
	Username  string `json:"username"`
	UserCount int    `json:"user_count"`
}

// ErrorPayload is the data of an error frame.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WelcomePayload is sent once when a connection is attached.
type WelcomePayload struct {
	ConnectionID string             `json:"connection_id"`
	ICEServers   []webrtc.ICEServer `json:"ice_servers"`
}

// PresenceEvent describes the notification produced by a join or leave.
type PresenceEvent struct {
	Event     EventName
	RoomID    string
	Username  string
	UserCount int
}

// Frame returns the wire frame broadcast for the presence change.
func (p PresenceEvent) Frame() Frame {
	return Frame{
		Event: p.Event,
		Data: PresencePayload{
			Username:  p.Username,
			UserCount: p.UserCount,
		},
	}
}

// encodeFrame marshals f once so it can be queued to many connections.
// A json.RawMessage Data is written byte for byte, and no string in the frame is
// HTML-escaped.
func encodeFrame(f Frame) ([]byte, error) {
	var buf bytes.Buffer

	raw, isRaw := f.Data.(json.RawMessage)
	if !isRaw || len(raw) == 0 {
		if err := writeJSON(&buf, f); err != nil {
			return nil, fmt.Errorf("failed to marshal %s frame: %w", f.Event, err)
		}
		return buf.Bytes(), nil
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("failed to marshal %s frame: payload is not valid JSON", f.Event)
	}

	buf.WriteString(`{"event":`)
	if err := writeJSON(&buf, f.Event); err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", f.Event, err)
	}

	buf.WriteString(`,"data":`)
	buf.Write(raw)

	if f.From != "" {
		buf.WriteString(`,"from":`)
		if err := writeJSON(&buf, f.From); err != nil {
			return nil, fmt.Errorf("failed to marshal %s frame: %w", f.Event, err)
		}
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// writeJSON appends v to buf without HTML escaping or the encoder's trailing newline.
func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)

	return nil
}

// errorFrame converts err into the error frame reported to the originating connection.
func errorFrame(err error) Frame {
	var customErr *errs.CustomError
	if !errors.As(err, &customErr) {
		customErr = errs.NewError(errs.ErrUnknown, err)
	}

	return Frame{
		Event: EventError,
		Data: ErrorPayload{
			Code:    customErr.Code,
			Message: customErr.Message,
		},
	}
}
