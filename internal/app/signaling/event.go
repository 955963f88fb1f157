/*
Package signaling implements the room membership and signaling relay core.

This file defines the inbound events as a tagged variant over the five event kinds and
decodes raw WebSocket frames into them.
*/
package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"

	"rtcsignal/internal/pkg/errs"
)

// EventName is the name carried in the "event" field of every frame.
type EventName string

// Inbound events.
const (
	EventJoin         EventName = "join"
	EventLeave        EventName = "leave"
	EventOffer        EventName = "offer"
	EventAnswer       EventName = "answer"
	EventICECandidate EventName = "ice-candidate"
)

// Outbound events.
const (
	EventUserJoined EventName = "user_joined"
	EventUserLeft   EventName = "user_left"
	EventWelcome    EventName = "welcome"
	EventError      EventName = "error"
)

// IsSignal reports whether n is one of the relayed signaling kinds.
func (n EventName) IsSignal() bool {
	return n == EventOffer || n == EventAnswer || n == EventICECandidate
}

// payloadField returns the data field that holds the opaque payload of a signaling kind.
func (n EventName) payloadField() string {
	if n == EventICECandidate {
		return "candidate"
	}
	return string(n)
}

// Event is one decoded inbound frame: a JoinEvent, LeaveEvent or SignalEvent.
type Event interface {
	Name() EventName
	Room() string
}

// JoinEvent asks to add Username to room RoomID and subscribe the connection to it.
type JoinEvent struct {
	RoomID   string
	Username string
}

func (JoinEvent) Name() EventName { return EventJoin }
func (e JoinEvent) Room() string  { return e.RoomID }

// LeaveEvent asks to remove Username from room RoomID and unsubscribe the connection.
type LeaveEvent struct {
	RoomID   string
	Username string
}

func (LeaveEvent) Name() EventName { return EventLeave }
func (e LeaveEvent) Room() string  { return e.RoomID }

// SignalEvent carries an offer, answer or ICE candidate for the other peers of a room.
type SignalEvent struct {
	Kind    EventName
	RoomID  string
	Payload json.RawMessage

	// To optionally narrows delivery to a single connection id in the room.
	To string
}

func (e SignalEvent) Name() EventName { return e.Kind }
func (e SignalEvent) Room() string    { return e.RoomID }

type inboundFrame struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type presenceData struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
}

type signalData struct {
	RoomID    string          `json:"room_id"`
	Offer     json.RawMessage `json:"offer"`
	Answer    json.RawMessage `json:"answer"`
	Candidate json.RawMessage `json:"candidate"`
	To        string          `json:"to"`
}

// DecodeEvent parses a raw frame into its typed event.
// It returns an ErrMalformedEvent error when the frame or a required field is invalid
// and an ErrUnsupportedEvent error for unknown event names.
func DecodeEvent(raw []byte) (Event, error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, malformed("invalid JSON frame")
	}

	if frame.Event == "" {
		return nil, malformed("missing event name")
	}

	switch frame.Event {
	case EventJoin, EventLeave:
		var data presenceData
		if err := unmarshalData(frame.Data, &data); err != nil {
			return nil, err
		}
		if data.RoomID == "" {
			return nil, malformed("missing room_id")
		}

		if frame.Event == EventJoin {
			return JoinEvent{RoomID: data.RoomID, Username: data.Username}, nil
		}
		return LeaveEvent{RoomID: data.RoomID, Username: data.Username}, nil

	case EventOffer, EventAnswer, EventICECandidate:
		var data signalData
		if err := unmarshalData(frame.Data, &data); err != nil {
			return nil, err
		}
		if data.RoomID == "" {
			return nil, malformed("missing room_id")
		}

		var payload json.RawMessage
		switch frame.Event {
		case EventOffer:
			payload = data.Offer
		case EventAnswer:
			payload = data.Answer
		default:
			payload = data.Candidate
		}
		if isAbsent(payload) {
			return nil, malformed("missing " + frame.Event.payloadField())
		}

		return SignalEvent{
			Kind:    frame.Event,
			RoomID:  data.RoomID,
			Payload: payload,
			To:      data.To,
		}, nil

	default:
		return nil, errs.NewError(errs.ErrUnsupportedEvent, string(frame.Event))
	}
}

func unmarshalData(data json.RawMessage, dst any) error {
	if isAbsent(data) {
		return malformed("missing data")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return malformed(fmt.Sprintf("invalid data: %v", err))
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func malformed(reason string) *errs.CustomError {
	return errs.NewError(errs.ErrMalformedEvent, reason)
}
