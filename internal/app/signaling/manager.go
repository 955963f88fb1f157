/*
Package signaling implements the room membership and signaling relay core.

This file defines the Manager, which owns the Room Directory and Connection Registry,
applies join and leave events atomically per room, and fans presence notifications out
to each room's subscribers.
*/
package signaling

import (
	"sort"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"rtcsignal/internal/app/user"
	"rtcsignal/internal/pkg/errs"
	"rtcsignal/internal/pkg/logx"
	"rtcsignal/internal/pkg/metrics"
)

// Options configures a Manager.
type Options struct {
	// ImplicitLeaveOnDisconnect turns a transport disconnect into a leave for every
	// room the connection had joined.
	ImplicitLeaveOnDisconnect bool

	// MaxUsernameLength rejects longer usernames when positive.
	MaxUsernameLength int

	// ICEServers is advertised to each connection in its welcome frame.
	ICEServers []webrtc.ICEServer
}

// RoomSnapshot is a consistent view of one room.
type RoomSnapshot struct {
	RoomID      string   `json:"roomId"`
	Members     []string `json:"members"`
	UserCount   int      `json:"userCount"`
	Connections int      `json:"connections"`
}

// Manager coordinates room membership and relaying for one server process.
type Manager struct {
	directory *Directory
	registry  *Registry
	locks     *roomLocks

	opts    Options
	metrics *metrics.Metrics

	// structured logger with Manager context.
	logger zerolog.Logger
}

// NewManager constructs a Manager with empty state. m may be nil.
func NewManager(opts Options, m *metrics.Metrics) *Manager {
	return &Manager{
		directory: NewDirectory(),
		registry:  NewRegistry(),
		locks:     newRoomLocks(),
		opts:      opts,
		metrics:   m,
		logger:    logx.Component("Manager"),
	}
}

// Directory exposes the room directory for read-only inspection.
func (m *Manager) Directory() *Directory {
	return m.directory
}

// Registry exposes the connection registry for read-only inspection.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Connect attaches a new transport connection and sends it the welcome frame.
func (m *Manager) Connect(peer Peer) {
	if m.registry.Attach(peer) {
		m.metrics.ConnectionOpened()
	}

	m.deliver(peer, Frame{
		Event: EventWelcome,
		Data: WelcomePayload{
			ConnectionID: peer.ID(),
			ICEServers:   m.opts.ICEServers,
		},
	})

	m.logger.Debug().Str("conn_id", peer.ID()).Msg("Connection attached.")
}

// Handle decodes one raw inbound frame from peer and applies it.
// Invalid frames are reported back to peer only and leave all state untouched.
func (m *Manager) Handle(peer Peer, raw []byte) error {
	event, err := DecodeEvent(raw)
	if err != nil {
		reason := metrics.ReasonMalformed
		if errs.HasCode(err, errs.ErrUnsupportedEvent) {
			reason = metrics.ReasonUnsupported
		}
		m.Reject(peer, reason, err)
		return err
	}

	return m.Dispatch(peer, event)
}

// Dispatch routes a decoded event to the membership or relay operation.
func (m *Manager) Dispatch(peer Peer, event Event) error {
	var err error

	switch e := event.(type) {
	case JoinEvent:
		_, err = m.Join(peer, e)
	case LeaveEvent:
		_, err = m.Leave(peer, e)
	case SignalEvent:
		err = m.Relay(peer, e)
	default:
		err = errs.NewError(errs.ErrUnsupportedEvent, string(event.Name()))
	}

	if err != nil {
		reason := metrics.ReasonMalformed
		if errs.HasCode(err, errs.ErrUnsupportedEvent) {
			reason = metrics.ReasonUnsupported
		}
		m.Reject(peer, reason, err)
	}

	return err
}

// Reject drops an event: it counts it under reason and reports err to peer alone.
func (m *Manager) Reject(peer Peer, reason string, err error) {
	m.metrics.EventDropped(reason)

	m.logger.Warn().
		Err(err).
		Str("conn_id", peer.ID()).
		Str("reason", reason).
		Msg("Dropped inbound event.")

	m.deliver(peer, errorFrame(err))
}

// Join adds the username to the room, subscribes peer to it and broadcasts
// user_joined to every subscriber, peer included.
func (m *Manager) Join(peer Peer, e JoinEvent) (PresenceEvent, error) {
	if e.RoomID == "" {
		return PresenceEvent{}, malformed("missing room_id")
	}

	username, err := user.Normalize(e.Username, m.opts.MaxUsernameLength)
	if err != nil {
		return PresenceEvent{}, err
	}

	unlock := m.locks.lock(e.RoomID)
	defer unlock()

	existed := m.directory.Exists(e.RoomID)
	count := m.directory.Add(e.RoomID, username)
	if !existed {
		m.metrics.RoomOpened()
	}
	if m.registry.Subscribe(peer, e.RoomID, username) {
		m.metrics.ConnectionOpened()
	}

	presence := PresenceEvent{
		Event:     EventUserJoined,
		RoomID:    e.RoomID,
		Username:  username,
		UserCount: count,
	}
	m.broadcast(e.RoomID, presence.Frame(), "")

	m.metrics.EventHandled(string(EventJoin))

	m.logger.Info().
		Str("room_id", e.RoomID).
		Str("conn_id", peer.ID()).
		Str("username", username).
		Int("user_count", count).
		Msg("User joined room.")

	return presence, nil
}

// Leave removes the username from the room, unsubscribes peer and broadcasts
// user_left to the remaining subscribers.
func (m *Manager) Leave(peer Peer, e LeaveEvent) (PresenceEvent, error) {
	if e.RoomID == "" {
		return PresenceEvent{}, malformed("missing room_id")
	}

	username, err := user.Normalize(e.Username, m.opts.MaxUsernameLength)
	if err != nil {
		return PresenceEvent{}, err
	}

	presence, _ := m.leave(peer.ID(), e.RoomID, username, false)
	return presence, nil
}

// leave runs one leave under the room lock. An implicit leave comes from a connection
// already detached from the registry; it is skipped, and ok is false, when another
// subscriber of the room still holds the username.
func (m *Manager) leave(connID, roomID, username string, implicit bool) (presence PresenceEvent, ok bool) {
	unlock := m.locks.lock(roomID)
	defer unlock()

	if implicit && m.registry.HoldsUsername(roomID, username) {
		m.logger.Debug().
			Str("room_id", roomID).
			Str("conn_id", connID).
			Str("username", username).
			Msg("Username still held by another connection, keeping it listed.")
		return PresenceEvent{}, false
	}

	existed := m.directory.Exists(roomID)
	count := m.directory.Remove(roomID, username)
	if existed && count == 0 {
		m.metrics.RoomClosed()
	}
	if !implicit {
		m.registry.Unsubscribe(connID, roomID)
	}

	presence = PresenceEvent{
		Event:     EventUserLeft,
		RoomID:    roomID,
		Username:  username,
		UserCount: count,
	}
	m.broadcast(roomID, presence.Frame(), "")

	m.metrics.EventHandled(string(EventLeave))

	m.logger.Info().
		Str("room_id", roomID).
		Str("conn_id", connID).
		Str("username", username).
		Int("user_count", count).
		Msg("User left room.")

	return presence, true
}

// Disconnect detaches a closed connection. With ImplicitLeaveOnDisconnect set, each
// username it joined a room with receives its own leave, unless another connection in
// that room still uses the name. It returns the presence events produced.
func (m *Manager) Disconnect(connID string) []PresenceEvent {
	rooms, ok := m.registry.Detach(connID)
	if ok {
		m.metrics.ConnectionClosed()
	}

	m.logger.Debug().
		Str("conn_id", connID).
		Int("joined_rooms", len(rooms)).
		Msg("Connection detached.")

	if !m.opts.ImplicitLeaveOnDisconnect || len(rooms) == 0 {
		return nil
	}

	roomIDs := make([]string, 0, len(rooms))
	for roomID := range rooms {
		roomIDs = append(roomIDs, roomID)
	}
	sort.Strings(roomIDs)

	var events []PresenceEvent
	for _, roomID := range roomIDs {
		for _, username := range rooms[roomID] {
			if presence, ok := m.leave(connID, roomID, username, true); ok {
				events = append(events, presence)
			}
		}
	}

	return events
}

// Snapshot returns the room's members and subscriber count, read under the room lock.
// ok is false when the room does not exist.
func (m *Manager) Snapshot(roomID string) (RoomSnapshot, bool) {
	unlock := m.locks.lock(roomID)
	defer unlock()

	if !m.directory.Exists(roomID) {
		return RoomSnapshot{}, false
	}

	members := m.directory.Members(roomID)

	return RoomSnapshot{
		RoomID:      roomID,
		Members:     members,
		UserCount:   len(members),
		Connections: len(m.registry.Subscribers(roomID)),
	}, true
}

// Shutdown closes every attached connection and clears all room state.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down Manager...")

	peers := m.registry.Peers()
	for _, p := range peers {
		p.Close()
	}

	m.registry.Reset()
	m.directory.Reset()

	m.metrics.Reset()

	m.logger.Info().Int("closed_connections", len(peers)).Msg("Manager shutdown complete.")
}

// broadcast queues f to every subscriber of the room except the connection exceptID.
// Callers hold the room lock.
func (m *Manager) broadcast(roomID string, f Frame, exceptID string) int {
	return m.deliverTo(m.registry.Subscribers(roomID), f, func(p Peer) bool {
		return p.ID() != exceptID
	})
}

func (m *Manager) deliver(peer Peer, f Frame) bool {
	return m.deliverTo([]Peer{peer}, f, nil) == 1
}

// deliverTo encodes f once and queues it to each peer accepted by keep.
func (m *Manager) deliverTo(peers []Peer, f Frame, keep func(Peer) bool) int {
	frame, err := encodeFrame(f)
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to encode outbound frame.")
		return 0
	}

	delivered := 0
	for _, p := range peers {
		if keep != nil && !keep(p) {
			continue
		}

		if p.Deliver(frame) {
			delivered++
			continue
		}

		m.metrics.Refused()
		m.logger.Warn().
			Str("conn_id", p.ID()).
			Str("event", string(f.Event)).
			Msg("Connection did not accept frame.")
	}

	m.metrics.Delivered(delivered)
	return delivered
}
