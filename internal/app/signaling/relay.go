package signaling

// Relay forwards the signaling payload, unmodified and tagged with its kind, to every
// connection subscribed to the room except the sender. A non-empty e.To restricts
// delivery to that one subscriber. Having no receivers is not an error.
func (m *Manager) Relay(sender Peer, e SignalEvent) error {
	if !e.Kind.IsSignal() {
		return malformed("unknown signal kind " + string(e.Kind))
	}
	if e.RoomID == "" {
		return malformed("missing room_id")
	}
	if isAbsent(e.Payload) {
		return malformed("missing " + e.Kind.payloadField())
	}

	unlock := m.locks.lock(e.RoomID)
	defer unlock()

	frame := Frame{
		Event: e.Kind,
		Data:  e.Payload,
		From:  sender.ID(),
	}

	delivered := m.deliverTo(m.registry.Subscribers(e.RoomID), frame, func(p Peer) bool {
		if p.ID() == sender.ID() {
			return false
		}
		return e.To == "" || p.ID() == e.To
	})

	m.metrics.EventHandled(string(e.Kind))

	m.logger.Debug().
		Str("room_id", e.RoomID).
		Str("conn_id", sender.ID()).
		Str("event", string(e.Kind)).
		Str("to", e.To).
		Int("delivered", delivered).
		Msg("Relayed signaling message.")

	return nil
}
