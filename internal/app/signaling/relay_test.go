package signaling

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtcsignal/internal/pkg/errs"
)

func TestRelay_NeverReachesSender(t *testing.T) {
	for size := 1; size <= 4; size++ {
		t.Run(fmt.Sprintf("%d peers", size), func(t *testing.T) {
			m := newTestManager(true)
			peers := make([]*fakePeer, size)
			for i := range peers {
				peers[i] = newFakePeer(fmt.Sprintf("c%d", i))
				_, err := m.Join(peers[i], JoinEvent{RoomID: "room", Username: fmt.Sprintf("u%d", i)})
				require.NoError(t, err)
			}
			for _, p := range peers {
				p.drain(t)
			}

			for _, kind := range []EventName{EventOffer, EventAnswer, EventICECandidate} {
				require.NoError(t, m.Relay(peers[0], SignalEvent{
					Kind:    kind,
					RoomID:  "room",
					Payload: json.RawMessage(`{"k":"v"}`),
				}))
			}

			assert.Empty(t, peers[0].drain(t))
			for _, p := range peers[1:] {
				frames := p.drain(t)
				require.Len(t, frames, 3)
				assert.Equal(t, EventOffer, frames[0].Event)
				assert.Equal(t, EventAnswer, frames[1].Event)
				assert.Equal(t, EventICECandidate, frames[2].Event)
				for _, f := range frames {
					assert.JSONEq(t, `{"k":"v"}`, string(f.Data))
					assert.Equal(t, "c0", f.From)
				}
			}
		})
	}
}

func TestRelay_AddressedDelivery(t *testing.T) {
	m := newTestManager(true)
	a, b, c := newFakePeer("a"), newFakePeer("b"), newFakePeer("c")
	for _, p := range []*fakePeer{a, b, c} {
		_, err := m.Join(p, JoinEvent{RoomID: "mesh", Username: p.id})
		require.NoError(t, err)
	}
	for _, p := range []*fakePeer{a, b, c} {
		p.drain(t)
	}

	require.NoError(t, m.Relay(a, SignalEvent{Kind: EventOffer, RoomID: "mesh", Payload: json.RawMessage(`1`), To: "c"}))

	assert.Empty(t, b.drain(t))
	assert.Len(t, c.drain(t), 1)

	require.NoError(t, m.Relay(a, SignalEvent{Kind: EventOffer, RoomID: "mesh", Payload: json.RawMessage(`1`), To: "a"}))
	assert.Empty(t, a.drain(t), "addressing yourself delivers nothing")
}

func TestRelay_EmptyRoomIsNotAnError(t *testing.T) {
	m := newTestManager(true)
	p := newFakePeer("lonely")

	require.NoError(t, m.Relay(p, SignalEvent{Kind: EventOffer, RoomID: "nowhere", Payload: json.RawMessage(`{}`)}))
	assert.Empty(t, p.drain(t))
	assert.False(t, m.Directory().Exists("nowhere"))
}

func TestRelay_Validation(t *testing.T) {
	m := newTestManager(true)
	p := newFakePeer("p")

	tests := []struct {
		name  string
		event SignalEvent
	}{
		{name: "not a signal kind", event: SignalEvent{Kind: EventJoin, RoomID: "r", Payload: json.RawMessage(`{}`)}},
		{name: "missing room", event: SignalEvent{Kind: EventOffer, Payload: json.RawMessage(`{}`)}},
		{name: "missing payload", event: SignalEvent{Kind: EventAnswer, RoomID: "r"}},
		{name: "null payload", event: SignalEvent{Kind: EventICECandidate, RoomID: "r", Payload: json.RawMessage(`null`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Relay(p, tt.event)
			assert.True(t, errs.HasCode(err, errs.ErrMalformedEvent))
		})
	}
}

func TestRelay_PayloadBytesUnchanged(t *testing.T) {
	m := newTestManager(true)
	a, b := newFakePeer("a"), newFakePeer("b")
	for _, p := range []*fakePeer{a, b} {
		_, err := m.Join(p, JoinEvent{RoomID: "r", Username: p.id})
		require.NoError(t, err)
	}
	a.drain(t)
	b.drain(t)

	payload := `{ "type" : "offer",  "sdp": "v=0\r\na=group:BUNDLE 0 <x> & y" }`
	frame := `{"event":"offer","data":{"room_id":"r","offer":` + payload + `}}`
	require.NoError(t, m.Handle(a, []byte(frame)))

	frames := b.drain(t)
	require.Len(t, frames, 1)
	assert.Equal(t, payload, string(frames[0].Data))
	assert.Equal(t, "a", frames[0].From)
}
