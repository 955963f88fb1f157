package signaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peerIDs(peers []Peer) []string {
	ids := make([]string, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.ID())
	}
	return ids
}

func TestRegistry_SubscribeAndScope(t *testing.T) {
	r := NewRegistry()
	a := newFakePeer("a")
	b := newFakePeer("b")

	assert.True(t, r.Attach(b))
	assert.False(t, r.Subscribe(b, "room", "bob"), "already attached")
	assert.True(t, r.Subscribe(a, "room", "alice"), "attached on first subscribe")
	assert.False(t, r.Subscribe(a, "other", "al"))

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"a", "b"}, peerIDs(r.Subscribers("room")))
	assert.Equal(t, []string{"a"}, peerIDs(r.Subscribers("other")))
	assert.Equal(t, map[string][]string{"room": {"alice"}, "other": {"al"}}, r.Memberships("a"))

	r.Subscribe(a, "room", "alice2")
	r.Subscribe(a, "room", "alice")
	assert.Equal(t, []string{"alice", "alice2"}, r.Memberships("a")["room"])
	assert.Len(t, r.Subscribers("room"), 2)
}

func TestRegistry_Unsubscribe(t *testing.T) {
	r := NewRegistry()
	a := newFakePeer("a")

	r.Subscribe(a, "room", "alice")

	assert.True(t, r.Unsubscribe("a", "room"))
	assert.False(t, r.Unsubscribe("a", "room"))
	assert.False(t, r.Unsubscribe("ghost", "room"))
	assert.Empty(t, r.Subscribers("room"))
	assert.Equal(t, 1, r.Len(), "connection stays attached")
}

func TestRegistry_Detach(t *testing.T) {
	r := NewRegistry()
	a := newFakePeer("a")
	b := newFakePeer("b")

	r.Subscribe(a, "r1", "alice")
	r.Subscribe(a, "r2", "alice")
	r.Subscribe(b, "r1", "bob")

	rooms, ok := r.Detach("a")
	assert.True(t, ok)
	assert.Equal(t, map[string][]string{"r1": {"alice"}, "r2": {"alice"}}, rooms)
	assert.Equal(t, []string{"b"}, peerIDs(r.Subscribers("r1")))
	assert.Empty(t, r.Subscribers("r2"))
	assert.Nil(t, r.Memberships("a"))
	rooms, ok = r.Detach("a")
	assert.False(t, ok)
	assert.Nil(t, rooms)
}

func TestRegistry_ReattachKeepsRooms(t *testing.T) {
	r := NewRegistry()
	first := newFakePeer("a")
	second := newFakePeer("a")

	r.Subscribe(first, "room", "alice")
	assert.False(t, r.Attach(second))

	subs := r.Subscribers("room")
	require.Len(t, subs, 1)
	assert.Same(t, second, subs[0])
}

func TestRegistry_HoldsUsername(t *testing.T) {
	r := NewRegistry()
	a := newFakePeer("a")
	b := newFakePeer("b")

	r.Subscribe(a, "room", "Anonymous")
	r.Subscribe(b, "room", "bob")
	r.Subscribe(b, "other", "Anonymous")

	assert.True(t, r.HoldsUsername("room", "Anonymous"))
	assert.True(t, r.HoldsUsername("room", "bob"))
	assert.False(t, r.HoldsUsername("room", "carol"))
	assert.False(t, r.HoldsUsername("missing", "bob"))

	r.Detach("a")
	assert.False(t, r.HoldsUsername("room", "Anonymous"), "name held only in another room")

	r.Unsubscribe("b", "room")
	assert.False(t, r.HoldsUsername("room", "bob"))
}

func TestRegistry_PeersAndReset(t *testing.T) {
	r := NewRegistry()
	r.Attach(newFakePeer("c"))
	r.Attach(newFakePeer("a"))
	r.Subscribe(newFakePeer("b"), "room", "bob")

	assert.Equal(t, []string{"a", "b", "c"}, peerIDs(r.Peers()))

	r.Reset()
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Subscribers("room"))
}
