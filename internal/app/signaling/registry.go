package signaling

import (
	"sort"
	"sync"
)

// Peer is the transport side of one connection as seen by the core.
type Peer interface {
	// ID returns the connection identifier assigned by the transport.
	ID() string

	// Deliver queues an encoded frame without blocking and reports whether it was accepted.
	Deliver(frame []byte) bool

	// Close asks the transport to terminate the connection.
	Close()
}

type connection struct {
	peer Peer

	// rooms maps each joined room to every username the connection joined it with.
	rooms map[string]map[string]struct{}
}

// Registry maps connection ids to their Peer and joined rooms, and keeps the reverse
// index of each room's subscribed connections (its broadcast scope).
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*connection
	scopes map[string]map[string]Peer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*connection),
		scopes: make(map[string]map[string]Peer),
	}
}

// Attach records a live connection and reports whether its id was new.
// Re-attaching an id replaces its Peer and keeps its rooms.
func (r *Registry) Attach(peer Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, added := r.attachLocked(peer)
	return added
}

func (r *Registry) attachLocked(peer Peer) (*connection, bool) {
	c, ok := r.conns[peer.ID()]
	if !ok {
		c = &connection{rooms: make(map[string]map[string]struct{})}
		r.conns[peer.ID()] = c
	}
	c.peer = peer

	for roomID := range c.rooms {
		r.scopes[roomID][peer.ID()] = peer
	}

	return c, !ok
}

// Detach forgets the connection, removes it from every broadcast scope and returns the
// rooms it had joined with their usernames in sorted order. ok is false for an unknown id.
func (r *Registry) Detach(connID string) (rooms map[string][]string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil, false
	}

	for roomID := range c.rooms {
		r.removeFromScopeLocked(roomID, connID)
	}
	delete(r.conns, connID)

	return usernamesByRoom(c.rooms), true
}

// Subscribe adds the connection to the room's broadcast scope and records the username
// alongside any it already joined the room with. An unknown connection is attached
// first, in which case Subscribe returns true.
func (r *Registry) Subscribe(peer Peer, roomID, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, added := r.attachLocked(peer)

	names, ok := c.rooms[roomID]
	if !ok {
		names = make(map[string]struct{})
		c.rooms[roomID] = names
	}
	names[username] = struct{}{}

	scope, ok := r.scopes[roomID]
	if !ok {
		scope = make(map[string]Peer)
		r.scopes[roomID] = scope
	}
	scope[peer.ID()] = peer

	return added
}

// Unsubscribe removes the connection from the room's broadcast scope and forgets the
// usernames it joined the room with. It reports whether the connection had been subscribed.
func (r *Registry) Unsubscribe(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, joined := c.rooms[roomID]; !joined {
		return false
	}

	delete(c.rooms, roomID)
	r.removeFromScopeLocked(roomID, connID)

	return true
}

func (r *Registry) removeFromScopeLocked(roomID, connID string) {
	scope, ok := r.scopes[roomID]
	if !ok {
		return
	}

	delete(scope, connID)
	if len(scope) == 0 {
		delete(r.scopes, roomID)
	}
}

// Subscribers returns the peers subscribed to the room, ordered by connection id.
func (r *Registry) Subscribers(roomID string) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scope := r.scopes[roomID]
	peers := make([]Peer, 0, len(scope))
	for _, p := range scope {
		peers = append(peers, p)
	}
	sortPeers(peers)

	return peers
}

// HoldsUsername reports whether any connection subscribed to the room joined it as username.
func (r *Registry) HoldsUsername(roomID, username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connID := range r.scopes[roomID] {
		if _, ok := r.conns[connID].rooms[roomID][username]; ok {
			return true
		}
	}
	return false
}

// Memberships returns the rooms joined by the connection with their usernames in
// sorted order, or nil for an unknown connection.
func (r *Registry) Memberships(connID string) map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	return usernamesByRoom(c.rooms)
}

// Peers returns every attached peer, ordered by connection id.
func (r *Registry) Peers() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peers := make([]Peer, 0, len(r.conns))
	for _, c := range r.conns {
		peers = append(peers, c.peer)
	}
	sortPeers(peers)

	return peers
}

// Len returns the number of attached connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Reset forgets every connection and scope.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns = make(map[string]*connection)
	r.scopes = make(map[string]map[string]Peer)
}

func usernamesByRoom(rooms map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(rooms))
	for roomID, names := range rooms {
		list := make([]string, 0, len(names))
		for name := range names {
			list = append(list, name)
		}
		sort.Strings(list)
		out[roomID] = list
	}
	return out
}

func sortPeers(peers []Peer) {
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID() < peers[j].ID() })
}
