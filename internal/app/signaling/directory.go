package signaling

import (
	"sort"
	"sync"
)

// Directory maps room ids to the set of present usernames.
// An entry exists only while its set is non-empty.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

// NewDirectory returns an empty Directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]map[string]struct{})}
}

// Add puts username into the room, creating the room if needed, and returns the
// room's cardinality afterwards. Adding a present username leaves the set unchanged.
func (d *Directory) Add(roomID, username string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		d.rooms[roomID] = members
	}
	members[username] = struct{}{}

	return len(members)
}

// Remove takes username out of the room and returns the cardinality afterwards.
// The room is deleted when it becomes empty; an unknown room or username is a no-op
// and a missing room counts as 0.
func (d *Directory) Remove(roomID, username string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[roomID]
	if !ok {
		return 0
	}

	delete(members, username)
	if len(members) == 0 {
		delete(d.rooms, roomID)
		return 0
	}

	return len(members)
}

// Count returns the number of usernames in the room, 0 if it does not exist.
func (d *Directory) Count(roomID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms[roomID])
}

// Exists reports whether the room has at least one member.
func (d *Directory) Exists(roomID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[roomID]
	return ok
}

// Members returns the room's usernames in sorted order.
func (d *Directory) Members(roomID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := make([]string, 0, len(d.rooms[roomID]))
	for username := range d.rooms[roomID] {
		members = append(members, username)
	}
	sort.Strings(members)

	return members
}

// Rooms returns the ids of all rooms in sorted order.
func (d *Directory) Rooms() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]string, 0, len(d.rooms))
	for id := range d.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// Len returns the number of rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// Reset drops every room.
func (d *Directory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rooms = make(map[string]map[string]struct{})
}
