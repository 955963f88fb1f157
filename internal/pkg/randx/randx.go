/*
Package randx generates the random identifiers used by the relay: URL-safe room ids
handed out by the room-creation endpoints and UUID connection ids for WebSocket peers.
*/
package randx

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

const (
	// RoomIDBytes is the entropy, in bytes, of a generated room id.
	RoomIDBytes = 8

	// MaxRoomIDLength bounds room ids accepted in page URLs.
	MaxRoomIDLength = 128
)

// RoomID returns an unguessable, URL-safe room id built from RoomIDBytes bytes of
// crypto/rand output, base64url encoded without padding.
func RoomID() (string, error) {
	buf := make([]byte, RoomIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes for room id: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ConnectionID returns a UUID v4 string identifying one transport connection.
func ConnectionID() string {
	return uuid.NewString()
}

// IsURLSafeRoomID reports whether id is non-empty, at most MaxRoomIDLength bytes and
// made only of the base64url alphabet. The signaling core accepts any non-empty id;
// this check only guards ids taken from page URLs.
func IsURLSafeRoomID(id string) bool {
	if id == "" || len(id) > MaxRoomIDLength {
		return false
	}

	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}

	return true
}
