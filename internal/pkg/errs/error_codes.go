/*
Package errs provides custom error types and application-level error code constants.

These error codes identify request, signaling and system failures both inside the server
and in the frames and responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Room and Signaling Errors
const (
	// ErrRoomNotFound indicates that the requested room has no members.
	ErrRoomNotFound = 2103

	// ErrMalformedEvent indicates that a signaling frame was missing a required field
	// or could not be decoded.
	ErrMalformedEvent = 2301

	// ErrUnsupportedEvent indicates that a signaling frame named an unknown event.
	ErrUnsupportedEvent = 2302

	// ErrEventRateExceeded indicates that a connection sent signaling frames too quickly.
	ErrEventRateExceeded = 2303

	// ErrUsernameTooLong indicates that the username exceeded the configured length limit.
	ErrUsernameTooLong = 2304
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
