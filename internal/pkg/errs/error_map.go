/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses, signaling error frames and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
var errorMap = map[int]CustomError{
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	ErrRoomNotFound:      {Code: ErrRoomNotFound, Message: "Room not found.", Status: http.StatusNotFound},
	ErrMalformedEvent:    {Code: ErrMalformedEvent, Message: "Malformed event: %s."},
	ErrUnsupportedEvent:  {Code: ErrUnsupportedEvent, Message: "Unsupported event: %s."},
	ErrEventRateExceeded: {Code: ErrEventRateExceeded, Message: "Too many events. Slow down."},
	ErrUsernameTooLong:   {Code: ErrUsernameTooLong, Message: "Username is longer than %d characters."},

	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
