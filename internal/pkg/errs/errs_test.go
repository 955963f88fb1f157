package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		details     []any
		wantCode    int
		wantMessage string
		wantStatus  int
	}{
		{
			name:        "http error",
			code:        ErrRoomNotFound,
			wantCode:    ErrRoomNotFound,
			wantMessage: "Room not found.",
			wantStatus:  http.StatusNotFound,
		},
		{
			name:        "formatted message",
			code:        ErrMalformedEvent,
			details:     []any{"missing room_id"},
			wantCode:    ErrMalformedEvent,
			wantMessage: "Malformed event: missing room_id.",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "numeric detail",
			code:        ErrUsernameTooLong,
			details:     []any{32},
			wantCode:    ErrUsernameTooLong,
			wantMessage: "Username is longer than 32 characters.",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "details ignored without placeholder",
			code:        ErrEventRateExceeded,
			details:     []any{"extra"},
			wantCode:    ErrEventRateExceeded,
			wantMessage: "Too many events. Slow down.",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "unknown with cause keeps generic message",
			code:        ErrUnknown,
			details:     []any{errors.New("disk on fire")},
			wantCode:    ErrUnknown,
			wantMessage: "Something went wrong. Please try again.",
			wantStatus:  http.StatusInternalServerError,
		},
		{
			name:        "unregistered code",
			code:        999999,
			wantCode:    ErrUnknown,
			wantMessage: "Something went wrong. Please try again.",
			wantStatus:  http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewError(tt.code, tt.details...)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantMessage, err.Message)
			assert.Equal(t, tt.wantStatus, err.Status)
		})
	}
}

func TestNewError_DoesNotMutateTemplate(t *testing.T) {
	_ = NewError(ErrMalformedEvent, "first")
	err := NewError(ErrMalformedEvent, "second")

	assert.Equal(t, "Malformed event: second.", err.Message)
	assert.Equal(t, "Malformed event: %s.", errorMap[ErrMalformedEvent].Message)
}

func TestCustomError_IsAndHasCode(t *testing.T) {
	err := fmt.Errorf("decode: %w", NewError(ErrMalformedEvent, "x"))

	assert.True(t, errors.Is(err, NewError(ErrMalformedEvent, "y")))
	assert.False(t, errors.Is(err, NewError(ErrUnsupportedEvent, "y")))

	assert.True(t, HasCode(err, ErrMalformedEvent))
	assert.False(t, HasCode(err, ErrRoomNotFound))
	assert.False(t, HasCode(errors.New("plain"), ErrMalformedEvent))
	assert.False(t, HasCode(nil, ErrMalformedEvent))
}

func TestCustomError_Error(t *testing.T) {
	err := NewError(ErrRoomNotFound)
	assert.Equal(t, "Error Code 2103 (HTTP 404): Room not found.", err.Error())
}
