/*
Package user holds the rules for the display names participants announce when they
join a room. Names are caller-supplied and need not be unique.
*/
package user

import (
	"strings"
	"unicode/utf8"

	"rtcsignal/internal/pkg/errs"
)

// DefaultUsername is used when a join or leave carries no username.
const DefaultUsername = "Anonymous"

// Normalize trims name and substitutes DefaultUsername for an empty value.
// A positive maxLen rejects names longer than maxLen characters with ErrUsernameTooLong.
func Normalize(name string, maxLen int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultUsername, nil
	}

	if maxLen > 0 && utf8.RuneCountInString(name) > maxLen {
		return "", errs.NewError(errs.ErrUsernameTooLong, maxLen)
	}

	return name, nil
}
