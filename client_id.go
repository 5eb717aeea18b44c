package mqttv3

import (
	"errors"

	"github.com/rs/xid"
)

// maxClientIDLength is the longest identifier the client sends.
const maxClientIDLength = 22

// ErrBadClientIdent is returned for client identifiers that are empty,
// longer than 22 characters, or contain characters other than [0-9a-zA-Z].
var ErrBadClientIdent = errors.New("bad client identifier")

// ValidateClientID reports whether id can be sent in CONNECT.
func ValidateClientID(id string) error {
	if id == "" || len(id) > maxClientIDLength {
		return ErrBadClientIdent
	}

	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		default:
			return ErrBadClientIdent
		}
	}

	return nil
}

// GenerateClientID returns a random 20 character identifier that passes
// ValidateClientID.
func GenerateClientID() string {
	return xid.New().String()
}
