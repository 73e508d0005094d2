package social

import "errors"

var (
	ErrInvalidRememberToken    = errors.New("invalid remember token")
	ErrMalformedRememberCookie = errors.New("malformed remember cookie")
)
