package transport

import "errors"

var (
	ErrMalformed = errors.New("malformed request envelope")
	ErrClosed    = errors.New("router closed")
)
