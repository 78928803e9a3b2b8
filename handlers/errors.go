package handlers

import "errors"

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMalformedTopic = errors.New("malformed topic field")
)
