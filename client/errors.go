package client

import "errors"

var (
	ErrNotFound      = errors.New("topic not found")
	ErrNotSubscribed = errors.New("not subscribed to topic")
	ErrRejected      = errors.New("request rejected by broker")
	ErrBroken        = errors.New("connection abandoned mid-request, redial")
	ErrClosed        = errors.New("connection closed")
)
