package storage

import "errors"

var (
	ErrTopicNotFound = errors.New("topic not found")
	ErrNotSubscribed = errors.New("subscriber not registered on topic")
)
