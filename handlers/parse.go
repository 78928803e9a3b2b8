package handlers

import (
	"fmt"
	"strings"
)

// Request is one parsed command line.
type Request struct {
	Action  string
	Topic   string
	Payload string
}

// Parse reads "ACTION [topic] payload". The topic is the text between the
// first '[' and the next ']', or the rest of the line if there is no ']'.
// The payload, only meaningful for PUT, is what follows ']' with surrounding
// whitespace removed.
func Parse(line string) (Request, error) {
	line = strings.TrimRight(line, "\r\n")
	action, rest, hasRest := strings.Cut(line, " ")
	if _, ok := commands[action]; !ok {
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownCommand, action)
	}

	req := Request{Action: action}
	if action == Online {
		return req, nil
	}
	if !hasRest {
		return Request{}, fmt.Errorf("%w: %s without topic", ErrMalformedTopic, action)
	}

	start := strings.IndexByte(rest, '[')
	if start < 0 {
		return Request{}, fmt.Errorf("%w: missing '['", ErrMalformedTopic)
	}
	rest = rest[start+1:]

	if end := strings.IndexByte(rest, ']'); end < 0 {
		req.Topic = rest
	} else {
		req.Topic = rest[:end]
		req.Payload = strings.TrimSpace(rest[end+1:])
	}
	if req.Topic == "" {
		return Request{}, fmt.Errorf("%w: empty topic", ErrMalformedTopic)
	}
	return req, nil
}
