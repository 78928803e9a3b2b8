package client

import (
	"errors"
	"testing"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		reply string
		value string
		err   error
	}{
		{"OK", "", nil},
		{"OK hello", "hello", nil},
		{"OK hello big world", "hello big world", nil},
		{"NF", "", ErrNotFound},
		{"NS", "", ErrNotSubscribed},
		{"NOK", "", ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			v, err := parseReply(tt.reply)
			if v != tt.value || !errors.Is(err, tt.err) {
				t.Fatalf("got (%q, %v), want (%q, %v)", v, err, tt.value, tt.err)
			}
		})
	}

	if _, err := parseReply("WHAT"); err == nil {
		t.Fatal("expected error for unknown reply")
	}
}
