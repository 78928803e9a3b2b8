package snapshot

import "errors"

var (
	ErrNoSnapshot = errors.New("no snapshot in slot")
	ErrCorrupt    = errors.New("snapshot is corrupt")
)
