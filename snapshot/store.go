// Package snapshot persists the broker tables so they survive a restart.
//
// Each table lives in its own slot and every Save replaces the previous
// contents of that slot as a whole; a reader sees either the old or the new
// document, never a mix.
package snapshot

import "context"

// Slot names one independently persisted document.
type Slot string

const (
	TopicsSlot  Slot = "topics"
	PendingSlot Slot = "pending"
)

// Store is durable storage with one document per slot.
type Store interface {
	// Save atomically replaces the contents of slot.
	Save(ctx context.Context, slot Slot, data []byte) error

	// Load returns the contents of slot, or ErrNoSnapshot if it was never saved.
	Load(ctx context.Context, slot Slot) ([]byte, error)

	Close() error
}
