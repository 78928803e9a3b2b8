// Package checkpoint writes the broker state to a snapshot store on a fixed
// cadence and reads it back at startup.
package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/alphauslabs/qbroker/snapshot"
	"github.com/alphauslabs/qbroker/storage"
	"github.com/golang/glog"
	"github.com/google/uuid"
)

const DefaultInterval = 5 * time.Second

// how long the last checkpoint on shutdown may take
const finalTimeout = 10 * time.Second

type Task struct {
	State    *storage.State
	Store    snapshot.Store
	Interval time.Duration
}

// Checkpoint copies both tables out of the state and saves them. The state
// lock is only held for the copy; encoding and I/O happen after it is released.
func (t *Task) Checkpoint(ctx context.Context) error {
	id := uuid.NewString()
	topics, pending := t.State.Export()

	tb, err := snapshot.EncodeTopics(id, topics)
	if err != nil {
		return fmt.Errorf("encode topics: %w", err)
	}
	pb, err := snapshot.EncodePending(id, pending)
	if err != nil {
		return fmt.Errorf("encode pending: %w", err)
	}

	if err := t.Store.Save(ctx, snapshot.TopicsSlot, tb); err != nil {
		return fmt.Errorf("save topics: %w", err)
	}
	if err := t.Store.Save(ctx, snapshot.PendingSlot, pb); err != nil {
		return fmt.Errorf("save pending: %w", err)
	}

	glog.V(1).Infof("[Checkpoint] %s saved: %d topic(s), %d topic(s) with waiters", id, len(topics), len(pending))
	return nil
}

// Run checkpoints every Interval until ctx is done, then takes one last
// checkpoint before returning. A failed tick is logged and skipped; the
// previous snapshot stays in place.
func (t *Task) Run(ctx context.Context) {
	every := t.Interval
	if every <= 0 {
		every = DefaultInterval
	}

	glog.Infof("[Checkpoint] running every %v", every)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.Background(), finalTimeout)
			if err := t.Checkpoint(fctx); err != nil {
				glog.Errorf("[Checkpoint] final checkpoint failed: %v", err)
			} else {
				glog.Info("[Checkpoint] final checkpoint saved")
			}
			cancel()
			return
		case <-ticker.C:
			if err := t.Checkpoint(ctx); err != nil {
				glog.Errorf("[Checkpoint] tick skipped: %v", err)
			}
		}
	}
}
