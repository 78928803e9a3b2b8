package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/alphauslabs/qbroker/snapshot"
	"github.com/alphauslabs/qbroker/storage"
	"github.com/golang/glog"
)

// Recover loads both slots from store into state. A slot that was never saved
// counts as empty. Any other failure, including a corrupt document, is
// returned untouched so the caller can refuse to start.
func Recover(ctx context.Context, store snapshot.Store, state *storage.State) error {
	topics := storage.TopicTable{}
	pending := storage.PendingTable{}
	var topicsID, pendingID string

	b, err := store.Load(ctx, snapshot.TopicsSlot)
	switch {
	case errors.Is(err, snapshot.ErrNoSnapshot):
		glog.Info("[Recovery] no topics snapshot, starting empty")
	case err != nil:
		return fmt.Errorf("load topics: %w", err)
	default:
		var h snapshot.Header
		if topics, h, err = snapshot.DecodeTopics(b); err != nil {
			return fmt.Errorf("decode topics: %w", err)
		}
		topicsID = h.ID
		glog.Infof("[Recovery] topics snapshot %s from %v", h.ID, h.CreatedAt)
	}

	b, err = store.Load(ctx, snapshot.PendingSlot)
	switch {
	case errors.Is(err, snapshot.ErrNoSnapshot):
		glog.Info("[Recovery] no pending snapshot, starting empty")
	case err != nil:
		return fmt.Errorf("load pending: %w", err)
	default:
		var h snapshot.Header
		if pending, h, err = snapshot.DecodePending(b); err != nil {
			return fmt.Errorf("decode pending: %w", err)
		}
		pendingID = h.ID
	}

	if topicsID != "" && pendingID != "" && topicsID != pendingID {
		// crash between the two slot writes
		glog.Warningf("[Recovery] slots come from different checkpoints: topics=%s pending=%s", topicsID, pendingID)
	}

	state.Import(topics, pending)

	var queued int
	for _, subs := range topics {
		for _, q := range subs {
			queued += len(q)
		}
	}
	glog.Infof("[Recovery] restored %d topic(s), %d queued message(s), %d topic(s) with waiters", len(topics), queued, len(pending))
	return nil
}
