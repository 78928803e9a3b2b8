package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"
)

// MonitorActivity periodically logs subscriber, queue and waiter counts per topic.
func MonitorActivity(ctx context.Context, s *State, every time.Duration) {
	glog.Info("[Storage Monitor] Starting storage activity monitor...")
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	do := func() {
		stats := s.Stats()
		if len(stats) == 0 {
			glog.Info("[Storage Monitor] No topics available")
			return
		}

		details := make(map[string]TopicStats, len(stats))
		for _, st := range stats {
			details[st.Topic] = st
		}
		b, _ := json.Marshal(details)
		glog.Infof("[Storage Monitor] Topic data: %s", string(b))
	}

	do() // trigger first do
	for {
		select {
		case <-ctx.Done():
			glog.Info("[Storage Monitor] Stopping storage activity monitor...")
			return
		case <-ticker.C:
			do()
		}
	}
}
