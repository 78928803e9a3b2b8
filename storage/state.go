package storage

import (
	"sync"

	"github.com/golang/glog"
)

// State is the broker's only shared mutable state. One mutex guards both the
// registry and the pending tracker, so no caller ever sees half of an operation.
type State struct {
	mu       sync.Mutex
	registry *Registry
	pending  *Pending
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		registry: NewRegistry(),
		pending:  NewPending(),
	}
}

// Subscribe registers sub on topic.
func (s *State) Subscribe(topic, sub string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Subscribe(topic, sub)
}

// Unsubscribe removes sub from topic. An outstanding GET of sub on that topic
// is dropped with it.
func (s *State) Unsubscribe(topic, sub string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Unsubscribe(topic, sub)
	s.pending.Clear(topic, sub)
}

// Get sends the next payload of sub on topic through reply. A payload whose
// reply fails stays at the head of the queue and the error is returned. On
// Empty the request is recorded as pending in the same critical section, so a
// concurrent Publish cannot slip in between the miss and the record.
func (s *State) Get(topic, sub string, reply ReplyFunc) (TakeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := deliver(s.registry, topic, sub, reply)
	if res == Empty {
		s.pending.Record(topic, sub)
	}
	return res, err
}

// Publish stores payload for every subscriber of topic and then resolves the
// waiters of topic through reply. Returns the number of deferred deliveries
// that went out.
func (s *State) Publish(topic, payload string, reply ReplyFunc) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.registry.Publish(topic, payload)
	glog.V(2).Infof("[STORAGE] published to %d queue(s) of topic %q", n, topic)
	return s.pending.Resolve(topic, s.registry, reply)
}

// Online forgets every GET sub left pending before it reconnected. Returns
// the topics that were cleared.
func (s *State) Online(sub string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.ClearSubscriber(sub)
}

// Export copies both tables out under the lock.
func (s *State) Export() (TopicTable, PendingTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Export(), s.pending.Export()
}

// Import replaces both tables, used once at startup by recovery.
func (s *State) Import(topics TopicTable, pending PendingTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = LoadRegistry(topics)
	s.pending = LoadPending(pending)
}

// TopicStats summarizes one topic for the monitor.
type TopicStats struct {
	Topic       string
	Subscribers int
	Queued      int
	Waiting     int
}

// Stats returns one entry per topic, sorted by name.
func (s *State) Stats() []TopicStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiting := s.pending.Count()
	out := make([]TopicStats, 0, len(s.registry.topicSubs))
	for _, topic := range s.registry.Topics() {
		subs := s.registry.topicSubs[topic]
		st := TopicStats{Topic: topic, Subscribers: len(subs), Waiting: waiting[topic]}
		for _, q := range subs {
			st.Queued += q.Len()
		}
		out = append(out, st)
	}
	return out
}
