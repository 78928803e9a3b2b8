package storage

import (
	"sort"

	"github.com/golang/glog"
)

// ReplyFunc transmits payload to a subscriber. A non-nil error means the
// payload did not leave the broker.
type ReplyFunc func(sub, payload string) error

// PendingTable is the exported form of the tracker: topic -> waiting subscribers, sorted.
type PendingTable map[string][]string

// Pending tracks subscribers whose GET found an empty queue and still waits
// for a reply. Like Registry, it relies on State for locking.
type Pending struct {
	waiting map[string]map[string]struct{}
}

// NewPending creates an empty tracker.
func NewPending() *Pending {
	return &Pending{waiting: make(map[string]map[string]struct{})}
}

// LoadPending rebuilds a tracker from its exported form.
func LoadPending(t PendingTable) *Pending {
	p := NewPending()
	for topic, subs := range t {
		for _, sub := range subs {
			p.Record(topic, sub)
		}
	}
	return p
}

// Record adds sub to the wait set of topic.
func (p *Pending) Record(topic, sub string) {
	set, ok := p.waiting[topic]
	if !ok {
		set = make(map[string]struct{})
		p.waiting[topic] = set
	}
	set[sub] = struct{}{}
}

// Clear removes a single waiter without delivering anything.
func (p *Pending) Clear(topic, sub string) bool {
	set, ok := p.waiting[topic]
	if !ok {
		return false
	}
	if _, ok := set[sub]; !ok {
		return false
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(p.waiting, topic)
	}
	return true
}

// ClearSubscriber removes sub from every wait set and returns the topics it was
// waiting on, sorted.
func (p *Pending) ClearSubscriber(sub string) []string {
	var topics []string
	for topic := range p.waiting {
		if p.Clear(topic, sub) {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// IsWaiting reports whether sub has an outstanding GET on topic.
func (p *Pending) IsWaiting(topic, sub string) bool {
	_, ok := p.waiting[topic][sub]
	return ok
}

// Resolve hands one payload to every subscriber waiting on topic. A payload
// whose reply fails goes back to the head of the subscriber's queue, so it is
// offered again on the next GET. Every waiter that got a delivery attempt, or
// no longer has a queue, leaves the wait set. Returns the number of
// successful deliveries.
func (p *Pending) Resolve(topic string, reg *Registry, reply ReplyFunc) int {
	set, ok := p.waiting[topic]
	if !ok {
		return 0
	}

	subs := make([]string, 0, len(set))
	for sub := range set {
		subs = append(subs, sub)
	}
	sort.Strings(subs)

	var delivered int
	for _, sub := range subs {
		res, err := deliver(reg, topic, sub, reply)
		switch {
		case res == Empty:
			// still waiting, nothing arrived for this subscriber
			continue
		case res != Value:
			glog.Infof("[Pending] dropping waiter %s on %q: %v", sub, topic, res)
		case err != nil:
			glog.Warningf("[Pending] delivery of topic %q to %s failed, requeued: %v", topic, sub, err)
		default:
			delivered++
		}
		delete(set, sub)
	}

	if len(set) == 0 {
		delete(p.waiting, topic)
	}
	return delivered
}

// deliver pops the head of sub's queue and hands it to reply. When reply
// fails the payload goes back to the head of the queue, so it is never lost.
func deliver(reg *Registry, topic, sub string, reply ReplyFunc) (TakeResult, error) {
	v, res := reg.Take(topic, sub)
	if res != Value {
		return res, nil
	}
	if err := reply(sub, v); err != nil {
		if rerr := reg.Requeue(topic, sub, v); rerr != nil {
			glog.Errorf("[Pending] requeue for %s on %q failed: %v", sub, topic, rerr)
		}
		return res, err
	}
	return res, nil
}

// Count returns the number of waiters per topic.
func (p *Pending) Count() map[string]int {
	out := make(map[string]int, len(p.waiting))
	for topic, set := range p.waiting {
		out[topic] = len(set)
	}
	return out
}

// Export returns a copy of the wait sets with each set sorted.
func (p *Pending) Export() PendingTable {
	out := make(PendingTable, len(p.waiting))
	for topic, set := range p.waiting {
		subs := make([]string, 0, len(set))
		for sub := range set {
			subs = append(subs, sub)
		}
		sort.Strings(subs)
		out[topic] = subs
	}
	return out
}
