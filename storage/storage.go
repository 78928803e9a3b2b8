package storage

import (
	"sort"

	"github.com/golang/glog"
)

// TakeResult tells the caller of Take what it found.
type TakeResult int

const (
	Value         TakeResult = iota // a payload was popped
	Empty                           // registered, nothing queued
	NotSubscribed                   // topic exists, subscriber is not on it
	NotFound                        // no such topic
)

func (r TakeResult) String() string {
	switch r {
	case Value:
		return "value"
	case Empty:
		return "empty"
	case NotSubscribed:
		return "not_subscribed"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// TopicTable is the exported form of the registry: topic -> subscriber -> queued payloads.
type TopicTable map[string]map[string][]string

// Registry holds every topic and the private queue of each of its subscribers.
// It does no locking of its own; State serializes all access.
type Registry struct {
	topicSubs map[string]map[string]*Queue
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{topicSubs: make(map[string]map[string]*Queue)}
}

// LoadRegistry rebuilds a registry from its exported form.
func LoadRegistry(t TopicTable) *Registry {
	r := NewRegistry()
	for topic, subs := range t {
		m := make(map[string]*Queue, len(subs))
		for sub, items := range subs {
			m[sub] = NewQueue(items...)
		}
		r.topicSubs[topic] = m
	}
	return r
}

// Subscribe ensures the topic exists and the subscriber has a queue in it.
// Subscribing twice is a no-op.
func (r *Registry) Subscribe(topic, sub string) {
	subs, ok := r.topicSubs[topic]
	if !ok {
		subs = make(map[string]*Queue)
		r.topicSubs[topic] = subs
		glog.V(2).Infof("[STORAGE] created topic %q on subscribe", topic)
	}
	if _, ok := subs[sub]; !ok {
		subs[sub] = NewQueue()
	}
}

// Unsubscribe drops the subscriber's queue, along with anything still in it.
// The topic itself is kept even when no subscribers remain.
func (r *Registry) Unsubscribe(topic, sub string) {
	subs, ok := r.topicSubs[topic]
	if !ok {
		return
	}
	if q, ok := subs[sub]; ok && q.Len() > 0 {
		glog.Infof("[STORAGE] dropping %d undelivered message(s) of %s on topic %q", q.Len(), sub, topic)
	}
	delete(subs, sub)
}

// Publish appends payload to every current subscriber queue of topic, creating
// the topic if needed. Returns the number of queues the payload went to.
func (r *Registry) Publish(topic, payload string) int {
	subs, ok := r.topicSubs[topic]
	if !ok {
		r.topicSubs[topic] = make(map[string]*Queue)
		glog.V(2).Infof("[STORAGE] created topic %q on publish", topic)
		return 0
	}
	for _, q := range subs {
		q.PushBack(payload)
	}
	return len(subs)
}

// Take pops the head of the subscriber's queue.
func (r *Registry) Take(topic, sub string) (string, TakeResult) {
	subs, ok := r.topicSubs[topic]
	if !ok {
		return "", NotFound
	}
	q, ok := subs[sub]
	if !ok {
		return "", NotSubscribed
	}
	v, ok := q.PopFront()
	if !ok {
		return "", Empty
	}
	return v, Value
}

// Requeue puts payload back at the head of the subscriber's queue.
func (r *Registry) Requeue(topic, sub, payload string) error {
	subs, ok := r.topicSubs[topic]
	if !ok {
		return ErrTopicNotFound
	}
	q, ok := subs[sub]
	if !ok {
		return ErrNotSubscribed
	}
	q.PushFront(payload)
	return nil
}

// HasTopic reports whether topic exists.
func (r *Registry) HasTopic(topic string) bool {
	_, ok := r.topicSubs[topic]
	return ok
}

// Len returns the queue length of sub in topic, 0 when absent.
func (r *Registry) Len(topic, sub string) int {
	if q, ok := r.topicSubs[topic][sub]; ok {
		return q.Len()
	}
	return 0
}

// Topics returns the sorted topic names.
func (r *Registry) Topics() []string {
	keys := make([]string, 0, len(r.topicSubs))
	for k := range r.topicSubs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Export returns a deep copy of the registry.
func (r *Registry) Export() TopicTable {
	out := make(TopicTable, len(r.topicSubs))
	for topic, subs := range r.topicSubs {
		m := make(map[string][]string, len(subs))
		for sub, q := range subs {
			m[sub] = q.Items()
		}
		out[topic] = m
	}
	return out
}
