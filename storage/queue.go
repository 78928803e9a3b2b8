package storage

// Queue is the FIFO of undelivered payloads one subscriber holds in one topic.
type Queue struct {
	items []string
}

// NewQueue creates a queue holding a copy of items, in order.
func NewQueue(items ...string) *Queue {
	q := &Queue{}
	if len(items) > 0 {
		q.items = append(make([]string, 0, len(items)), items...)
	}
	return q
}

// PushBack appends a payload.
func (q *Queue) PushBack(v string) { q.items = append(q.items, v) }

// PushFront puts a payload back at the head, used to undo a PopFront.
func (q *Queue) PushFront(v string) {
	q.items = append(q.items, "")
	copy(q.items[1:], q.items)
	q.items[0] = v
}

// PopFront removes and returns the head payload.
func (q *Queue) PopFront() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	v := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return v, true
}

// Len returns the number of queued payloads.
func (q *Queue) Len() int { return len(q.items) }

// Items returns a copy of the queued payloads, head first.
func (q *Queue) Items() []string {
	out := make([]string, len(q.items))
	copy(out, q.items)
	return out
}
