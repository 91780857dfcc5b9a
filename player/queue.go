package player

// Queue holds the pending tracks and the currently playing slot for one
// chat. It is owned and mutated exclusively by that chat's session actor
// and is therefore not self-locking.
type Queue struct {
	pending []Track
	current *Track
	limit   int // 0 = unbounded
}

// Enqueue appends a track, rejecting with ErrQueueFull beyond the cap.
func (q *Queue) Enqueue(t Track) error {
	if q.limit > 0 && len(q.pending) >= q.limit {
		return ErrQueueFull
	}
	q.pending = append(q.pending, t)
	return nil
}

// DequeueNext pops the head of the pending queue.
func (q *Queue) DequeueNext() (Track, bool) {
	if len(q.pending) == 0 {
		return Track{}, false
	}
	t := q.pending[0]
	q.pending = q.pending[1:]
	return t, true
}

func (q *Queue) SetCurrent(t *Track) {
	q.current = t
}

func (q *Queue) Current() *Track {
	return q.current
}

func (q *Queue) Len() int {
	return len(q.pending)
}

// Clear empties the pending queue and drops the current slot.
func (q *Queue) Clear() {
	q.pending = nil
	q.current = nil
}

// Snapshot returns a consistent copy of the current track and the pending
// queue. The copy never aliases queue internals.
func (q *Queue) Snapshot() (*Track, []Track) {
	var cur *Track
	if q.current != nil {
		c := *q.current
		cur = &c
	}
	pending := make([]Track, len(q.pending))
	copy(pending, q.pending)
	return cur, pending
}
