package event

// Queue is a FIFO event queue. It exists for ordering, not
// concurrency: a single date's processing can produce secondary
// events, and strict FIFO draining keeps their application order
// well defined.
type Queue struct {
	events []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an event to the back of the queue.
func (q *Queue) Push(e Event) {
	q.events = append(q.events, e)
}

// Pop removes and returns the front event.
func (q *Queue) Pop() (Event, bool) {
	if len(q.events) == 0 {
		return nil, false
	}
	e := q.events[0]
	q.events = q.events[1:]
	return e, true
}

// Empty reports whether the queue holds no events.
func (q *Queue) Empty() bool {
	return len(q.events) == 0
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.events)
}
