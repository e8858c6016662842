package sink

import (
	"sync"

	"github.com/luki/sensorapp/internal/sensor"
)

// DefaultQueueDepth is the channel capacity used when none is given.
const DefaultQueueDepth = 64

// Queue decouples hardware callbacks from slow sinks. AddLine hands the
// record to a channel that a single goroutine drains into next, so records
// reach next in the order they were added. A full queue blocks the caller.
type Queue struct {
	next sensor.Sink
	ch   chan sensor.Record
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts the draining goroutine.
func NewQueue(next sensor.Sink, depth int) *Queue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	q := &Queue{
		next: next,
		ch:   make(chan sensor.Record, depth),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for rec := range q.ch {
		q.next.AddLine(rec)
	}
}

// AddLine implements sensor.Sink. Records added after Close are discarded.
func (q *Queue) AddLine(rec sensor.Record) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	q.ch <- rec
}

// Close stops accepting records and waits until the queued ones are
// written.
func (q *Queue) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	<-q.done
	return nil
}
