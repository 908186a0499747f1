package diagnostics

import (
	"sync"
	"sync/atomic"
)

// Sink is the producer side of the diagnostics stream.
type Sink interface {
	Send(batch Batch)
}

type message struct {
	batch Batch
	end   bool
}

// Queue is an unbounded multi-producer single-consumer queue of batches
// terminated by a sentinel. Send never blocks on the consumer.
type Queue struct {
	mu     sync.Mutex
	items  []message
	notify chan struct{}
	closed bool
	finish sync.Once
	late   atomic.Int64
	sent   atomic.Int64
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{
		items:  make([]message, 0, 64),
		notify: make(chan struct{}, 1),
	}
}

// Send enqueues a batch. Batches sent after Finish are dropped and counted
// in Late, since the consumer has already been told the stream is over.
func (q *Queue) Send(batch Batch) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.late.Add(1)
		return
	}
	q.items = append(q.items, message{batch: batch})
	q.mu.Unlock()
	q.sent.Add(1)
	q.signal()
}

// Finish posts the end-of-stream sentinel. Only the first call has any
// effect; it must happen after every producer is done.
func (q *Queue) Finish() {
	q.finish.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.items = append(q.items, message{end: true})
		q.mu.Unlock()
		q.signal()
	})
}

// Receive blocks until a batch or the sentinel is available. It returns
// false once the sentinel has been received. Receive must only be called
// from a single goroutine.
func (q *Queue) Receive() (Batch, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			m := q.items[0]
			q.items[0] = message{}
			q.items = q.items[1:]
			q.mu.Unlock()
			if m.end {
				return Batch{}, false
			}
			return m.batch, true
		}
		q.mu.Unlock()
		<-q.notify
	}
}

// Sent is the number of batches accepted so far.
func (q *Queue) Sent() int64 {
	return q.sent.Load()
}

// Late is the number of batches dropped because they arrived after Finish.
func (q *Queue) Late() int64 {
	return q.late.Load()
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
