package sonic

import (
	"context"
	"sync"
)

// eventQueue is the per-session outbound FIFO. Any goroutine may enqueue;
// a single frame source consumes. Wakeups are edge-triggered through a
// capacity-1 signal channel, so a burst of enqueues costs one wakeup and
// the consumer re-checks the slice after every wake.
type eventQueue struct {
	mu     sync.Mutex
	frames []Frame

	signal chan struct{}
	closed chan struct{}
	once   sync.Once
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		signal: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// enqueue appends a frame and nudges the consumer. Frames offered after
// close are discarded.
func (q *eventQueue) enqueue(f Frame) bool {
	select {
	case <-q.closed:
		return false
	default:
	}
	q.mu.Lock()
	q.frames = append(q.frames, f)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// dequeue blocks until a frame is available, the queue is closed and
// drained (errQueueClosed), or ctx is done.
func (q *eventQueue) dequeue(ctx context.Context) (Frame, error) {
	for {
		if f, ok := q.pop(); ok {
			return f, nil
		}
		select {
		case <-q.signal:
		case <-q.closed:
			// Drain anything enqueued just before close.
			if f, ok := q.pop(); ok {
				return f, nil
			}
			return Frame{}, errQueueClosed
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}
}

func (q *eventQueue) pop() (Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return Frame{}, false
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	return f, true
}

// close wakes the consumer permanently. Idempotent.
func (q *eventQueue) close() {
	q.once.Do(func() { close(q.closed) })
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
