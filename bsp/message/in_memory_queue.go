package message

import (
	"sync"

	"github.com/Ahmed-Sermani/okapi/graph"
)

var _ Queue = (*inMemoryQueue)(nil)

type envelope struct {
	src graph.ID
	msg Message
}

type inMemoryQueue struct {
	mu      sync.Mutex
	msgs    []envelope
	head    int
	latched envelope
}

// NewInMemoryQueue returns a FIFO queue. It is concurrency safe for enqueue
// and dequeue but the returned iterator is not safe for concurrent access.
func NewInMemoryQueue() Queue {
	return new(inMemoryQueue)
}

func (q *inMemoryQueue) Enqueue(src graph.ID, msg Message) error {
	q.mu.Lock()
	q.msgs = append(q.msgs, envelope{src: src, msg: msg})
	q.mu.Unlock()
	return nil
}

func (q *inMemoryQueue) PendingMessages() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head < len(q.msgs)
}

func (q *inMemoryQueue) DiscardMessages() error {
	q.mu.Lock()
	// clear the backing array so that delivered payloads can be collected
	clear(q.msgs)
	q.msgs, q.head = q.msgs[:0], 0
	q.latched = envelope{}
	q.mu.Unlock()
	return nil
}

func (*inMemoryQueue) Close() error { return nil }

func (q *inMemoryQueue) Messages() Iterator {
	return q
}

func (q *inMemoryQueue) Next() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(q.msgs) {
		return false
	}

	// Dequeue message from the head of the queue.
	q.latched = q.msgs[q.head]
	q.head++
	return true
}

func (q *inMemoryQueue) Message() Message {
	q.mu.Lock()
	msg := q.latched.msg
	q.mu.Unlock()
	return msg
}

func (q *inMemoryQueue) Sender() graph.ID {
	q.mu.Lock()
	src := q.latched.src
	q.mu.Unlock()
	return src
}

func (*inMemoryQueue) Error() error { return nil }
