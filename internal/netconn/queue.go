package netconn

import (
	"sync"

	"github.com/JamaalDavis/holochain-rust/internal/protocol"
)

// queue is an unbounded FIFO with many producers and one consumer
type queue struct {
	mu     sync.Mutex
	items  []protocol.Message
	head   int
	closed bool
}

func (q *queue) push(msg protocol.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, msg)
	return true
}

// tryPop never blocks
func (q *queue) tryPop() (protocol.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		return protocol.Message{}, false
	}
	msg := q.items[q.head]
	q.items[q.head] = protocol.Message{}
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}
	return msg, true
}

// close rejects further pushes and drops anything still queued
func (q *queue) close() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := len(q.items) - q.head
	q.closed = true
	q.items = nil
	q.head = 0
	return dropped
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
