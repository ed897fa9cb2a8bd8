/*
	Message queue
*/
package message

import "github.com/Ahmed-Sermani/okapi/graph"

type Message interface {
	Type() string
}

type Queue interface {
	Close() error
	// Enqueue appends msg, sent by the vertex with id src, to the queue.
	Enqueue(src graph.ID, msg Message) error
	PendingMessages() bool  // indicates that the queue has pending messages
	DiscardMessages() error // Drop all pending messages in the queue
	Messages() Iterator
}

type Iterator interface {
	// advances the Iterator. if no more messages or an error occure it returns false.
	Next() bool
	Message() Message
	// Sender returns the id of the vertex that sent the current message.
	Sender() graph.ID
	Error() error
}

type QueueFactory func() Queue
