// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import "unsafe"

// Queue is the combined producer-consumer interface for an unbounded FIFO
// queue.
//
// Enqueue always succeeds. Dequeue returns ErrWouldBlock when the queue is
// empty at the instant it looked; it never waits for a producer.
//
// The interface intentionally excludes length because accurate counts in
// lock-free algorithms require expensive cross-core synchronization.
// Track counts in application logic when needed.
//
// Example:
//
//	q := msq.NewMPMC[int]()
//
//	val := 42
//	q.Enqueue(&val)
//
//	elem, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]
	Closer
}

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs. The
// queue stores a copy of the pointed-to value, so the original can be
// modified after Enqueue returns.
type Producer[T any] interface {
	// Enqueue appends an element to the queue (non-blocking, never fails).
	// Multiple producers are safe.
	Enqueue(elem *T)
}

// Consumer is the interface for dequeueing elements.
//
// The element is returned by value. The node that held it is cleared so
// referenced objects can be garbage collected.
type Consumer[T any] interface {
	// Dequeue removes and returns the front element (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	// Multiple consumers are safe.
	Dequeue() (T, error)
}

// Closer releases the nodes of a queue that is no longer in use.
type Closer interface {
	// Close releases every node still linked into the queue. The caller
	// guarantees that no operation is in flight or will start afterwards.
	Close()
}

// QueueIndirect is the combined interface for indirect (uintptr) queues.
//
// QueueIndirect passes indices or handles instead of full objects. This is
// useful for buffer pools, object pools, or any index-based data structure.
//
// Example (free list):
//
//	pool := make([][]byte, 1024)
//	freeList := msq.NewMPMCIndirect()
//	for i := range pool {
//	    pool[i] = make([]byte, 4096)
//	    freeList.Enqueue(uintptr(i))
//	}
//
//	idx, err := freeList.Dequeue()
//	if err == nil {
//	    buf := pool[idx]
//	    // ...
//	    freeList.Enqueue(idx)
//	}
type QueueIndirect interface {
	ProducerIndirect
	ConsumerIndirect
	Closer
}

// ProducerIndirect enqueues uintptr values (non-blocking).
type ProducerIndirect interface {
	Enqueue(elem uintptr)
}

// ConsumerIndirect dequeues uintptr values (non-blocking).
type ConsumerIndirect interface {
	// Dequeue removes and returns the front value.
	// Returns (0, ErrWouldBlock) if the queue is empty.
	Dequeue() (uintptr, error)
}

// QueuePtr is the combined interface for unsafe.Pointer queues.
//
// Ownership semantics: the producer transfers ownership of the pointee to
// the consumer. After enqueueing, the producer should not access it.
type QueuePtr interface {
	ProducerPtr
	ConsumerPtr
	Closer
}

// ProducerPtr enqueues unsafe.Pointer values (non-blocking).
type ProducerPtr interface {
	Enqueue(elem unsafe.Pointer)
}

// ConsumerPtr dequeues unsafe.Pointer values (non-blocking).
type ConsumerPtr interface {
	// Dequeue removes and returns the front pointer.
	// Returns (nil, ErrWouldBlock) if the queue is empty.
	Dequeue() (unsafe.Pointer, error)
}

var (
	_ Queue[int]    = (*MPMC[int])(nil)
	_ QueuePtr      = (*MPMCPtr)(nil)
	_ QueueIndirect = (*MPMCIndirect)(nil)
)
