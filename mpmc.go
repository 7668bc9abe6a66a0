// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"sync/atomic"

	"code.hybscloud.com/msq/epoch"
	"code.hybscloud.com/spin"
)

// MPMC is a CAS-based multi-producer multi-consumer unbounded queue.
//
// Based on the non-blocking queue by Michael and Scott (PODC 1996).
// The queue is a singly-linked list whose first node is a sentinel:
// head points at the sentinel and the front value lives in head.next.
// Linking a node and advancing tail are separate CAS steps; any goroutine
// that finds tail lagging completes the advance on the producer's behalf.
//
// Nodes unlinked by Dequeue are retired through the Reclaimer and recycled
// only once no pinned goroutine can still reach them.
//
// Memory: one node per queued element plus the sentinel (24+ bytes per node)
type MPMC[T any] struct {
	_         pad
	head      atomic.Pointer[node[T]] // Sentinel; front value is head.next
	_         padPtr
	tail      atomic.Pointer[node[T]] // At or before the last node
	_         padPtr
	reclaimer Reclaimer
	nodes     allocator[T]
}

// NewMPMC creates a new Michael-Scott MPMC queue reclaiming nodes through
// the process-wide epoch collector.
func NewMPMC[T any]() *MPMC[T] {
	return newMPMC[T](Epoch(epoch.Default()), newNodePool[T]())
}

func newMPMC[T any](r Reclaimer, a allocator[T]) *MPMC[T] {
	q := &MPMC[T]{
		reclaimer: r,
		nodes:     a,
	}
	sentinel := a.alloc()
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Enqueue appends an element to the queue. It never fails.
//
// The element is linearized at the CAS that links its node after the
// last node.
func (q *MPMC[T]) Enqueue(elem *T) {
	n := q.nodes.alloc()
	n.value = *elem

	g := q.reclaimer.Pin()
	defer g.Unpin()

	sw := spin.Wait{}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()

		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				// Best effort; a goroutine that sees the lag fixes it.
				q.tail.CompareAndSwap(tail, n)
				return
			}
		} else {
			// Tail is stale: help the producer that linked next.
			q.tail.CompareAndSwap(tail, next)
		}
		sw.Once()
	}
}

// Dequeue removes and returns the front element.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
//
// The old sentinel is retired, and the dequeued node becomes the new
// sentinel.
func (q *MPMC[T]) Dequeue() (T, error) {
	g := q.reclaimer.Pin()
	defer g.Unpin()

	sw := spin.Wait{}
	for {
		head := q.head.Load()
		next := head.next.Load()

		if next == nil {
			var zero T
			return zero, ErrWouldBlock
		}

		// Never move head past tail: a retired node must not stay
		// reachable through tail.
		if tail := q.tail.Load(); tail == head {
			q.tail.CompareAndSwap(tail, next)
			continue
		}

		if q.head.CompareAndSwap(head, next) {
			elem := next.value
			var zero T
			next.value = zero
			g.Retire(head)
			return elem, nil
		}
		sw.Once()
	}
}

// Close releases every node still linked into the queue.
//
// Close requires that no other operation is in flight and that none will
// be started afterwards. Values still queued are dropped.
func (q *MPMC[T]) Close() {
	g := q.reclaimer.Unprotected()
	defer g.Unpin()

	n := q.head.Load()
	q.head.Store(nil)
	q.tail.Store(nil)
	for n != nil {
		next := n.next.Load()
		g.Retire(n)
		n = next
	}
}
