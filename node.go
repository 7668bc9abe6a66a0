// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"sync"
	"sync/atomic"
)

// node is one queue slot. The sentinel and every node already dequeued
// carry no live value.
type node[T any] struct {
	next  atomic.Pointer[node[T]]
	value T
	owner allocator[T]
}

// Reclaim returns the node to the allocator it came from. Called by the
// reclaimer once no goroutine can still hold a reference to n.
func (n *node[T]) Reclaim() {
	n.owner.free(n)
}

// allocator supplies nodes and takes them back after reclamation.
type allocator[T any] interface {
	alloc() *node[T]
	free(n *node[T])
}

// nodePool recycles reclaimed nodes through a sync.Pool.
//
// A node is handed back only after the reclaimer proves it unobservable,
// so a recycled node can never be confused with the one a stale reader
// still holds.
type nodePool[T any] struct {
	pool sync.Pool
}

func newNodePool[T any]() *nodePool[T] {
	p := &nodePool[T]{}
	p.pool.New = func() any {
		return &node[T]{owner: p}
	}
	return p
}

func (p *nodePool[T]) alloc() *node[T] {
	return p.pool.Get().(*node[T])
}

func (p *nodePool[T]) free(n *node[T]) {
	var zero T
	n.value = zero
	n.next.Store(nil)
	p.pool.Put(n)
}
