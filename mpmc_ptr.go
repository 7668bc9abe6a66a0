// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"unsafe"

	"code.hybscloud.com/msq/epoch"
)

// MPMCPtr is an MPMC queue for unsafe.Pointer values.
//
// Pointers are transferred without copying the pointee. The producer hands
// ownership of the pointed-to object to whichever consumer dequeues it.
type MPMCPtr struct {
	q *MPMC[unsafe.Pointer]
}

// NewMPMCPtr creates a new MPMC queue for unsafe.Pointer values.
func NewMPMCPtr() *MPMCPtr {
	return &MPMCPtr{q: newMPMC[unsafe.Pointer](Epoch(epoch.Default()), newNodePool[unsafe.Pointer]())}
}

// Enqueue appends a pointer to the queue.
func (q *MPMCPtr) Enqueue(elem unsafe.Pointer) {
	q.q.Enqueue(&elem)
}

// Dequeue removes and returns the front pointer.
// Returns (nil, ErrWouldBlock) if the queue is empty.
func (q *MPMCPtr) Dequeue() (unsafe.Pointer, error) {
	return q.q.Dequeue()
}

// Close releases every node still linked into the queue.
func (q *MPMCPtr) Close() {
	q.q.Close()
}

// MPMCIndirect is an MPMC queue for uintptr values such as pool indices
// or handles.
type MPMCIndirect struct {
	q *MPMC[uintptr]
}

// NewMPMCIndirect creates a new MPMC queue for uintptr values.
func NewMPMCIndirect() *MPMCIndirect {
	return &MPMCIndirect{q: newMPMC[uintptr](Epoch(epoch.Default()), newNodePool[uintptr]())}
}

// Enqueue appends a value to the queue.
func (q *MPMCIndirect) Enqueue(elem uintptr) {
	q.q.Enqueue(&elem)
}

// Dequeue removes and returns the front value.
// Returns (0, ErrWouldBlock) if the queue is empty.
func (q *MPMCIndirect) Dequeue() (uintptr, error) {
	return q.q.Dequeue()
}

// Close releases every node still linked into the queue.
func (q *MPMCIndirect) Close() {
	q.q.Close()
}
