// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"unsafe"

	"code.hybscloud.com/msq/epoch"
)

// Options configures queue creation.
type Options struct {
	// Reclamation context for retired nodes (nil selects epoch.Default)
	reclaimer Reclaimer
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	// Default: process-wide epoch collector
//	q := msq.Build[Request](msq.New())
//
//	// Private collector with small bags
//	c := epoch.NewCollector(8)
//	q := msq.Build[Request](msq.New().Collector(c))
//
//	// Pointer queue sharing the same collector
//	p := msq.New().Collector(c).BuildPtr()
type Builder struct {
	opts Options
}

// New creates a queue builder.
func New() *Builder {
	return &Builder{}
}

// Reclaimer sets the reclamation context queues built by b retire their
// nodes through.
//
// Panics if r is nil.
func (b *Builder) Reclaimer(r Reclaimer) *Builder {
	if r == nil {
		panic("msq: nil reclaimer")
	}
	b.opts.reclaimer = r
	return b
}

// Collector is shorthand for Reclaimer(Epoch(c)).
func (b *Builder) Collector(c *epoch.Collector) *Builder {
	return b.Reclaimer(Epoch(c))
}

// Build creates an MPMC[T] queue.
func Build[T any](b *Builder) *MPMC[T] {
	return newMPMC[T](b.reclaimer(), newNodePool[T]())
}

// BuildPtr creates an MPMC queue for unsafe.Pointer values.
func (b *Builder) BuildPtr() *MPMCPtr {
	return &MPMCPtr{q: newMPMC[unsafe.Pointer](b.reclaimer(), newNodePool[unsafe.Pointer]())}
}

// BuildIndirect creates an MPMC queue for uintptr values.
func (b *Builder) BuildIndirect() *MPMCIndirect {
	return &MPMCIndirect{q: newMPMC[uintptr](b.reclaimer(), newNodePool[uintptr]())}
}

func (b *Builder) reclaimer() Reclaimer {
	if b.opts.reclaimer == nil {
		return Epoch(epoch.Default())
	}
	return b.opts.reclaimer
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padPtr is padding to fill cache line after pointer-sized field.
type padPtr [64 - ptrSize]byte
