// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package epoch

import "unsafe"

// Guard is a scoped pin on a Collector.
//
// While a guard is held, nothing retired after the guard was pinned is
// reclaimed. A guard is owned by the goroutine that pinned it and must not
// be shared or used after Unpin.
type Guard struct {
	c *Collector
	l *local // nil for unprotected guards
}

// Retire schedules r for reclamation once no pinned goroutine can still
// observe it. r must already be unreachable from the shared structure.
func (g *Guard) Retire(r Reclaimable) {
	if g.l == nil {
		r.Reclaim()
		g.c.reclaimed.AddAcqRel(1)
		return
	}
	g.c.retire(g.l, r)
}

// Defer schedules fn to run once no pinned goroutine can still observe the
// objects it releases.
func (g *Guard) Defer(fn func()) {
	g.Retire(ReclaimFunc(fn))
}

// Flush seals the objects this guard has buffered and attempts a
// collection without waiting for the bag to fill.
func (g *Guard) Flush() {
	if g.l == nil {
		return
	}
	g.c.seal(g.l)
	g.c.collect()
}

// Unpin releases the guard. Unprotected guards ignore Unpin.
//
// Panics if the guard is not pinned. Guards live in participant records
// that are reused across pins, so only an Unpin repeated before the record
// is claimed again is detected. An Unpin through a stale guard after
// another Pin has reused its record releases that newer pin.
func (g *Guard) Unpin() {
	if g.l == nil {
		return
	}
	if g.l.state.LoadRelaxed()&1 == 0 {
		panic("epoch: unpin of a guard that is not pinned")
	}
	g.c.release(g.l)
}

// Pinned reports whether the guard currently holds a pin.
func (g *Guard) Pinned() bool {
	return g.l != nil && g.l.state.LoadRelaxed()&1 == 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill a cache line after two 8-byte fields.
type padShort [64 - 2*unsafe.Sizeof(uint64(0))]byte
