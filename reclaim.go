// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import "code.hybscloud.com/msq/epoch"

// Reclaimer decides when nodes unlinked from a queue may be reused.
//
// The queue pins a guard around every operation and hands each node it
// unlinks to that guard instead of releasing it. A Reclaimer must never
// reclaim a node while a guard pinned before the node was retired is
// still held.
//
// The default Reclaimer is the process-wide [epoch.Default] collector.
// Tests may inject a Reclaimer that reclaims eagerly once it knows no
// other goroutine is active.
type Reclaimer interface {
	// Pin declares that the caller may observe nodes reachable from the
	// queue until the returned guard is unpinned.
	Pin() Guard

	// Unprotected returns a guard for contexts with no concurrent access,
	// such as construction and teardown. Retired nodes may be reclaimed
	// immediately.
	Unprotected() Guard
}

// Guard is a scoped pin obtained from a Reclaimer.
type Guard interface {
	// Retire schedules r for reclamation once no guard can observe it.
	Retire(r epoch.Reclaimable)

	// Unpin releases the guard. The guard must not be used afterwards.
	Unpin()
}

// Epoch adapts an epoch collector to the Reclaimer interface.
//
// Panics if c is nil.
func Epoch(c *epoch.Collector) Reclaimer {
	if c == nil {
		panic("msq: nil epoch collector")
	}
	return epochReclaimer{c: c}
}

type epochReclaimer struct {
	c *epoch.Collector
}

func (r epochReclaimer) Pin() Guard {
	return r.c.Pin()
}

func (r epochReclaimer) Unprotected() Guard {
	return r.c.Unprotected()
}
