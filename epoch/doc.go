// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package epoch provides epoch-based deferred reclamation for lock-free
// data structures.
//
// A goroutine pins itself before touching shared nodes and unpins when it
// is done. Objects unlinked from a structure are retired through the guard
// instead of being released immediately. A retired object is reclaimed
// only after the global epoch has advanced twice past the epoch it was
// retired in, which happens only once every goroutine that could have
// observed it has unpinned.
//
// # Usage
//
//	c := epoch.Default()
//
//	g := c.Pin()
//	defer g.Unpin()
//	old := head.Load()
//	if head.CompareAndSwap(old, old.next.Load()) {
//	    g.Retire(old) // old.Reclaim() runs once no reader can hold it
//	}
//
// # Epoch Rules
//
//   - The epoch advances from E to E+1 only when every pinned participant
//     has published E.
//   - Objects retired while the epoch is E are reclaimed once the epoch
//     reaches E+2.
//   - A pinned goroutine therefore delays reclamation by at most two epochs.
//
// Reclamation never happens early; it can only happen late. Holding a guard
// across unrelated long-running work retains memory, it does not break
// safety.
//
// # Participants
//
// Go has no thread-local storage, so a participant record is claimed from a
// lock-free registry on every Pin and released on Unpin. The registry grows
// to the maximum number of simultaneously pinned goroutines and never
// shrinks.
//
// # Unprotected Access
//
// [Collector.Unprotected] returns a guard whose Retire reclaims immediately.
// Use it only where no concurrent access is possible, such as construction
// and teardown.
package epoch
