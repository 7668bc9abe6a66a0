// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package epoch

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// DefaultBagSize is the number of retired objects a participant buffers
// before sealing them into a bag for collection.
const DefaultBagSize = 64

// collectEvery is the number of pins between opportunistic collections.
const collectEvery = 128

// Reclaimable is an object whose memory can be reused once no reader can
// observe it. Reclaim is called exactly once, from whichever goroutine
// happens to collect the bag holding it.
type Reclaimable interface {
	Reclaim()
}

// ReclaimFunc adapts a function to Reclaimable.
type ReclaimFunc func()

// Reclaim calls f.
func (f ReclaimFunc) Reclaim() { f() }

// Collector tracks the global epoch, the set of participants and the
// retired objects waiting for reclamation.
//
// Memory: one participant record per simultaneously pinned goroutine,
// plus one bag header per sealed batch of retired objects.
type Collector struct {
	_         pad
	epoch     atomix.Uint64 // Global epoch
	_         pad
	locals    atomic.Pointer[local] // Participant registry (push-only)
	_         pad
	garbage   atomic.Pointer[bag] // Sealed bags (Treiber stack)
	_         pad
	pending   atomix.Int64  // Retired, not yet reclaimed
	reclaimed atomix.Uint64 // Reclaimed so far
	bagSize   int
}

// local is a participant record. It is owned by at most one goroutine at a
// time; bag and pins are touched only by the owner.
type local struct {
	_     pad
	state atomix.Uint64 // epoch<<1 | pinned
	owned atomix.Uint64 // 1 while claimed by a goroutine
	_     padShort
	next  *local // Immutable once published
	bag   []Reclaimable
	pins  uint64
	guard Guard
}

// bag is a sealed batch of retired objects.
type bag struct {
	epoch uint64
	objs  []Reclaimable
	next  *bag
}

var defaultCollector = NewCollector(DefaultBagSize)

// Default returns the process-wide collector.
func Default() *Collector {
	return defaultCollector
}

// NewCollector creates a collector whose participants seal their retired
// objects into bags of bagSize entries.
//
// Panics if bagSize < 1.
func NewCollector(bagSize int) *Collector {
	if bagSize < 1 {
		panic("epoch: bag size must be >= 1")
	}
	return &Collector{bagSize: bagSize}
}

// Pin registers the calling goroutine as a reader of the current epoch.
//
// The returned guard must be released with Unpin on every exit path before
// the goroutine does anything else. Pins may nest; each Pin claims its own
// participant record.
func (c *Collector) Pin() *Guard {
	l := c.acquire()

	e := c.epoch.LoadAcquire()
	for {
		// The pin must be visible before any load of shared memory that
		// follows. A plain store may sit in the store buffer while those
		// loads complete, letting a collector miss the pin and reclaim
		// what this goroutine is about to read. The swap is a full fence.
		l.state.SwapAcqRel(e<<1 | 1)
		cur := c.epoch.LoadAcquire()
		if cur == e {
			break
		}
		e = cur
	}

	l.pins++
	if l.pins%collectEvery == 0 {
		c.collect()
	}
	return &l.guard
}

// Unprotected returns a guard that reclaims retired objects immediately.
// Only valid when no other goroutine can access the retired objects.
func (c *Collector) Unprotected() *Guard {
	return &Guard{c: c}
}

// Flush seals the retired objects buffered by every idle participant
// record and collects twice, enough for the freshly sealed bags to expire.
// When no goroutine is pinned, everything retired before Flush has been
// reclaimed by the time it returns.
//
// Records currently pinned keep their buffers; their owners seal them.
func (c *Collector) Flush() {
	for l := c.locals.Load(); l != nil; l = l.next {
		if l.owned.LoadRelaxed() == 0 && l.owned.CompareAndSwapAcqRel(0, 1) {
			c.seal(l)
			l.owned.StoreRelease(0)
		}
	}
	c.collect()
	c.collect()
}

// Collect attempts to advance the global epoch and reclaims every sealed
// bag old enough to be unobservable.
func (c *Collector) Collect() {
	c.collect()
}

// Epoch returns the current global epoch.
func (c *Collector) Epoch() uint64 {
	return c.epoch.LoadAcquire()
}

// Pending returns the number of retired objects not yet reclaimed,
// including those still buffered in participant bags.
func (c *Collector) Pending() int64 {
	return c.pending.LoadAcquire()
}

// Reclaimed returns the number of objects reclaimed so far.
func (c *Collector) Reclaimed() uint64 {
	return c.reclaimed.LoadAcquire()
}

// Participants returns the number of participant records ever registered.
func (c *Collector) Participants() int {
	n := 0
	for l := c.locals.Load(); l != nil; l = l.next {
		n++
	}
	return n
}

// acquire claims a free participant record, registering a new one if all
// existing records are in use.
func (c *Collector) acquire() *local {
	for l := c.locals.Load(); l != nil; l = l.next {
		if l.owned.LoadRelaxed() == 0 && l.owned.CompareAndSwapAcqRel(0, 1) {
			return l
		}
	}

	l := &local{bag: make([]Reclaimable, 0, c.bagSize)}
	l.owned.StoreRelaxed(1)
	l.guard = Guard{c: c, l: l}

	sw := spin.Wait{}
	for {
		head := c.locals.Load()
		l.next = head
		if c.locals.CompareAndSwap(head, l) {
			return l
		}
		sw.Once()
	}
}

// release returns a participant record to the registry.
func (c *Collector) release(l *local) {
	l.state.StoreRelease(0)
	l.owned.StoreRelease(0)
}

// retire buffers r in the owner's bag, sealing the bag when full.
func (c *Collector) retire(l *local, r Reclaimable) {
	c.pending.AddAcqRel(1)
	l.bag = append(l.bag, r)
	if len(l.bag) >= c.bagSize {
		c.seal(l)
		c.collect()
	}
}

// seal publishes the owner's buffered objects as a bag stamped with the
// current epoch. The epoch is read after every object in the bag was
// unlinked, so no reader pinned later can reach them.
func (c *Collector) seal(l *local) {
	if len(l.bag) == 0 {
		return
	}
	// Read through an RMW so the stamp cannot be satisfied before the
	// unlinking stores are visible.
	b := &bag{epoch: c.epoch.AddAcqRel(0), objs: l.bag}
	l.bag = make([]Reclaimable, 0, c.bagSize)
	c.push(b)
}

func (c *Collector) push(b *bag) {
	sw := spin.Wait{}
	for {
		head := c.garbage.Load()
		b.next = head
		if c.garbage.CompareAndSwap(head, b) {
			return
		}
		sw.Once()
	}
}

// tryAdvance moves the global epoch forward by one if every pinned
// participant has observed the current epoch. Returns the epoch after
// the attempt.
func (c *Collector) tryAdvance() uint64 {
	// Fence before scanning, pairing with the swap in Pin.
	g := c.epoch.AddAcqRel(0)
	for l := c.locals.Load(); l != nil; l = l.next {
		s := l.state.LoadAcquire()
		if s&1 == 1 && s>>1 != g {
			return g
		}
	}
	if c.epoch.CompareAndSwapAcqRel(g, g+1) {
		return g + 1
	}
	return c.epoch.LoadAcquire()
}

// collect detaches every sealed bag, reclaims those at least two epochs
// old and pushes the rest back.
func (c *Collector) collect() {
	g := c.tryAdvance()

	list := c.garbage.Swap(nil)
	for list != nil {
		b := list
		list = list.next
		if g >= b.epoch+2 {
			for i, r := range b.objs {
				r.Reclaim()
				b.objs[i] = nil
			}
			n := len(b.objs)
			c.pending.AddAcqRel(-int64(n))
			c.reclaimed.AddAcqRel(uint64(n))
			continue
		}
		c.push(b)
	}
}
