// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package epoch_test

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/msq"
	"code.hybscloud.com/msq/epoch"
)

// =============================================================================
// Epoch Rules
// =============================================================================

// TestCollectAdvancesWhenIdle verifies the epoch moves by one per collection
// when nothing is pinned.
func TestCollectAdvancesWhenIdle(t *testing.T) {
	c := epoch.NewCollector(epoch.DefaultBagSize)
	for i := range 5 {
		if got := c.Epoch(); got != uint64(i) {
			t.Fatalf("Epoch before Collect %d: got %d, want %d", i, got, i)
		}
		c.Collect()
	}
}

// TestPinnedStaleBlocksAdvance verifies a participant pinned in an older
// epoch holds the global epoch at most one step ahead of it.
func TestPinnedStaleBlocksAdvance(t *testing.T) {
	c := epoch.NewCollector(epoch.DefaultBagSize)
	g := c.Pin()

	for range 10 {
		c.Collect()
	}
	if got := c.Epoch(); got != 1 {
		t.Fatalf("Epoch with stale pin: got %d, want 1", got)
	}

	g.Unpin()
	c.Collect()
	if got := c.Epoch(); got != 2 {
		t.Fatalf("Epoch after unpin: got %d, want 2", got)
	}
}

// TestRetireDeferredWhilePinned verifies an object retired while another
// guard is pinned survives until that guard unpins.
func TestRetireDeferredWhilePinned(t *testing.T) {
	c := epoch.NewCollector(1)

	reader := c.Pin()
	writer := c.Pin()

	reclaimed := false
	writer.Defer(func() { reclaimed = true })
	writer.Unpin()

	for range 10 {
		c.Collect()
	}
	if reclaimed {
		t.Fatal("object reclaimed while a reader from its epoch is pinned")
	}
	if got := c.Pending(); got != 1 {
		t.Fatalf("Pending: got %d, want 1", got)
	}

	reader.Unpin()
	c.Collect()
	c.Collect()
	if !reclaimed {
		t.Fatal("object not reclaimed after reader unpinned")
	}
	if got := c.Pending(); got != 0 {
		t.Fatalf("Pending: got %d, want 0", got)
	}
	if got := c.Reclaimed(); got != 1 {
		t.Fatalf("Reclaimed: got %d, want 1", got)
	}
}

// TestRetireNotReclaimedSameEpoch verifies a sealed bag survives until the
// epoch has advanced twice past its seal epoch.
func TestRetireNotReclaimedSameEpoch(t *testing.T) {
	c := epoch.NewCollector(1)

	var n int
	g := c.Pin()
	g.Defer(func() { n++ }) // Sealed at epoch 0, one advance happens here
	if n != 0 {
		t.Fatalf("reclaimed during Retire: n=%d", n)
	}
	g.Unpin()

	c.Collect() // Epoch 2: expires
	if n != 1 {
		t.Fatalf("reclaim count: got %d, want 1", n)
	}
}

// TestUnprotectedReclaimsImmediately verifies unprotected guards bypass
// deferral.
func TestUnprotectedReclaimsImmediately(t *testing.T) {
	c := epoch.NewCollector(epoch.DefaultBagSize)
	g := c.Unprotected()

	ran := false
	g.Defer(func() { ran = true })
	if !ran {
		t.Fatal("unprotected Defer did not run immediately")
	}
	if g.Pinned() {
		t.Fatal("unprotected guard reports pinned")
	}
	g.Unpin()
	g.Unpin()

	if got := c.Reclaimed(); got != 1 {
		t.Fatalf("Reclaimed: got %d, want 1", got)
	}
	if got := c.Pending(); got != 0 {
		t.Fatalf("Pending: got %d, want 0", got)
	}
}

// TestFlushReclaimsPartialBags verifies Flush reclaims objects still
// buffered in idle participant records.
func TestFlushReclaimsPartialBags(t *testing.T) {
	c := epoch.NewCollector(64)

	var n int
	for range 10 {
		g := c.Pin()
		for range 7 {
			g.Defer(func() { n++ })
		}
		g.Unpin()
	}
	if got := c.Pending(); got != 70 {
		t.Fatalf("Pending before Flush: got %d, want 70", got)
	}

	c.Flush()
	if n != 70 {
		t.Fatalf("reclaim count after Flush: got %d, want 70", n)
	}
	if got := c.Pending(); got != 0 {
		t.Fatalf("Pending after Flush: got %d, want 0", got)
	}
}

// TestGuardFlush verifies a pinned guard can seal its own buffer early.
func TestGuardFlush(t *testing.T) {
	c := epoch.NewCollector(64)

	var n int
	g := c.Pin()
	g.Defer(func() { n++ })
	g.Flush()
	g.Unpin()

	c.Collect()
	c.Collect()
	if n != 1 {
		t.Fatalf("reclaim count: got %d, want 1", n)
	}
}

// =============================================================================
// Participant Registry
// =============================================================================

// TestParticipantReuse verifies sequential pins share one record and
// nested pins claim distinct records.
func TestParticipantReuse(t *testing.T) {
	c := epoch.NewCollector(epoch.DefaultBagSize)

	for range 100 {
		c.Pin().Unpin()
	}
	if got := c.Participants(); got != 1 {
		t.Fatalf("Participants after sequential pins: got %d, want 1", got)
	}

	outer := c.Pin()
	inner := c.Pin()
	if !outer.Pinned() || !inner.Pinned() {
		t.Fatal("nested guards not pinned")
	}
	if outer == inner {
		t.Fatal("nested pins share a guard")
	}
	inner.Unpin()
	outer.Unpin()

	if got := c.Participants(); got != 2 {
		t.Fatalf("Participants after nested pins: got %d, want 2", got)
	}
}

// TestUnpinTwicePanics verifies double release is caught.
func TestUnpinTwicePanics(t *testing.T) {
	c := epoch.NewCollector(epoch.DefaultBagSize)
	g := c.Pin()
	g.Unpin()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on second Unpin")
		}
	}()
	g.Unpin()
}

// TestNewCollectorPanics verifies bag size validation.
// TestGuardReusedAcrossPins checks that a sequential re-pin hands out the
// record's guard again, which is why a stale Unpin cannot be told apart.
func TestGuardReusedAcrossPins(t *testing.T) {
	c := epoch.NewCollector(epoch.DefaultBagSize)
	first := c.Pin()
	first.Unpin()
	if first.Pinned() {
		t.Fatal("guard still pinned after Unpin")
	}

	second := c.Pin()
	defer second.Unpin()
	if second != first {
		t.Fatal("sequential pin did not reuse the participant record")
	}
	if !first.Pinned() {
		t.Fatal("reused guard not pinned")
	}
}

func TestNewCollectorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for bag size 0")
		}
	}()
	epoch.NewCollector(0)
}

// TestDefaultShared verifies Default returns the process-wide collector.
func TestDefaultShared(t *testing.T) {
	if epoch.Default() != epoch.Default() {
		t.Fatal("Default returned distinct collectors")
	}
}

// =============================================================================
// Concurrency
// =============================================================================

// TestConcurrentRetire verifies every object retired under contention is
// reclaimed exactly once.
func TestConcurrentRetire(t *testing.T) {
	if msq.RaceEnabled {
		t.Skip("skip: atomix hand-off is invisible to the race detector")
	}

	const (
		workers = 8
		perW    = 5000
	)
	c := epoch.NewCollector(16)
	counts := make([]atomix.Int32, workers*perW)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perW {
				idx := w*perW + i
				g := c.Pin()
				g.Defer(func() { counts[idx].Add(1) })
				g.Unpin()
				if i%64 == 0 {
					runtime.Gosched()
				}
			}
		}()
	}
	wg.Wait()
	c.Flush()

	if got := c.Pending(); got != 0 {
		t.Fatalf("Pending: got %d, want 0", got)
	}
	if got := c.Reclaimed(); got != workers*perW {
		t.Fatalf("Reclaimed: got %d, want %d", got, workers*perW)
	}
	for i := range counts {
		if n := counts[i].Load(); n != 1 {
			t.Fatalf("object %d reclaimed %d times", i, n)
		}
	}
}

// TestConcurrentReaderProtection verifies an object observed by a pinned
// reader is never reclaimed before the reader unpins.
func TestConcurrentReaderProtection(t *testing.T) {
	if msq.RaceEnabled {
		t.Skip("skip: atomix hand-off is invisible to the race detector")
	}

	c := epoch.NewCollector(4)
	var live atomix.Int64
	live.Store(1)

	reader := c.Pin()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				g := c.Pin()
				g.Defer(func() {})
				g.Unpin()
			}
		}()
	}

	g := c.Pin()
	g.Defer(func() { live.Store(0) })
	g.Unpin()

	wg.Wait()
	for range 10 {
		c.Collect()
	}
	if live.Load() != 1 {
		t.Fatal("object reclaimed while an earlier reader is pinned")
	}

	reader.Unpin()
	c.Flush()
	if live.Load() != 0 {
		t.Fatal("object not reclaimed after reader unpinned")
	}
}

// =============================================================================
// Examples
// =============================================================================

// TestPinnedReaderSeesLiveObject has readers pin, load a shared object and
// check it while writers swap in replacements and retire the old ones with
// single-object bags. A retired object is poisoned when reclaimed, so a
// reader that observes poison held a reference across reclamation.
func TestPinnedReaderSeesLiveObject(t *testing.T) {
	if msq.RaceEnabled {
		t.Skip("skip: atomix hand-off is invisible to the race detector")
	}

	type object struct {
		live atomix.Uint64
	}
	const (
		numReaders = 4
		numWriters = 2
		swaps      = 20000
	)

	c := epoch.NewCollector(1)
	var shared atomic.Pointer[object]
	first := &object{}
	first.live.StoreRelease(1)
	shared.Store(first)

	var stop atomix.Bool
	var poisoned atomix.Int64
	var wg sync.WaitGroup

	for range numReaders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				g := c.Pin()
				if o := shared.Load(); o.live.LoadAcquire() != 1 {
					poisoned.Add(1)
				}
				g.Unpin()
			}
		}()
	}

	var writers sync.WaitGroup
	for range numWriters {
		writers.Add(1)
		go func() {
			defer writers.Done()
			for range swaps {
				n := &object{}
				n.live.StoreRelease(1)
				g := c.Pin()
				old := shared.Swap(n)
				g.Defer(func() { old.live.StoreRelease(0) })
				g.Unpin()
				c.Collect()
			}
		}()
	}
	writers.Wait()
	stop.Store(true)
	wg.Wait()

	if n := poisoned.Load(); n != 0 {
		t.Fatalf("readers observed %d reclaimed objects while pinned", n)
	}
	c.Flush()
	if got, want := c.Reclaimed(), uint64(numWriters*swaps); got != want {
		t.Fatalf("Reclaimed: got %d, want %d", got, want)
	}
}

func ExampleCollector() {
	c := epoch.NewCollector(8)

	reader := c.Pin()

	writer := c.Pin()
	writer.Defer(func() { fmt.Println("reclaimed") })
	writer.Unpin()

	c.Flush()
	fmt.Println("reader still pinned")

	reader.Unpin()
	c.Flush()

	// Output:
	// reader still pinned
	// reclaimed
}
