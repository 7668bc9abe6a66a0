// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package msq provides an unbounded lock-free FIFO queue.
//
// The queue implements the Michael-Scott non-blocking algorithm: a
// singly-linked list with atomic head and tail pointers, mutated only by
// compare-and-swap. Any number of goroutines may enqueue and dequeue
// concurrently; no goroutine ever waits on another.
//
// # Quick Start
//
//	q := msq.NewMPMC[Event]()
//
//	ev := Event{ID: 1}
//	q.Enqueue(&ev)
//
//	ev, err := q.Dequeue()
//	if msq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// Variants for pointers and indices avoid copying payloads:
//
//	p := msq.NewMPMCPtr()      // unsafe.Pointer
//	x := msq.NewMPMCIndirect() // uintptr
//
// # Semantics
//
//   - Enqueue never fails and never blocks.
//   - Dequeue returns [ErrWouldBlock] when the queue is empty at the instant
//     it looked. It never parks waiting for a producer.
//   - Values are delivered in the order of the CAS that linked them (FIFO).
//   - Every operation is linearizable.
//
// There is no capacity limit and no backpressure. Producers that can
// outrun consumers must bound themselves.
//
// # Memory Reclamation
//
// A dequeued node may still be read by a goroutine that loaded a pointer
// to it just before it was unlinked. Nodes are therefore never released at
// the moment they leave the list. They are retired through a [Reclaimer],
// which by default is the process-wide [epoch.Default] collector, and
// recycled only once every goroutine that could have observed them has
// unpinned.
//
// A private collector or a custom Reclaimer can be injected:
//
//	c := epoch.NewCollector(32)
//	q := msq.Build[Event](msq.New().Collector(c))
//
// # Progress
//
// Both operations are lock-free: under contention some goroutine's CAS
// always succeeds, though an individual call may retry. Retries back off
// with [spin.Wait].
//
// Consumers polling an empty queue should back off with [iox.Backoff]:
//
//	backoff := iox.Backoff{}
//	for {
//	    v, err := q.Dequeue()
//	    if err != nil {
//	        backoff.Wait()
//	        continue
//	    }
//	    backoff.Reset()
//	    process(v)
//	}
//
// # Teardown
//
// [MPMC.Close] releases every node still linked into the queue. It requires
// that no operation is in flight and none will start afterwards.
//
// # Race Detection
//
// The epoch collector uses atomix primitives, which the race detector does
// not observe as synchronization. Concurrent tests are skipped under -race;
// see [RaceEnabled].
//
// # Dependencies
//
//   - [code.hybscloud.com/atomix]: atomic primitives with explicit memory ordering
//   - [code.hybscloud.com/iox]: semantic errors (ErrWouldBlock)
//   - [code.hybscloud.com/spin]: CAS retry backoff
package msq
