// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/msq"
	"code.hybscloud.com/msq/epoch"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Values are encoded as producerID<<seqBits | sequence.
const seqBits = 40

type config struct {
	producers int
	consumers int
	items     int
	bagSize   int
	timeout   time.Duration
}

func defaultConfig() config {
	return config{
		producers: 4,
		consumers: 4,
		items:     100000,
		bagSize:   epoch.DefaultBagSize,
		timeout:   time.Minute,
	}
}

func (cfg config) validate() error {
	switch {
	case cfg.producers < 1:
		return fmt.Errorf("producers must be >= 1, got %d", cfg.producers)
	case cfg.consumers < 1:
		return fmt.Errorf("consumers must be >= 1, got %d", cfg.consumers)
	case cfg.items < 1 || uint64(cfg.items) >= 1<<seqBits:
		return fmt.Errorf("items out of range: %d", cfg.items)
	case cfg.bagSize < 1:
		return fmt.Errorf("bag size must be >= 1, got %d", cfg.bagSize)
	}
	return nil
}

type report struct {
	enqueued     uint64
	dequeued     uint64
	elapsed      time.Duration
	epoch        uint64
	reclaimed    uint64
	pending      int64
	participants int
}

var (
	errCount = errors.New("dequeued count differs from enqueued count")
	errSum   = errors.New("dequeued sum differs from enqueued sum")
	errOrder = errors.New("values from one producer dequeued out of order")
	errRange = errors.New("dequeued value was never enqueued")
)

// run drives cfg.producers producers and cfg.consumers consumers over one
// queue with a private collector, then checks conservation and
// per-producer FIFO order.
func run(ctx context.Context, cfg config, log logrus.FieldLogger) (report, error) {
	var rep report
	if err := cfg.validate(); err != nil {
		return rep, err
	}

	c := epoch.NewCollector(cfg.bagSize)
	q := msq.Build[uint64](msq.New().Collector(c))
	defer q.Close()

	total := uint64(cfg.producers) * uint64(cfg.items)
	var enqCount, deqCount, enqSum, deqSum atomix.Uint64

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)

	for p := range cfg.producers {
		g.Go(func() error {
			for i := range cfg.items {
				if i&0xfff == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				v := uint64(p)<<seqBits | uint64(i)
				q.Enqueue(&v)
				enqSum.AddAcqRel(v)
				enqCount.AddAcqRel(1)
			}
			log.WithField("producer", p).Debug("producer done")
			return nil
		})
	}

	for id := range cfg.consumers {
		g.Go(func() error {
			last := make([]int64, cfg.producers)
			for i := range last {
				last[i] = -1
			}
			backoff := iox.Backoff{}
			for deqCount.LoadAcquire() < total {
				if err := ctx.Err(); err != nil {
					return err
				}
				v, err := q.Dequeue()
				if err != nil {
					if !msq.IsNonFailure(err) {
						return fmt.Errorf("consumer %d: %w", id, err)
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()

				p, seq := int(v>>seqBits), int64(v&(1<<seqBits-1))
				if p >= cfg.producers || seq >= int64(cfg.items) {
					return fmt.Errorf("%w: %#x", errRange, v)
				}
				if seq <= last[p] {
					return fmt.Errorf("%w: producer %d seq %d after %d", errOrder, p, seq, last[p])
				}
				last[p] = seq
				deqSum.AddAcqRel(v)
				deqCount.AddAcqRel(1)
			}
			log.WithField("consumer", id).Debug("consumer done")
			return nil
		})
	}

	err := g.Wait()
	rep.elapsed = time.Since(start)
	rep.enqueued = enqCount.LoadAcquire()
	rep.dequeued = deqCount.LoadAcquire()

	c.Flush()
	rep.epoch = c.Epoch()
	rep.reclaimed = c.Reclaimed()
	rep.pending = c.Pending()
	rep.participants = c.Participants()

	if err != nil {
		return rep, err
	}
	if rep.enqueued != rep.dequeued {
		return rep, fmt.Errorf("%w: %d != %d", errCount, rep.dequeued, rep.enqueued)
	}
	if es, ds := enqSum.LoadAcquire(), deqSum.LoadAcquire(); es != ds {
		return rep, fmt.Errorf("%w: %d != %d", errSum, ds, es)
	}
	if _, err := q.Dequeue(); !msq.IsWouldBlock(err) {
		return rep, fmt.Errorf("%w: queue not empty after drain", errCount)
	}
	return rep, nil
}
