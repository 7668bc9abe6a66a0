// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command msqstress hammers an msq.MPMC queue with concurrent producers and
// consumers and verifies that every value comes out exactly once and in
// per-producer order.
package main

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := defaultConfig()
	var verbose bool

	cmd := &cobra.Command{
		Use:           "msqstress",
		Short:         "Stress test the Michael-Scott queue and its epoch collector",
		Example:       `  msqstress --producers 8 --consumers 8 --items 1000000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logrus.New()
			log.SetOutput(cmd.ErrOrStderr())
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			ctx := cmd.Context()
			if cfg.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
				defer cancel()
			}

			rep, err := run(ctx, cfg, log)
			fields := logrus.Fields{
				"enqueued":     rep.enqueued,
				"dequeued":     rep.dequeued,
				"elapsed":      rep.elapsed.Round(time.Millisecond),
				"epoch":        rep.epoch,
				"reclaimed":    rep.reclaimed,
				"pending":      rep.pending,
				"participants": rep.participants,
			}
			if err != nil {
				log.WithFields(fields).WithError(err).Error("stress run failed")
				return err
			}
			log.WithFields(fields).Info("stress run passed")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&cfg.producers, "producers", "p", cfg.producers, "Number of producer goroutines")
	flags.IntVarP(&cfg.consumers, "consumers", "c", cfg.consumers, "Number of consumer goroutines")
	flags.IntVarP(&cfg.items, "items", "n", cfg.items, "Values enqueued by each producer")
	flags.IntVar(&cfg.bagSize, "bag-size", cfg.bagSize, "Retired nodes buffered per participant before sealing")
	flags.DurationVar(&cfg.timeout, "timeout", cfg.timeout, "Abort the run after this long (0 disables)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log per-goroutine progress")
	return cmd
}
