package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"riderhub/internal/modules/offer"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the offer feed and countdown headless and log pool churn",
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetDuration("duration")
		report, _ := cmd.Flags().GetDuration("report-every")
		if report <= 0 {
			report = 10 * time.Second
		}

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Offers.Feed.Enabled = true

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, duration)
			defer cancel()
		}

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		a.runBackground(ctx)

		ticker := time.NewTicker(report)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logChurn(log, a.pool, "simulation finished")
				return nil
			case <-ticker.C:
				logChurn(log, a.pool, "pool status")
			}
		}
	},
}

func init() {
	simulateCmd.Flags().Duration("duration", 5*time.Minute, "how long to run; 0 runs until interrupted")
	simulateCmd.Flags().Duration("report-every", 10*time.Second, "interval between pool reports")
}

func logChurn(log logrus.FieldLogger, pool *offer.Pool, msg string) {
	counts := map[offer.RemovalReason]int{}
	for _, r := range pool.Removals() {
		counts[r.Reason]++
	}
	log.WithFields(logrus.Fields{
		"live":     pool.Len(),
		"expired":  counts[offer.RemovedExpired],
		"accepted": counts[offer.RemovedAccepted],
		"declined": counts[offer.RemovedDeclined],
	}).Info(msg)
}
