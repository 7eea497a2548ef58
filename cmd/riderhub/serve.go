package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httptransport "riderhub/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the offer ticker, feed and verification monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		a.runBackground(ctx)

		server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.ServerDeps{
			Sessions: a.sessions,
			Pool:     a.pool,
			Live:     a.live,
			Offers:   cfg.Offers,
			Currency: cfg.Delivery.Currency,
			Log:      log,
		})
		return server.Run(ctx)
	},
}
