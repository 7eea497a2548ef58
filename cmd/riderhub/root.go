// README: Root command and shared --config flag.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "riderhub",
	Short: "Delivery-driver core service",
	Long: `riderhub runs the driver side of a delivery platform: a live offer pool with
countdowns, the accept gate, the active-delivery lifecycle with photo and code
proof, and per-driver earnings.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml); RIDERHUB_* env vars override it")
	rootCmd.AddCommand(serveCmd, simulateCmd, migrateCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
