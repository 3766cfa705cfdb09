package main

import (
	"context"
	"os"

	"github.com/sandevgo/nimbus/internal/config"
	"github.com/sandevgo/nimbus/pkg/log"
	"github.com/spf13/cobra"
)

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "nimbus",
	Short: "Nimbus, an autonomous weather agent",
	Long:  `Nimbus answers natural-language weather questions through a tool-calling agent loop with long-term per-user memory.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}
