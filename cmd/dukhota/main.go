// Package main is the dukhota command: the duplicate-post bot for Telegram
// channels and offline tools to fingerprint and compare posts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dukhota",
		Short:         "♻️ dukhota: duplicate post detection for Telegram channels",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newFingerprintCmd())
	root.AddCommand(newCompareCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
