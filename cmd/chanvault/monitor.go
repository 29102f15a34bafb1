package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chanvault/internal/config"
	"chanvault/internal/metrics"
)

// Passes run back to back unless --interval asks for a pause.
const defaultMonitorInterval = 0

func newMonitorCmd(cfg *config.Config) *cobra.Command {
	var (
		board    string
		threadID uint64
		interval int
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Repeatedly sync a board or a thread until interrupted",
		Long: `Repeatedly sync a board or a thread until interrupted.

A thread monitor stops on its own after the first failed sync, which usually
means the thread was removed remotely. A board monitor runs until SIGINT or
SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := requireBoard(board)
			if err != nil {
				return err
			}
			id, single, err := threadFlag(cmd, threadID)
			if err != nil {
				return err
			}
			if interval < 0 {
				return fmt.Errorf("--interval must not be negative")
			}
			every := time.Duration(interval) * time.Second

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(cfg, func(a *app) error {
				if addr := cfg.Metrics.Addr; addr != "" {
					go serveMetrics(ctx, addr, a)
				}

				scheduler := a.scheduler()
				if single {
					return scheduler.MonitorThread(ctx, board, id, every)
				}
				return scheduler.MonitorBoard(ctx, board, every)
			})
		},
	}

	cmd.Flags().StringVar(&board, "board", "", "board slug (required)")
	cmd.Flags().Uint64Var(&threadID, "thread", 0, "monitor only this thread")
	cmd.Flags().IntVar(&interval, "interval", defaultMonitorInterval, "seconds between passes (0 = back to back)")
	return cmd
}

func serveMetrics(ctx context.Context, addr string, a *app) {
	logger := a.logger.With("component", "metrics")
	if err := metrics.Serve(ctx, addr, a.metrics, logger); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}
