package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadpilot/internal/server"
)

// runDrainTimeout bounds how long shutdown waits for the in-flight lead.
const runDrainTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		// Runs outlive the signal so shutdown can stop them between items.
		runCtx, cancelRuns := context.WithCancel(context.WithoutCancel(ctx))
		defer cancelRuns()

		srv := server.New(runCtx, env.Pipeline, env.Credits, cfg.Server.AllowedOrigins)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.ListenAndServe(gctx, port) })
		g.Go(func() error { return env.Syncer.Run(gctx) })
		err = g.Wait()

		drainRun(env.Pipeline, cancelRuns, runDrainTimeout)
		return err
	},
}

// runner is the part of the orchestrator shutdown needs.
type runner interface {
	Running() bool
	Stop()
	Wait()
}

// drainRun stops an active run and lets its current item finish. If that
// takes longer than timeout the run context is cancelled, which leaves the
// item pending.
func drainRun(r runner, cancel context.CancelFunc, timeout time.Duration) {
	if r.Running() {
		zap.L().Info("waiting for active run to finish its current lead")
		r.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		zap.L().Warn("active run did not stop in time, cancelling", zap.Duration("timeout", timeout))
		cancel()
		<-done
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
