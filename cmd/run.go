package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/pipeline"
)

var (
	runSector    string
	runLocation  string
	runQuery     string
	runLimit     int
	runAutopilot bool
	runJSON      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover and enrich leads for one sector and location",
	Long:  "Runs discovery and enrichment in the foreground. Ctrl-C stops after the lead currently being analysed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		// A signal asks the run to stop after the current item instead of
		// abandoning it mid-lookup.
		sigCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stopSignals()
		go func() {
			<-sigCtx.Done()
			if env.Pipeline.Running() {
				zap.L().Info("stop requested, finishing current lead")
				env.Pipeline.Stop()
			}
		}()

		syncCtx, stopSync := context.WithCancel(ctx)
		syncDone := make(chan error, 1)
		go func() { syncDone <- env.Syncer.Run(syncCtx) }()

		report, err := env.Pipeline.Run(ctx, runParams())
		stopSync()
		if syncErr := <-syncDone; syncErr != nil {
			zap.L().Warn("session sync failed", zap.Error(syncErr))
		}
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("run_id", report.RunID),
			zap.String("outcome", string(report.Outcome)),
			zap.Int("discovered", report.Discovered),
			zap.Int("completed", report.Completed),
			zap.Int("failed", report.Failed),
			zap.Int("credits_used", report.CreditsUsed),
		)

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		formatRunReport(os.Stdout, report, env.Credits.Balance())
		return nil
	},
}

func runParams() pipeline.Params {
	sector := runSector
	if sector == "" {
		sector = cfg.Discovery.DefaultSector
	}
	return pipeline.Params{
		Query:     runQuery,
		SectorID:  sector,
		Location:  runLocation,
		Limit:     runLimit,
		Autopilot: runAutopilot,
	}
}

func formatRunReport(out io.Writer, r *pipeline.RunReport, balance int) {
	_, _ = fmt.Fprintf(out, "Run %s: %s\n", r.RunID, r.Outcome)
	_, _ = fmt.Fprintf(out, "  discovered %d, completed %d, failed %d, not processed %d\n",
		r.Discovered, r.Completed, r.Failed, r.Skipped)
	_, _ = fmt.Fprintf(out, "  credits used %d, remaining %d\n", r.CreditsUsed, balance)
	_, _ = fmt.Fprintf(out, "  took %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

func init() {
	runCmd.Flags().StringVar(&runSector, "sector", "", "sector id (default from config, see `leadpilot sectors`)")
	runCmd.Flags().StringVar(&runLocation, "location", "", "city or region (default from config)")
	runCmd.Flags().StringVar(&runQuery, "query", "", "free-text search; synthesized from sector and location when empty")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "maximum companies to discover (0 = config default)")
	runCmd.Flags().BoolVar(&runAutopilot, "autopilot", false, "forward completed leads to the automation webhook")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run report as JSON")
	rootCmd.AddCommand(runCmd)
}
