package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/export"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the lead collection to a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		env, err := initState(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		path := exportOutput
		if path == "" {
			path = export.Filename(format, time.Now())
		}
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", path)
		}

		leads := env.Leads.Snapshot()
		if err := export.Write(f, format, leads); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "export: close %s", path)
		}

		zap.L().Info("export written", zap.String("path", path), zap.Int("leads", len(leads)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path (default leadpilot_leads_<date>.<format>)")
	rootCmd.AddCommand(exportCmd)
}
