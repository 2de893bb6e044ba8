package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadpilot/internal/model"
)

var sectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "List the sectors available for discovery",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatSectors(os.Stdout, model.Sectors())
		return nil
	},
}

func formatSectors(out io.Writer, sectors []model.Sector) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tLABEL")
	for _, s := range sectors {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", s.ID, s.Label)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(sectorsCmd)
}
