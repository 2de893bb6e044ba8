package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadpilot/internal/model"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and manage the lead collection",
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initState(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		status, _ := cmd.Flags().GetString("status")
		asJSON, _ := cmd.Flags().GetBool("json")

		leads := filterLeads(env.Leads.Snapshot(), model.LeadStatus(status))
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(leads)
		}
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}
		formatLeadsList(os.Stdout, leads)
		return nil
	},
}

// -- leads clear --

var leadsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every lead",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initState(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		n := env.Leads.Len()
		env.Leads.Clear()
		_, _ = fmt.Fprintf(os.Stdout, "Removed %d leads.\n", n)
		return nil
	},
}

func filterLeads(leads []model.Lead, status model.LeadStatus) []model.Lead {
	if status == "" {
		return leads
	}
	out := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out
}

func formatLeadsList(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tEMAIL\tPHONE\tSCORE\tAUTOMATION")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-----\t-----\t-----\t----------")

	for _, l := range leads {
		id := l.ID
		if len(id) > 8 {
			id = id[:8]
		}
		score := "-"
		if l.HealthScore != nil {
			score = fmt.Sprintf("%d", *l.HealthScore)
		}
		automation := string(l.AutomationStatus)
		if automation == "" {
			automation = string(model.AutomationIdle)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			id, l.Name, l.Status, l.Email, l.Phone, score, automation)
	}
	_ = w.Flush()
}

func init() {
	leadsListCmd.Flags().String("status", "", "filter by status (pending, completed, failed)")
	leadsListCmd.Flags().Bool("json", false, "print leads as JSON")
	leadsCmd.AddCommand(leadsListCmd, leadsClearCmd)
	rootCmd.AddCommand(leadsCmd)
}
