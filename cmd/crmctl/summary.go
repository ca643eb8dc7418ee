package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xavierca1/prospect-crm/internal/usecase"
)

var summarySearch string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print pipeline metrics and per-stage counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, db, err := openRepository()
		if err != nil {
			return err
		}
		defer db.Close()

		prospects, err := repo.List(cmd.Context())
		if err != nil {
			return err
		}
		renderSummary(cmd.OutOrStdout(), usecase.BuildDashboard(prospects, summarySearch))
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVarP(&summarySearch, "search", "s", "", "restrict the stage columns to matching prospects")
	rootCmd.AddCommand(summaryCmd)
}

func renderSummary(w io.Writer, d usecase.Dashboard) {
	m := d.Metrics
	fmt.Fprintf(w, "Active: %d  Lost: %d  Total: %d\n", m.ActiveCount, m.LostCount, m.TotalCount)
	fmt.Fprintf(w, "Pipeline value: %.2f\n", m.TotalValue)
	fmt.Fprintf(w, "Average stage: %.1f\n", m.AverageStage)
	if d.Search != "" {
		fmt.Fprintf(w, "\nStages matching %q:\n", d.Search)
	} else {
		fmt.Fprintln(w, "\nStages:")
	}
	for _, col := range d.Columns {
		fmt.Fprintf(w, "  %d. %-30s %d\n", col.Stage, col.Name, col.Count)
	}
}
