package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xavierca1/prospect-crm/internal/entity"
	"github.com/xavierca1/prospect-crm/internal/usecase"
)

var (
	listJSON   bool
	listSearch string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List prospects, newest first",
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
		prospects = usecase.FilterBySearch(prospects, listSearch)

		if listJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(prospects)
		}
		return renderProspects(cmd.OutOrStdout(), prospects)
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "filter by company or contact name")
	rootCmd.AddCommand(listCmd)
}

func renderProspects(w io.Writer, prospects []entity.Prospect) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPANY\tCONTACT\tSTAGE\tVALUE\tSTATUS")
	for _, p := range prospects {
		status := "active"
		if p.IsLost {
			status = "lost"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d. %s\t%.2f\t%s\n",
			p.ID, p.CompanyName, p.ContactName, p.CurrentStage, p.StageName(), p.Value(), status)
	}
	return tw.Flush()
}
