package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xavierca1/prospect-crm/internal/entity"
	"github.com/xavierca1/prospect-crm/internal/usecase"
)

var seedAs string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a placeholder prospect",
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, db, err := openRepository()
		if err != nil {
			return err
		}
		defer db.Close()

		actor := entity.Actor{Email: seedAs}
		created, err := repo.Create(cmd.Context(), actor, usecase.PlaceholderProspect(actor, time.Now()))
		repo.Wait()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", created.ID, created.CompanyName)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAs, "as", "crmctl@localhost", "email recorded as owner and author")
	rootCmd.AddCommand(seedCmd)
}
