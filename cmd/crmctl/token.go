package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/xavierca1/prospect-crm/internal/auth"
)

var (
	tokenUser  string
	tokenEmail string
	tokenHours int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a session token for local development",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("SUPABASE_JWT_SECRET is required")
		}
		if tokenUser == "" {
			tokenUser = uuid.NewString()
		} else if _, err := uuid.Parse(tokenUser); err != nil {
			return fmt.Errorf("--user must be a UUID: %w", err)
		}

		hours := cfg.JWTExpirationHours
		if tokenHours > 0 {
			hours = tokenHours
		}
		token, err := auth.NewJWTService(cfg.JWTSecret, hours).GenerateToken(tokenUser, tokenEmail)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (random UUID when empty)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "user email")
	tokenCmd.Flags().IntVar(&tokenHours, "hours", 0, "lifetime in hours (JWT_EXPIRATION_HOURS when zero)")
	rootCmd.AddCommand(tokenCmd)
}
