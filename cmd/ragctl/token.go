package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rossirpaulo/agihouse-hackathon/internal/app"
)

var tokenSubject string

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "client the token is issued to (required)")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the search endpoint",
	Long: `Print a signed token accepted by ragd in the Authorization header.

The token is signed with JWT_SECRET and expires after JWT_EXPIRY.

Examples:
  ragctl token --subject voice-app`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tokens, err := app.NewTokenManager(cfg)
	if err != nil {
		return err
	}
	if tokens == nil {
		return errors.New("JWT_SECRET is not set")
	}

	token, err := tokens.GenerateToken(tokenSubject)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
