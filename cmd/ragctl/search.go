package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/rossirpaulo/agihouse-hackathon/internal/app"
	"github.com/rossirpaulo/agihouse-hackathon/internal/service"
)

var (
	searchThreshold float32
	searchLimit     int
)

func init() {
	searchCmd.Flags().Float32Var(&searchThreshold, "threshold", 0, "minimum similarity (defaults to SEARCH_THRESHOLD)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (defaults to SEARCH_LIMIT)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve ranked context for a query",
	Long: `Embed the query, find similar chunks and rerank them, then print the
results as JSON. Unlike the HTTP endpoint, failures are reported.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	threshold := cfg.SearchThreshold
	if cmd.Flags().Changed("threshold") {
		if v := float64(searchThreshold); math.IsNaN(v) || v < -1 || v > 1 {
			return errors.New("threshold must be between -1 and 1")
		}
		threshold = searchThreshold
	}
	limit := cfg.SearchLimit
	if cmd.Flags().Changed("limit") {
		if searchLimit <= 0 {
			return errors.New("limit must be positive")
		}
		limit = searchLimit
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.Retrieval.Retrieve(ctx, args[0], threshold, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return outputSearchJSON(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []service.RankedResult) error {
	if results == nil {
		results = []service.RankedResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
