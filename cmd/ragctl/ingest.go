package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rossirpaulo/agihouse-hackathon/internal/app"
	"github.com/rossirpaulo/agihouse-hackathon/internal/ingestion"
	"github.com/rossirpaulo/agihouse-hackathon/internal/service"
)

var ingestDir string

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "directory of .txt documents (defaults to DATA_DIR)")
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a directory of text documents",
	Long: `Ingest every .txt file in a directory as one document.

A "<name>_metadata.txt" file next to "<name>.txt" supplies that document's
metadata. Documents that fail are logged and counted; the run goes on.

Examples:
  # Ingest DATA_DIR
  ragctl ingest

  # Ingest another directory
  ragctl ingest --dir ./corpus`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dir := ingestDir
	if dir == "" {
		dir = cfg.DataDir
	}

	sources, err := ingestion.LoadDir(dir, logger)
	if err != nil {
		return err
	}
	logger.Info("loaded documents", "dir", dir, "count", len(sources))

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	summary := a.Retrieval.IngestAll(ctx, sources)
	printIngestSummary(cmd, summary)

	if summary.Failed > 0 && len(summary.Documents) == 0 {
		return fmt.Errorf("all %d documents failed to ingest", summary.Failed)
	}
	return nil
}

func printIngestSummary(cmd *cobra.Command, summary service.IngestSummary) {
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d documents, %d failed.\n", len(summary.Documents), summary.Failed)
	for _, id := range summary.Documents {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
	}
}
