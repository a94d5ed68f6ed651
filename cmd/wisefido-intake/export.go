package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wisefido-intake/internal/common/database"
	"wisefido-intake/internal/config"
	"wisefido-intake/internal/export"
	"wisefido-intake/internal/repository"
)

func newExportCmd() *cobra.Command {
	var (
		outPath string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recent submissions to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.DBEnabled {
				return fmt.Errorf("submission audit is disabled (set DB_ENABLED=true)")
			}
			if outPath == "" {
				outPath = fmt.Sprintf("submissions_%s.xlsx", time.Now().Format("20060102_150405"))
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := database.NewPostgresDB(ctx, &cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close(db)

			rows, err := repository.NewSubmissionRepository(db, zap.NewNop()).ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			data, err := export.GenerateSubmissionsExport(rows)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d submissions to %s\n", len(rows), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default submissions_<timestamp>.xlsx)")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of submissions to export")
	return cmd
}
