package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivebot-go/internal/ledger"
)

func newFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List files uploaded through the bot",
		RunE:  runFiles,
	}
}

func runFiles(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	store, err := ledger.NewSQLiteStore(resolvedCfg.LedgerPath, logger)
	if err != nil {
		return fmt.Errorf("opening upload ledger: %w", err)
	}
	defer store.Close()

	records, err := store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing uploads: %w", err)
	}

	if len(records) == 0 {
		statusf("No uploads recorded.\n")
		return nil
	}

	headers := []string{"UPLOADED", "SIZE", "NAME", "LINK"}
	rows := make([][]string, 0, len(records))

	for _, rec := range records {
		rows = append(rows, []string{
			formatTime(rec.UploadedAt),
			formatSize(rec.Size),
			rec.Name,
			rec.Link,
		})
	}

	printTable(os.Stdout, headers, rows)

	return nil
}
