package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivebot-go/internal/ledger"
	"github.com/tonimelisma/drivebot-go/internal/tokenfile"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and authorization state",
		RunE:  runStatus,
	}
}

func runStatus(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	cfg := resolvedCfg

	fmt.Printf("Bot token:      %s\n", describeBotToken(cfg.BotToken))
	fmt.Printf("Target folder:  %s\n", describeFolder(cfg.DestinationFolderID))
	fmt.Printf("Size limit:     %s\n", formatSize(cfg.MaxFileBytes))
	fmt.Printf("Token file:     %s\n", cfg.TokenPath)
	fmt.Printf("Ledger:         %s\n", cfg.LedgerPath)

	tok, account, err := tokenfile.Load(cfg.TokenPath)
	switch {
	case errors.Is(err, tokenfile.ErrCorrupt):
		fmt.Printf("Google Drive:   token file unreadable, run 'drivebot login'\n")
	case err != nil:
		return fmt.Errorf("reading token: %w", err)
	case tok == nil:
		fmt.Printf("Google Drive:   not authorized, run 'drivebot login'\n")
	default:
		who := account
		if who == "" {
			who = "authorized"
		}

		if tok.Valid() {
			fmt.Printf("Google Drive:   %s (access token valid until %s)\n", who, formatTime(tok.Expiry))
		} else {
			fmt.Printf("Google Drive:   %s (access token expired, refresh on next upload)\n", who)
		}
	}

	store, err := ledger.NewSQLiteStore(cfg.LedgerPath, logger)
	if err != nil {
		return fmt.Errorf("opening upload ledger: %w", err)
	}
	defer store.Close()

	count, err := store.Count(context.Background())
	if err != nil {
		return fmt.Errorf("counting uploads: %w", err)
	}

	fmt.Printf("Uploads:        %d\n", count)

	return nil
}

func describeBotToken(token string) string {
	if token == "" {
		return "not set"
	}

	return "set"
}

func describeFolder(id string) string {
	if id == "" {
		return "Drive root"
	}

	return id
}
