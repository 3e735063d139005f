package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/drivebot-go/internal/auth"
	"github.com/tonimelisma/drivebot-go/internal/bot"
	"github.com/tonimelisma/drivebot-go/internal/config"
	"github.com/tonimelisma/drivebot-go/internal/drive"
	"github.com/tonimelisma/drivebot-go/internal/ledger"
	"github.com/tonimelisma/drivebot-go/internal/pipeline"
	"github.com/tonimelisma/drivebot-go/internal/telegram"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot and poll for messages",
		RunE:  runRun,
	}
}

func runRun(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	cfg := resolvedCfg

	if cfg.BotToken == "" {
		return fmt.Errorf("bot token missing: set %s or bot_token in the config file", config.EnvBotToken)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The long poll holds the connection server-side for the full poll
	// timeout, so the poll client's deadline must exceed it. File
	// downloads are not subject to this deadline; the client streams
	// them under the per-update handler context instead.
	pollClient := &http.Client{Timeout: cfg.PollTimeout + cfg.HTTPTimeout}
	tg := telegram.NewClient(telegram.DefaultBaseURL, cfg.BotToken, pollClient, logger)

	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verifying bot token: %w", err)
	}

	logger.Info("bot token verified", "username", me.Username, "bot_id", me.ID)

	provider := auth.NewFileProvider(auth.Paths{
		CredentialsPath: cfg.CredentialsPath,
		TokenPath:       cfg.TokenPath,
	}, logger)

	// Startup auth check mirrors the login state to the operator early.
	// The bot still starts without credentials; uploads fail with a hint
	// until the operator runs login.
	if _, err := provider.TokenSource(ctx); err != nil {
		logger.Warn("Google Drive not authorized, uploads will fail until 'drivebot login' is run",
			"error", err.Error())
		statusf("Warning: not authorized with Google Drive. Run 'drivebot login'.\n")
	}

	svc, err := drive.NewService(ctx, auth.DeferredSource(ctx, provider), logger)
	if err != nil {
		return fmt.Errorf("creating Drive client: %w", err)
	}

	store, err := ledger.NewSQLiteStore(cfg.LedgerPath, logger)
	if err != nil {
		return fmt.Errorf("opening upload ledger: %w", err)
	}
	defer store.Close()

	pipe := pipeline.New(svc, cfg.DestinationFolderID, cfg.MaxFileBytes, logger)

	b := bot.New(tg, pipe, store, bot.Options{
		PollTimeout:    cfg.PollTimeout,
		HandlerTimeout: cfg.HandlerTimeout,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	// A login or logout from another process rewrites the token file; pick
	// it up without a restart.
	events, watchErr := auth.Watch(gctx, cfg.TokenPath, logger)
	if watchErr != nil {
		logger.Warn("token file watch unavailable, restart after re-authorizing",
			"error", watchErr.Error())
	} else {
		g.Go(func() error {
			for range events {
				logger.Info("token file changed, reloading credentials")
				provider.Invalidate()
			}

			return nil
		})
	}

	g.Go(func() error {
		return b.Run(gctx)
	})

	statusf("Bot @%s is running. Press Ctrl-C to stop.\n", me.Username)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	statusf("Bot stopped.\n")

	return nil
}
