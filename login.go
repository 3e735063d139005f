package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/drivebot-go/internal/auth"
	"github.com/tonimelisma/drivebot-go/internal/drive"
	"github.com/tonimelisma/drivebot-go/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize the bot's Google Drive access in a browser",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved Google Drive token",
		RunE:  runLogout,
	}
}

func runLogin(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	logger.Info("login started", "token_path", resolvedCfg.TokenPath)

	paths := auth.Paths{
		CredentialsPath: resolvedCfg.CredentialsPath,
		TokenPath:       resolvedCfg.TokenPath,
	}

	tok, err := auth.LoginWithBrowser(ctx, paths, openURL, logger)
	if err != nil {
		return err
	}

	// Resolve which Google account authorized us and cache it alongside the
	// token so status can show it without a network call. Best effort: the
	// token is already saved.
	account, err := fetchAccountEmail(ctx, tok)
	if err != nil {
		logger.Warn("could not resolve account email", "error", err.Error())
	} else if err := tokenfile.Save(resolvedCfg.TokenPath, tok, account); err != nil {
		logger.Warn("could not cache account email", "error", err.Error())
	}

	logger.Info("login successful", "account", account)
	statusf("Login successful.\n")

	if account != "" {
		statusf("Authorized as %s.\n", account)
	}

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	logger.Info("logout started", "token_path", resolvedCfg.TokenPath)

	if err := tokenfile.Remove(resolvedCfg.TokenPath); err != nil {
		return fmt.Errorf("removing token: %w", err)
	}

	statusf("Logged out.\n")

	return nil
}

// fetchAccountEmail asks Drive who the token belongs to.
func fetchAccountEmail(ctx context.Context, tok *oauth2.Token) (string, error) {
	svc, err := drive.NewService(ctx, oauth2.StaticTokenSource(tok), buildLogger())
	if err != nil {
		return "", err
	}

	return svc.About(ctx)
}

// openURL launches the system browser with the authorization URL. On a
// non-interactive terminal (SSH session, service unit) launching a browser
// is pointless, so the URL is printed for the operator to open elsewhere.
func openURL(url string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("not an interactive terminal")
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
