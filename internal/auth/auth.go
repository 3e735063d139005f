// Package auth implements the Google OAuth credential lifecycle: loading the
// operator-supplied client secret descriptor, producing refreshing token
// sources that persist every refreshed token, and the interactive browser
// consent flow. It has no imports from config/ or drive/ — callers hand it
// file paths and compose the pieces.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tonimelisma/drivebot-go/internal/tokenfile"
)

// Drive scope: per-file access to files created or opened by the app.
// Changing the scope invalidates saved tokens — re-authorization required.
var scopes = []string{"https://www.googleapis.com/auth/drive.file"}

// Sentinel errors for the credential lifecycle. Check with errors.Is.
var (
	// ErrNotAuthorized means no usable credential exists (token file absent
	// or corrupt). Recovered only by the operator running the consent flow.
	ErrNotAuthorized = errors.New("auth: authorization required")

	// ErrAuthExpired means the saved credential could not be refreshed.
	// Recovered only by the operator re-running the consent flow.
	ErrAuthExpired = errors.New("auth: authorization expired")

	// ErrNoClientSecret means the operator-supplied credentials.json is
	// missing. It must be downloaded from the Google Cloud Console.
	ErrNoClientSecret = errors.New("auth: client secret file missing")
)

// Paths locates the two credential files on disk.
type Paths struct {
	// CredentialsPath is the OAuth client descriptor ("installed app" JSON)
	// supplied by the operator out-of-band.
	CredentialsPath string

	// TokenPath is the persisted refreshable token, overwritten atomically
	// on every refresh.
	TokenPath string
}

// TokenProvider yields an authorized token source for the storage provider.
// The bot consumes this interface so tests can supply a canned source
// without any browser interaction.
type TokenProvider interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// LoadClientConfig parses the operator-supplied client secret descriptor.
func LoadClientConfig(path string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoClientSecret, path)
	}

	if err != nil {
		return nil, fmt.Errorf("auth: reading client secret %s: %w", path, err)
	}

	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("auth: parsing client secret %s: %w", path, err)
	}

	return cfg, nil
}

// FileProvider is the production TokenProvider: it builds a refreshing,
// self-persisting token source from the files at Paths. The built source is
// cached so silent refreshes accumulate on one oauth2.ReuseTokenSource;
// Invalidate drops the cache when the operator replaces the token file.
type FileProvider struct {
	paths  Paths
	logger *slog.Logger

	mu      sync.Mutex
	cached  oauth2.TokenSource
	account string
}

// NewFileProvider creates a FileProvider. logger must not be nil.
func NewFileProvider(paths Paths, logger *slog.Logger) *FileProvider {
	return &FileProvider{paths: paths, logger: logger}
}

// TokenSource returns the authorized token source, building it on first use.
// A missing token file returns ErrNotAuthorized. A corrupt token file is
// treated identically to absence (logged, never a crash).
//
// ctx is bound to the underlying oauth2 token source and must outlive it —
// pass the process-lifetime context, not a per-request one.
func (p *FileProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return p.cached, nil
	}

	src, account, err := tokenSourceFromPath(ctx, p.paths, p.logger)
	if err != nil {
		return nil, err
	}

	p.cached = src
	p.account = account

	return src, nil
}

// Invalidate drops the cached token source so the next TokenSource call
// reloads from disk. Called when the token file changes out-of-band.
func (p *FileProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cached = nil
	p.account = ""
}

// Account returns the cached account email, if a source has been built.
func (p *FileProvider) Account() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.account
}

// tokenSourceFromPath loads the saved token and wraps it in a refreshing
// source that persists every new token to disk.
func tokenSourceFromPath(ctx context.Context, paths Paths, logger *slog.Logger) (oauth2.TokenSource, string, error) {
	cfg, err := LoadClientConfig(paths.CredentialsPath)
	if err != nil {
		return nil, "", err
	}

	tok, account, err := tokenfile.Load(paths.TokenPath)
	if errors.Is(err, tokenfile.ErrCorrupt) {
		// Corrupt is handled like absent: operator must re-authorize.
		logger.Warn("token file corrupt, re-authorization required",
			slog.String("path", paths.TokenPath),
			slog.String("error", err.Error()),
		)

		return nil, "", fmt.Errorf("%w: %s", ErrNotAuthorized, paths.TokenPath)
	}

	if err != nil {
		return nil, "", err
	}

	if tok == nil {
		return nil, "", fmt.Errorf("%w: no token at %s", ErrNotAuthorized, paths.TokenPath)
	}

	logger.Info("loaded saved token",
		slog.String("path", paths.TokenPath),
		slog.Time("expiry", tok.Expiry),
		slog.Bool("expired", !tok.Valid()),
	)

	saving := &savingSource{
		path:    paths.TokenPath,
		account: account,
		logger:  logger,
		last:    tok.AccessToken,
	}
	saving.src = oauth2.ReuseTokenSource(tok, cfg.TokenSource(ctx, tok))

	return saving, account, nil
}

// savingSource persists the token file whenever the wrapped source produced
// a new access token (i.e. after every silent refresh). The overwrite is
// atomic; see tokenfile.Save.
type savingSource struct {
	src     oauth2.TokenSource
	path    string
	account string
	logger  *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			// The refresh token was rejected by the authorization server.
			return nil, fmt.Errorf("%w: refresh rejected: %v", ErrAuthExpired, err)
		}

		return nil, fmt.Errorf("auth: obtaining token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.AccessToken != s.last {
		s.logger.Info("token refreshed, persisting",
			slog.String("path", s.path),
			slog.Time("new_expiry", t.Expiry),
		)

		if saveErr := tokenfile.Save(s.path, t, s.account); saveErr != nil {
			s.logger.Warn("failed to persist refreshed token",
				slog.String("path", s.path),
				slog.String("error", saveErr.Error()),
			)
		} else {
			s.last = t.AccessToken
		}
	}

	return t, nil
}

// DeferredSource adapts a TokenProvider into an oauth2.TokenSource that
// resolves the provider on every Token call. This lets long-lived HTTP
// clients be constructed before the user has authorized: the missing-token
// error surfaces per request instead of at construction time, and a later
// login (followed by Invalidate on the provider) takes effect without
// rebuilding the client.
func DeferredSource(ctx context.Context, p TokenProvider) oauth2.TokenSource {
	return &deferredSource{ctx: ctx, provider: p}
}

type deferredSource struct {
	ctx      context.Context
	provider TokenProvider
}

func (d *deferredSource) Token() (*oauth2.Token, error) {
	src, err := d.provider.TokenSource(d.ctx)
	if err != nil {
		return nil, err
	}

	return src.Token()
}

// StaticProvider is a TokenProvider returning a fixed token source.
// Used by tests and by pre-provisioned deployments.
type StaticProvider struct {
	Source oauth2.TokenSource
}

// TokenSource implements TokenProvider.
func (s StaticProvider) TokenSource(context.Context) (oauth2.TokenSource, error) {
	if s.Source == nil {
		return nil, ErrNotAuthorized
	}

	return s.Source, nil
}
