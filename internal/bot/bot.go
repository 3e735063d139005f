// Package bot is the chat front-end: it long-polls Telegram for updates,
// dispatches commands and file attachments, and replies with results. All
// cloud interaction happens through the upload pipeline; the bot itself only
// talks to Telegram and the ledger.
package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tonimelisma/drivebot-go/internal/ledger"
	"github.com/tonimelisma/drivebot-go/internal/pipeline"
	"github.com/tonimelisma/drivebot-go/internal/telegram"
)

// pollRetryDelay is the pause after a failed getUpdates call before the
// next attempt. Telegram outages are transient; the loop never gives up on
// retryable errors.
const pollRetryDelay = 3 * time.Second

// Messenger is the Telegram surface the bot needs. Satisfied by
// *telegram.Client; tests supply a fake.
type Messenger interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	EditMessageText(ctx context.Context, params telegram.EditMessageParams) error
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	DownloadFile(ctx context.Context, filePath string, w io.Writer) (int64, error)
}

// Options tune the polling loop.
type Options struct {
	// PollTimeout is the server-side long-poll hold for getUpdates.
	PollTimeout time.Duration
	// HandlerTimeout bounds the processing of a single update, including
	// the Telegram download and the cloud upload.
	HandlerTimeout time.Duration
	// TempDir is where in-flight files are staged. Empty means the system
	// default.
	TempDir string
}

// Bot processes one update at a time. Single-threaded on purpose: the
// getUpdates offset is the only acknowledgement mechanism, and advancing it
// past an unprocessed update would drop the update on restart.
type Bot struct {
	tg     Messenger
	pipe   *pipeline.Pipeline
	store  ledger.Store
	opts   Options
	logger *slog.Logger

	offset int64
}

// New creates a Bot. store may not be nil; use ledger.NewMemoryStore for
// ephemeral runs.
func New(tg Messenger, pipe *pipeline.Pipeline, store ledger.Store, opts Options, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bot{
		tg:     tg,
		pipe:   pipe,
		store:  store,
		opts:   opts,
		logger: logger,
	}
}

// Run polls for updates until ctx is cancelled. It returns non-nil for
// fatal conditions only: context cancellation, a rejected bot token, or a
// competing poller on the same token. All other errors are logged and
// retried.
func (b *Bot) Run(ctx context.Context) error {
	for {
		updates, err := b.tg.GetUpdates(ctx, b.offset, b.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if errors.Is(err, telegram.ErrUnauthorized) {
				return err
			}

			// 409 means another process is polling with this token.
			// Continuing would make both pollers lose updates.
			if errors.Is(err, telegram.ErrConflict) {
				return err
			}

			b.logger.Warn("getUpdates failed, retrying",
				slog.String("error", err.Error()),
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollRetryDelay):
			}

			continue
		}

		for _, upd := range updates {
			// Acknowledge before handling: a poisoned update must not
			// wedge the bot in a crash loop.
			b.offset = upd.UpdateID + 1
			b.handleUpdate(ctx, upd)
		}
	}
}

// handleUpdate dispatches a single update under the handler timeout.
// Handler errors never propagate to the poll loop.
func (b *Bot) handleUpdate(ctx context.Context, upd telegram.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}

	hctx := ctx
	if b.opts.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, b.opts.HandlerTimeout)
		defer cancel()
	}

	var err error
	switch command(msg.Text) {
	case "/start":
		err = b.handleStart(hctx, msg)
	case "/help":
		err = b.handleHelp(hctx, msg)
	case "/myfiles":
		err = b.handleMyFiles(hctx, msg)
	default:
		att := pickAttachment(msg)
		if att == nil {
			// Plain text or an unsupported attachment kind. Stay quiet;
			// replying to every stray message makes group chats unusable.
			return
		}
		err = b.handleFile(hctx, msg, att)
	}

	if err != nil {
		b.logger.Error("update handler failed",
			slog.Int64("update_id", upd.UpdateID),
			slog.Int64("chat_id", msg.Chat.ID),
			slog.String("error", err.Error()),
		)
	}
}

// command extracts the command from a message's first token, stripping the
// @botname suffix group chats append. Returns "" for non-command text, and
// an unrecognized command ("/startxyz") stays unrecognized rather than
// matching a prefix.
func command(text string) string {
	tok, _, _ := strings.Cut(text, " ")
	if !strings.HasPrefix(tok, "/") {
		return ""
	}

	if i := strings.IndexByte(tok, '@'); i >= 0 {
		tok = tok[:i]
	}

	return tok
}
