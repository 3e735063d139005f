package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tonimelisma/drivebot-go/internal/auth"
	"github.com/tonimelisma/drivebot-go/internal/drive"
	"github.com/tonimelisma/drivebot-go/internal/ledger"
	"github.com/tonimelisma/drivebot-go/internal/pipeline"
	"github.com/tonimelisma/drivebot-go/internal/telegram"
)

// attachment is the normalized view of whatever file kind a message
// carries.
type attachment struct {
	fileID   string
	name     string
	mimeType string
	size     int64
}

// pickAttachment extracts the uploadable attachment from a message, in
// precedence order: document, photo, video, audio, voice. Photos have no
// filename or declared MIME type, so both are synthesized; the same
// fallback applies to other kinds sent without a name.
func pickAttachment(msg *telegram.Message) *attachment {
	switch {
	case msg.Document != nil:
		doc := msg.Document
		name := doc.FileName
		if name == "" {
			name = "telegram_doc_" + doc.FileUniqueID
		}

		return &attachment{fileID: doc.FileID, name: name, mimeType: doc.MimeType, size: doc.FileSize}

	case len(msg.Photo) > 0:
		// Telegram sends several renditions of the same photo; relay the
		// largest one.
		best := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.Width*p.Height > best.Width*best.Height {
				best = p
			}
		}

		return &attachment{
			fileID:   best.FileID,
			name:     "telegram_photo_" + best.FileUniqueID + ".jpg",
			mimeType: "image/jpeg",
			size:     best.FileSize,
		}

	case msg.Video != nil:
		vid := msg.Video
		name := vid.FileName
		if name == "" {
			name = "telegram_video_" + vid.FileUniqueID + ".mp4"
		}

		return &attachment{fileID: vid.FileID, name: name, mimeType: vid.MimeType, size: vid.FileSize}

	case msg.Audio != nil:
		aud := msg.Audio
		name := aud.FileName
		if name == "" {
			name = "telegram_audio_" + aud.FileUniqueID + ".mp3"
		}

		return &attachment{fileID: aud.FileID, name: name, mimeType: aud.MimeType, size: aud.FileSize}

	case msg.Voice != nil:
		voc := msg.Voice
		mimeType := voc.MimeType
		if mimeType == "" {
			mimeType = "audio/ogg"
		}

		return &attachment{
			fileID:   voc.FileID,
			name:     "telegram_voice_" + voc.FileUniqueID + ".ogg",
			mimeType: mimeType,
			size:     voc.FileSize,
		}
	}

	return nil
}

// handleFile relays one attachment: size pre-check, download from Telegram
// to a temp file, upload through the pipeline, record in the ledger, and a
// final status edit with the shareable link. The status message is edited
// in place at each stage.
func (b *Bot) handleFile(ctx context.Context, msg *telegram.Message, att *attachment) error {
	if err := b.pipe.CheckSize(att.size); err != nil {
		b.logger.Info("rejecting oversized file",
			slog.String("name", att.name),
			slog.Int64("size", att.size),
		)

		return b.replyTooLarge(ctx, msg.Chat.ID, att)
	}

	status, err := b.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   fmt.Sprintf("⏳ Downloading '%s' from Telegram...", att.name),
	})
	if err != nil {
		return fmt.Errorf("bot: sending status message: %w", err)
	}

	tmp, err := os.CreateTemp(b.opts.TempDir, "drivebot-*")
	if err != nil {
		b.editStatus(ctx, status, "❌ An internal error occurred. Please try again later.")
		return fmt.Errorf("bot: creating temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			b.logger.Warn("failed to remove temp file",
				slog.String("path", tmp.Name()),
				slog.String("error", rmErr.Error()),
			)
		}
	}()

	size, err := b.downloadAttachment(ctx, att, tmp)
	if err != nil {
		b.editStatus(ctx, status, "❌ Error downloading file from Telegram. Please try again.")
		return fmt.Errorf("bot: downloading %q: %w", att.name, err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		b.editStatus(ctx, status, "❌ An internal error occurred. Please try again later.")
		return fmt.Errorf("bot: rewinding temp file: %w", err)
	}

	b.editStatus(ctx, status, fmt.Sprintf("⏳ Uploading '%s' to Google Drive...", att.name))

	res, err := b.pipe.Upload(ctx, tmp, size, att.name, att.mimeType)
	if err != nil {
		b.editStatus(ctx, status, uploadFailureText(err))
		return fmt.Errorf("bot: uploading %q: %w", att.name, err)
	}

	// A failed ledger write must not turn a successful upload into a
	// reported failure; the file is already in the cloud.
	rec := ledger.Record{
		Name:       res.Name,
		FileID:     res.FileID,
		Link:       res.Link,
		Size:       res.Size,
		UploadedAt: time.Now(),
	}
	if err := b.store.Append(ctx, rec); err != nil {
		b.logger.Warn("ledger append failed",
			slog.String("name", res.Name),
			slog.String("file_id", res.FileID),
			slog.String("error", err.Error()),
		)
	}

	b.editStatus(ctx, status, fmt.Sprintf(
		"✅ *Upload Successful!*\n\n📄 File: `%s`\n🔗 Link: %s",
		res.Name, res.Link,
	))

	b.logger.Info("file relayed",
		slog.String("name", res.Name),
		slog.String("file_id", res.FileID),
		slog.Int64("size", res.Size),
	)

	return nil
}

// downloadAttachment resolves the file_id and streams the bytes to w,
// returning the actual byte count. The count, not the declared size, is
// what the pipeline re-checks against the ceiling.
func (b *Bot) downloadAttachment(ctx context.Context, att *attachment, w *os.File) (int64, error) {
	f, err := b.tg.GetFile(ctx, att.fileID)
	if err != nil {
		return 0, err
	}

	return b.tg.DownloadFile(ctx, f.FilePath, w)
}

func (b *Bot) replyTooLarge(ctx context.Context, chatID int64, att *attachment) error {
	maxMB := b.pipe.MaxBytes() / (1024 * 1024)

	_, err := b.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf(
			"❌ *File Too Large!*\n\nThe file '%s' is %.2f MB. The maximum allowed size is %d MB.",
			att.name, float64(att.size)/1024/1024, maxMB,
		),
		ParseMode: telegram.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("bot: sending size rejection: %w", err)
	}

	return nil
}

// editStatus is best-effort: a lost status edit is cosmetic, and the real
// outcome is logged either way.
func (b *Bot) editStatus(ctx context.Context, status *telegram.Message, text string) {
	err := b.tg.EditMessageText(ctx, telegram.EditMessageParams{
		ChatID:    status.Chat.ID,
		MessageID: status.MessageID,
		Text:      text,
		ParseMode: telegram.ParseModeMarkdown,
	})
	if err != nil {
		b.logger.Warn("status edit failed",
			slog.Int64("chat_id", status.Chat.ID),
			slog.String("error", err.Error()),
		)
	}
}

// uploadFailureText maps a pipeline failure to the message shown to the
// user. Authorization problems get an actionable hint; everything else is
// generic on purpose, the details belong in the logs.
func uploadFailureText(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrFileTooLarge):
		return "❌ *File Too Large!*\n\nThe downloaded file exceeds the size limit."
	case errors.Is(err, auth.ErrNotAuthorized),
		errors.Is(err, auth.ErrAuthExpired),
		errors.Is(err, drive.ErrUnauthorized):
		return "⚠️ Could not connect to Google Drive. The bot needs to be re-authorized by its administrator."
	default:
		var uerr *pipeline.UploadError
		if errors.As(err, &uerr) && uerr.Op == "share" {
			return "❌ The file was uploaded but I couldn't create a shareable link."
		}

		return "❌ Google Drive upload failed. Please try again later."
	}
}
