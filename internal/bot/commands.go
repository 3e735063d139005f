package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/tonimelisma/drivebot-go/internal/telegram"
)

// myFilesLimit caps the /myfiles listing so the reply stays under
// Telegram's message size limit.
const myFilesLimit = 25

func (b *Bot) handleStart(ctx context.Context, msg *telegram.Message) error {
	name := "there"
	if msg.From != nil && msg.From.FirstName != "" {
		name = msg.From.FirstName
	}

	_, err := b.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   fmt.Sprintf("Hi %s! 👋", name),
	})
	if err != nil {
		return fmt.Errorf("bot: sending greeting: %w", err)
	}

	return b.handleHelp(ctx, msg)
}

func (b *Bot) handleHelp(ctx context.Context, msg *telegram.Message) error {
	maxMB := b.pipe.MaxBytes() / (1024 * 1024)

	text := fmt.Sprintf(
		"🤖 *Welcome to the File to Cloud Bot!*\n\n"+
			"I can upload files you send me directly to Google Drive.\n\n"+
			"*How to use:*\n"+
			"1. Just send me any file (document, photo, video, audio).\n"+
			"2. I will upload it to the configured Google Drive folder.\n"+
			"3. I'll send you back the Google Drive link.\n\n"+
			"*Commands:*\n"+
			"/start - Start the bot\n"+
			"/help - Show this help message\n"+
			"/myfiles - List files you've uploaded via this bot\n\n"+
			"*File Size Limit:* %d MB per file.",
		maxMB,
	)

	_, err := b.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:    msg.Chat.ID,
		Text:      text,
		ParseMode: telegram.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("bot: sending help: %w", err)
	}

	return nil
}

func (b *Bot) handleMyFiles(ctx context.Context, msg *telegram.Message) error {
	records, err := b.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("bot: listing uploads: %w", err)
	}

	if len(records) == 0 {
		_, err = b.tg.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "You haven't uploaded any files yet using this bot.",
		})
		if err != nil {
			return fmt.Errorf("bot: sending empty file list: %w", err)
		}

		return nil
	}

	start := 0
	if len(records) > myFilesLimit {
		start = len(records) - myFilesLimit
	}

	var sb strings.Builder
	sb.WriteString("📂 *Your Uploaded Files:*\n\n")

	for i, rec := range records[start:] {
		if rec.Link != "" {
			fmt.Fprintf(&sb, "%d. [%s](%s)\n", start+i+1, escapeMarkdown(rec.Name), rec.Link)
		} else {
			fmt.Fprintf(&sb, "%d. %s (Link unavailable)\n", start+i+1, rec.Name)
		}
	}

	if len(records) > myFilesLimit {
		fmt.Fprintf(&sb, "\n_Showing the latest %d files._", myFilesLimit)
	}

	_, err = b.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:                msg.Chat.ID,
		Text:                  sb.String(),
		ParseMode:             telegram.ParseModeMarkdown,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("bot: sending file list: %w", err)
	}

	return nil
}

// markdownEscaper neutralizes the characters Telegram's legacy Markdown
// treats as formatting, so user-supplied filenames render literally.
var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"[", `\[`,
	"`", "\\`",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
