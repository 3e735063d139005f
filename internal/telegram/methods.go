package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// GetMe returns the bot's own account. Used at startup to verify the token
// before polling begins.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}

	return &me, nil
}

// getUpdatesParams narrows the feed to message updates; everything else is
// noise for a file-relay bot.
type getUpdatesParams struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// GetUpdates long-polls for new updates. offset must be one past the last
// processed update ID so the server discards acknowledged updates. timeout
// is the server-side hold; the request context should allow for it plus
// network slack.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := getUpdatesParams{
		Offset:         offset,
		Timeout:        int(timeout.Seconds()),
		AllowedUpdates: []string{"message"},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}

	return updates, nil
}

// SendMessageParams are the options for SendMessage.
type SendMessageParams struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// SendMessage posts a message and returns it (the message ID is needed for
// later status edits).
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

// EditMessageParams are the options for EditMessageText.
type EditMessageParams struct {
	ChatID                int64  `json:"chat_id"`
	MessageID             int64  `json:"message_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// EditMessageText replaces the text of a previously sent message. Used for
// in-place status updates during an upload.
func (c *Client) EditMessageText(ctx context.Context, params EditMessageParams) error {
	return c.call(ctx, "editMessageText", params, nil)
}

// getFileParams is the request body for getFile.
type getFileParams struct {
	FileID string `json:"file_id"`
}

// GetFile resolves a file_id to a server-side download path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	var f File
	if err := c.call(ctx, "getFile", getFileParams{FileID: fileID}, &f); err != nil {
		return nil, err
	}

	return &f, nil
}

// DownloadFile streams the file at filePath (from GetFile) to w and returns
// the byte count. Download is a plain GET with no envelope; errors are
// classified by HTTP status. No retry — a broken transfer restarts from the
// caller via a fresh GetFile. The transfer is bounded only by ctx, not by
// the API client's timeout; a large file takes longer than any single API
// call is allowed to.
func (c *Client) DownloadFile(ctx context.Context, filePath string, w io.Writer) (int64, error) {
	url := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("telegram: creating download request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("telegram: downloading %s: %w", filePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &APIError{
			Code:        resp.StatusCode,
			Description: "file download failed",
			Err:         classifyCode(resp.StatusCode),
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("telegram: streaming %s: %w", filePath, err)
	}

	c.logger.Debug("file downloaded",
		slog.String("path", filePath),
		slog.Int64("bytes", n),
	)

	return n, nil
}
