package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/drivebot-go/internal/drive"
)

type fakeProvider struct {
	uploadName   string
	uploadMime   string
	uploadFolder string
	uploadBody   string
	uploadErr    error

	sharedID string
	shareErr error
}

func (f *fakeProvider) Upload(_ context.Context, name, mimeType, folderID string, r io.Reader) (*drive.Item, error) {
	f.uploadName = name
	f.uploadMime = mimeType
	f.uploadFolder = folderID

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.uploadBody = string(body)

	if f.uploadErr != nil {
		return nil, f.uploadErr
	}

	return &drive.Item{ID: "file123", Name: name, Size: int64(len(body)), WebViewLink: "https://drive.example/file123"}, nil
}

func (f *fakeProvider) Share(_ context.Context, fileID string) error {
	f.sharedID = fileID
	return f.shareErr
}

func newTestPipeline(provider Uploader, maxBytes int64) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(provider, "folder-abc", maxBytes, logger)
}

func TestUploadSuccess(t *testing.T) {
	provider := &fakeProvider{}
	p := newTestPipeline(provider, 1024)

	res, err := p.Upload(context.Background(), strings.NewReader("hello world"), 11, "report.pdf", "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", res.Name)
	assert.Equal(t, "file123", res.FileID)
	assert.Equal(t, "https://drive.example/file123", res.Link)
	assert.Equal(t, int64(11), res.Size)

	assert.Equal(t, "hello world", provider.uploadBody)
	assert.Equal(t, "application/pdf", provider.uploadMime)
	assert.Equal(t, "folder-abc", provider.uploadFolder)
	assert.Equal(t, "file123", provider.sharedID)
}

func TestUploadTooLargeSkipsProvider(t *testing.T) {
	provider := &fakeProvider{}
	p := newTestPipeline(provider, 10)

	_, err := p.Upload(context.Background(), strings.NewReader("0123456789abcdef"), 16, "big.bin", "application/octet-stream")
	require.ErrorIs(t, err, ErrFileTooLarge)

	// The provider must never see an oversized file.
	assert.Empty(t, provider.uploadName)
	assert.Empty(t, provider.sharedID)
}

func TestCheckSize(t *testing.T) {
	p := newTestPipeline(&fakeProvider{}, 100)

	assert.NoError(t, p.CheckSize(100))
	assert.NoError(t, p.CheckSize(0))
	assert.ErrorIs(t, p.CheckSize(101), ErrFileTooLarge)
}

func TestUploadFailureWrapped(t *testing.T) {
	cause := errors.New("quota exceeded")
	provider := &fakeProvider{uploadErr: cause}
	p := newTestPipeline(provider, 1024)

	_, err := p.Upload(context.Background(), strings.NewReader("x"), 1, "a.txt", "text/plain")

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "upload", uploadErr.Op)
	assert.Equal(t, "a.txt", uploadErr.Filename)
	assert.ErrorIs(t, err, cause)

	// Share must not run after a failed upload.
	assert.Empty(t, provider.sharedID)
}

func TestShareFailureWrapped(t *testing.T) {
	cause := errors.New("permission denied")
	provider := &fakeProvider{shareErr: cause}
	p := newTestPipeline(provider, 1024)

	_, err := p.Upload(context.Background(), strings.NewReader("x"), 1, "a.txt", "text/plain")

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "share", uploadErr.Op)
	assert.ErrorIs(t, err, cause)
}

func TestUploadNormalizesFilename(t *testing.T) {
	provider := &fakeProvider{}
	p := newTestPipeline(provider, 1024)

	// "é" as 'e' + combining acute (NFD) should come out precomposed (NFC).
	res, err := p.Upload(context.Background(), strings.NewReader("x"), 1, "café.txt", "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "café.txt", res.Name)
	assert.Equal(t, "café.txt", provider.uploadName)
}

func TestMaxBytes(t *testing.T) {
	p := newTestPipeline(&fakeProvider{}, 42)
	assert.Equal(t, int64(42), p.MaxBytes())
}
