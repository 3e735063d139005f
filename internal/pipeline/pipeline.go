// Package pipeline implements the upload pipeline: a pre-flight size check,
// streaming the file to the storage provider, and granting link access. It
// owns the size ceiling so callers can reject oversized files before moving
// a single byte.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/drivebot-go/internal/drive"
)

// ErrFileTooLarge means the declared size exceeds the configured ceiling.
// The transfer is never attempted.
var ErrFileTooLarge = errors.New("pipeline: file exceeds size limit")

// Uploader is the provider surface the pipeline needs. Satisfied by
// *drive.Service; tests supply a fake.
type Uploader interface {
	Upload(ctx context.Context, name, mimeType, folderID string, r io.Reader) (*drive.Item, error)
	Share(ctx context.Context, fileID string) error
}

// UploadError wraps a provider failure. Op distinguishes a failed transfer
// ("upload") from a stranded object that was uploaded but never shared
// ("share") — the latter may exist in the destination without a usable link.
type UploadError struct {
	Op       string
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("pipeline: %s of %q failed: %v", e.Op, e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Result is a completed upload: the provider identity and shareable link.
type Result struct {
	Name   string
	FileID string
	Link   string
	Size   int64
}

// Pipeline streams files to the provider under a fixed destination folder
// with a fixed size ceiling. Constructed once at startup.
type Pipeline struct {
	provider Uploader
	folderID string
	maxBytes int64
	logger   *slog.Logger
}

// New creates a Pipeline. folderID empty means the provider root.
func New(provider Uploader, folderID string, maxBytes int64, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		provider: provider,
		folderID: folderID,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// MaxBytes returns the configured ceiling, for user-facing messages.
func (p *Pipeline) MaxBytes() int64 {
	return p.maxBytes
}

// CheckSize validates a declared size against the ceiling. Callers invoke it
// before fetching bytes from the transport so an oversized file costs no
// bandwidth at all.
func (p *Pipeline) CheckSize(declaredSize int64) error {
	if declaredSize > p.maxBytes {
		return fmt.Errorf("%w: %d bytes declared, ceiling %d", ErrFileTooLarge, declaredSize, p.maxBytes)
	}

	return nil
}

// Upload streams r to the provider and makes the result link-shareable.
// declaredSize is re-checked here so the pipeline holds its own invariant
// even if a caller skipped CheckSize. Filenames are NFC-normalized; Telegram
// clients on macOS commonly send NFD.
func (p *Pipeline) Upload(ctx context.Context, r io.Reader, declaredSize int64, filename, mimeType string) (*Result, error) {
	if err := p.CheckSize(declaredSize); err != nil {
		return nil, err
	}

	name := norm.NFC.String(filename)

	item, err := p.provider.Upload(ctx, name, mimeType, p.folderID, r)
	if err != nil {
		return nil, &UploadError{Op: "upload", Filename: name, Err: err}
	}

	if err := p.provider.Share(ctx, item.ID); err != nil {
		// The object exists remotely but has no public link. Surfaced as a
		// failure distinct from the fully successful case.
		return nil, &UploadError{Op: "share", Filename: name, Err: err}
	}

	p.logger.Info("upload pipeline complete",
		slog.String("name", name),
		slog.String("file_id", item.ID),
		slog.Int64("size", declaredSize),
	)

	return &Result{
		Name:   name,
		FileID: item.ID,
		Link:   item.WebViewLink,
		Size:   declaredSize,
	}, nil
}
