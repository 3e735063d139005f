// Package drive wraps the Google Drive v3 API for the operations the bot
// needs: upload a file, make it link-shareable, and read the account
// identity. The heavy lifting (media transport, auth injection, retries on
// the wire) belongs to the official client library — this package only adds
// error classification and a narrow surface.
package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Service executes Drive API calls on behalf of the authorized account.
type Service struct {
	svc    *drivev3.Service
	logger *slog.Logger
}

// NewService builds a Drive client from an authorized token source.
// Extra options (custom endpoint, HTTP client) are passed through — tests
// use them to point at an httptest server.
func NewService(ctx context.Context, ts oauth2.TokenSource, logger *slog.Logger, opts ...option.ClientOption) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	all := make([]option.ClientOption, 0, len(opts)+1)
	if ts != nil {
		all = append(all, option.WithTokenSource(ts))
	}

	all = append(all, opts...)

	svc, err := drivev3.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("drive: building service: %w", err)
	}

	return &Service{svc: svc, logger: logger}, nil
}

// Item is the subset of Drive file metadata the bot cares about.
type Item struct {
	ID          string
	Name        string
	Size        int64
	WebViewLink string
}

// Upload streams r into a new Drive file. folderID places the file under a
// specific parent; empty means the Drive root. The response carries the
// provider-assigned ID and the canonical webViewLink.
func (s *Service) Upload(ctx context.Context, name, mimeType, folderID string, r io.Reader) (*Item, error) {
	s.logger.Info("uploading to drive",
		slog.String("name", name),
		slog.String("folder_id", folderID),
	)

	meta := &drivev3.File{Name: name}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	var mediaOpts []googleapi.MediaOption
	if mimeType != "" {
		mediaOpts = append(mediaOpts, googleapi.ContentType(mimeType))
	}

	created, err := s.svc.Files.Create(meta).
		Media(r, mediaOpts...).
		Fields("id", "name", "size", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("creating file", err)
	}

	s.logger.Info("drive upload complete",
		slog.String("name", created.Name),
		slog.String("file_id", created.Id),
	)

	return &Item{
		ID:          created.Id,
		Name:        created.Name,
		Size:        created.Size,
		WebViewLink: created.WebViewLink,
	}, nil
}

// Share grants anyone-with-link read access to the file. Must be called
// after Upload for the webViewLink to be usable without authentication.
func (s *Service) Share(ctx context.Context, fileID string) error {
	perm := &drivev3.Permission{
		Type: "anyone",
		Role: "reader",
	}

	if _, err := s.svc.Permissions.Create(fileID, perm).Context(ctx).Do(); err != nil {
		return classify("granting link access", err)
	}

	s.logger.Info("drive file shared", slog.String("file_id", fileID))

	return nil
}

// About returns the email address of the authorized account.
func (s *Service) About(ctx context.Context) (string, error) {
	about, err := s.svc.About.Get().Fields("user(emailAddress)").Context(ctx).Do()
	if err != nil {
		return "", classify("reading account info", err)
	}

	if about.User == nil {
		return "", nil
	}

	return about.User.EmailAddress, nil
}
