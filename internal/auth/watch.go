package auth

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch signals on the returned channel whenever the token file is created,
// rewritten, or replaced. The bot uses it to pick up a credential the
// operator provisioned out-of-band without a restart. The directory (not the
// file) is watched because tokenfile.Save replaces the file by rename, which
// would silently detach a file-level watch.
//
// The watcher runs until ctx is canceled. Events are coalesced: the channel
// has capacity one and sends never block.
func Watch(ctx context.Context, tokenPath string, logger *slog.Logger) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("auth: creating token watcher: %w", err)
	}

	dir := filepath.Dir(tokenPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("auth: watching %s: %w", dir, err)
	}

	base := filepath.Base(tokenPath)
	changes := make(chan struct{}, 1)

	go func() {
		defer watcher.Close()
		defer close(changes)

		watchLoop(ctx, watcher, base, changes, logger)
	}()

	return changes, nil
}

// watchLoop is the select loop for Watch. It filters events down to the
// token file itself and ignores chmod-only events.
func watchLoop(
	ctx context.Context, watcher *fsnotify.Watcher, base string,
	changes chan<- struct{}, logger *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != base {
				continue
			}

			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			logger.Info("token file changed on disk",
				slog.String("op", event.Op.String()),
				slog.String("name", event.Name),
			)

			select {
			case changes <- struct{}{}:
			default: // already pending, coalesce
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return
			}

			logger.Warn("token watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
