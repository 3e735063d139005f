// Package tokenfile handles reading and writing the persisted Google OAuth
// credential. The file stores the refreshable token plus the account email
// cached from the Drive "about" call. It is a leaf package imported by both
// auth/ and the CLI so neither needs to know the on-disk format.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// FilePerms restricts the token file to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the state directory.
const DirPerms = 0o700

// ErrCorrupt marks a token file that exists but cannot be parsed. Callers
// treat it the same as absence: the operator must re-run the consent flow.
var ErrCorrupt = errors.New("tokenfile: corrupt token file")

// File is the on-disk format. Account is the email of the authorized Google
// account, cached so status output does not need an API call.
type File struct {
	Token   *oauth2.Token `json:"token"`
	Account string        `json:"account,omitempty"`
}

// Load reads the saved credential from disk. Returns (nil, "", nil) if the
// file does not exist. An unparseable file or one missing the token field
// returns an error wrapping ErrCorrupt — never a crash, the auth layer maps
// it to "authorization required".
func Load(path string) (*oauth2.Token, string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, "", fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var tf File
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, "", fmt.Errorf("%w: decoding %s: %v", ErrCorrupt, path, err)
	}

	if tf.Token == nil || (tf.Token.RefreshToken == "" && tf.Token.AccessToken == "") {
		return nil, "", fmt.Errorf("%w: %s missing token field", ErrCorrupt, path)
	}

	return tf.Token, tf.Account, nil
}

// Save writes the credential to disk atomically (write-to-temp + rename)
// with 0600 permissions, replacing any previous file completely.
// Never logs token values.
func Save(path string, tok *oauth2.Token, account string) error {
	tf := File{Token: tok, Account: account}

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	// Flush to stable storage before rename so a power loss between close and
	// rename cannot leave an empty or partial token file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Remove deletes the token file. Returns nil if it does not exist.
func Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}
