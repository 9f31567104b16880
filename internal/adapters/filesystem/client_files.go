// Package filesystem contains the on-disk client file store.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/ports/secondary"
)

// ClientFilesDir is the store directory name under the data dir.
const ClientFilesDir = "client_files"

// ClientFileStore implements secondary.ClientFileStore. Files are addressed
// by content hash: client_files/f<first two hex chars>/<hash><ext>.
type ClientFileStore struct {
	root string
}

// NewClientFileStore creates a store rooted at dataDir/client_files.
func NewClientFileStore(dataDir string) (*ClientFileStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	root := filepath.Join(dataDir, ClientFilesDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create client files dir: %w", err)
	}
	return &ClientFileStore{root: root}, nil
}

// Root returns the store's root directory.
func (s *ClientFileStore) Root() string {
	return s.root
}

// Path returns where the bytes for hash live.
func (s *ClientFileStore) Path(hash files.Hash, mime string) string {
	hexHash := hash.Hex()
	return filepath.Join(s.root, "f"+hexHash[:2], hexHash+files.Extension(mime))
}

// Has reports whether the bytes for hash are present.
func (s *ClientFileStore) Has(ctx context.Context, hash files.Hash, mime string) (bool, error) {
	info, err := os.Stat(s.Path(hash, mime))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat client file: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// Put copies the file at src into the store. The copy lands under a temp
// name and is renamed into place, so a reader never sees a partial file.
// An existing copy is left alone.
func (s *ClientFileStore) Put(ctx context.Context, src string, hash files.Hash, mime string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := s.Path(hash, mime)
	if ok, err := s.Has(ctx, hash, mime); err != nil {
		return err
	} else if ok {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create prefix dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Remove deletes the bytes for hash. Missing files are not an error.
func (s *ClientFileStore) Remove(ctx context.Context, hash files.Hash, mime string) error {
	err := os.Remove(s.Path(hash, mime))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove client file: %w", err)
	}
	return nil
}

// Ensure ClientFileStore implements the interface
var _ secondary.ClientFileStore = (*ClientFileStore)(nil)
