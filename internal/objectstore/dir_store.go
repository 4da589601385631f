package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/book-expert/synth-service/internal/assetutil"
	"github.com/book-expert/synth-service/internal/core"
)

const filePermissions = 0o600

// ErrInvalidKey is returned for keys that would resolve outside the store root.
var ErrInvalidKey = errors.New("asset key must be a local relative path")

// DirStore implements the core.ObjectStore interface on a local directory.
// Keys are relative paths below the root; metadata is not persisted.
type DirStore struct {
	root string
}

// NewDirStore creates root if needed and returns a store writing below it.
func NewDirStore(root string) (*DirStore, error) {
	err := assetutil.EnsureDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare asset directory: %w", err)
	}

	return &DirStore{root: root}, nil
}

// Path returns the file path of key.
func (d *DirStore) Path(key string) (string, error) {
	if !filepath.IsLocal(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return filepath.Join(d.root, key), nil
}

// Upload writes the asset to a temporary file and renames it into place.
func (d *DirStore) Upload(_ context.Context, key string, data []byte, _ core.AssetMetadata) error {
	path, err := d.Path(key)
	if err != nil {
		return err
	}

	dirErr := assetutil.EnsureDir(filepath.Dir(path))
	if dirErr != nil {
		return dirErr
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for '%s': %w", key, err)
	}

	tempName := tempFile.Name()
	_, writeErr := tempFile.Write(data)
	closeErr := tempFile.Close()

	if writeErr == nil && closeErr == nil {
		writeErr = os.Chmod(tempName, filePermissions)
	}

	if writeErr == nil && closeErr == nil {
		writeErr = os.Rename(tempName, path)
	}

	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tempName)

		return fmt.Errorf("failed to write asset '%s': %w", key, errors.Join(writeErr, closeErr))
	}

	return nil
}

// Download reads an asset.
func (d *DirStore) Download(_ context.Context, key string) ([]byte, error) {
	path, err := d.Path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, d.wrapFileError(key, err)
	}

	return data, nil
}

// Delete removes an asset.
func (d *DirStore) Delete(_ context.Context, key string) error {
	path, err := d.Path(key)
	if err != nil {
		return err
	}

	removeErr := os.Remove(path)
	if removeErr != nil {
		return d.wrapFileError(key, removeErr)
	}

	return nil
}

func (d *DirStore) wrapFileError(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: '%s' in %s", ErrAssetNotFound, key, d.root)
	}

	return fmt.Errorf("failed to access asset '%s' in %s: %w", key, d.root, err)
}
