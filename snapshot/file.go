package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang/glog"
)

// FileStore keeps each slot in its own file under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file that backs slot.
func (f *FileStore) Path(slot Slot) string {
	return filepath.Join(f.dir, string(slot)+".msgpack")
}

// Save writes data to a temp file in the same directory, syncs it and renames
// it over the slot file.
func (f *FileStore) Save(_ context.Context, slot Slot, data []byte) (err error) {
	tmp, err := os.CreateTemp(f.dir, string(slot)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", slot, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", slot, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", slot, err)
	}
	if err = os.Rename(tmp.Name(), f.Path(slot)); err != nil {
		return fmt.Errorf("replace %s: %w", slot, err)
	}

	// Persist the rename itself. Not every platform allows syncing a directory.
	if d, derr := os.Open(f.dir); derr == nil {
		if serr := d.Sync(); serr != nil {
			glog.V(2).Infof("[Snapshot] dir sync %s: %v", f.dir, serr)
		}
		d.Close()
	}
	return nil
}

// Load reads the slot file.
func (f *FileStore) Load(_ context.Context, slot Slot) ([]byte, error) {
	b, err := os.ReadFile(f.Path(slot))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	return b, nil
}

func (f *FileStore) Close() error { return nil }
