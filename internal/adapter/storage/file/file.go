// Package file implements a crash-safe [domain.Storage] keeping one file per
// key inside a directory.
package file

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dolmen-go/contextio"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

const (
	ext        = ".json"
	tempSuffix = "~"
)

// syncDirs is false on systems that cannot fsync directories.
var syncDirs = true

// osOps lists the file system calls used by the storage.
type osOps interface {
	MkdirAll(path string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Remove(name string) error
	Rename(oldpath string, newpath string) error
	Stat(name string) (os.FileInfo, error)
}

type defaultOps struct{}

func (defaultOps) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (defaultOps) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}
func (defaultOps) Remove(name string) error                    { return os.Remove(name) }
func (defaultOps) Rename(oldpath string, newpath string) error { return os.Rename(oldpath, newpath) }
func (defaultOps) Stat(name string) (os.FileInfo, error)       { return os.Stat(name) }

// Storage implements domain.Storage.
type Storage struct {
	dir      string
	fileMode os.FileMode
	dirMode  os.FileMode
	os       osOps
	mu       sync.Mutex
}

// NewStorage returns a new implementation of domain.Storage that keeps its
// files under dir.
func NewStorage(dir string, options ...domain.FileStorageOption) domain.Storage {
	opts := domain.FileStorageOptions{
		FileMode: 0o644,
		DirMode:  0o755,
	}
	for _, option := range options {
		option(&opts)
	}
	return &Storage{
		dir:      dir,
		fileMode: opts.FileMode,
		dirMode:  opts.DirMode,
		os:       defaultOps{},
	}
}

// Filename returns the file holding key. Keys are encoded so any string is a
// valid file name.
func (d *Storage) Filename(key string) string {
	return filepath.Join(d.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+ext)
}

// Read implements domain.Storage.
func (d *Storage) Read(ctx context.Context, key string) ([]byte, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	filename := d.Filename(key)
	if err := d.ensureIntegrity(filename); err != nil {
		return nil, false, err
	}

	f, err := d.os.OpenFile(filename, os.O_RDONLY, d.fileMode)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	b, err := io.ReadAll(contextio.NewReader(ctx, f))
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Write implements domain.Storage. The data is first written to a temporary
// file which then replaces the previous one, so a crash never leaves a
// partially written value behind.
func (d *Storage) Write(ctx context.Context, key string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.os.MkdirAll(d.dir, d.dirMode); err != nil {
		return err
	}

	filename := d.Filename(key)
	tempFilename := filename + tempSuffix

	if err := d.flushToStorage(d.dir, true); err != nil {
		return err
	}

	exists, err := d.exists(filename)
	if err != nil {
		return err
	}
	if exists {
		if err := d.flushToStorage(filename, false); err != nil {
			return err
		}
	}

	if err := d.writeFile(ctx, tempFilename, data); err != nil {
		return err
	}

	if err := d.flushToStorage(tempFilename, false); err != nil {
		return err
	}

	if err := d.os.Rename(tempFilename, filename); err != nil {
		return err
	}

	return d.flushToStorage(d.dir, true)
}

// Remove implements domain.Storage.
func (d *Storage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	filename := d.Filename(key)
	for _, name := range []string{filename, filename + tempSuffix} {
		if err := d.os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Supported implements domain.Storage. The directory is created when
// missing.
func (d *Storage) Supported() bool {
	if err := d.os.MkdirAll(d.dir, d.dirMode); err != nil {
		return false
	}
	info, err := d.os.Stat(d.dir)
	return err == nil && info.IsDir()
}

// Close implements domain.Storage.
func (d *Storage) Close() error {
	return nil
}

// ensureIntegrity recovers the temporary file of a write interrupted after
// the old file was replaced but before the rename.
func (d *Storage) ensureIntegrity(filename string) error {
	exists, err := d.exists(filename)
	if err != nil || exists {
		return err
	}
	tempFilename := filename + tempSuffix
	tempExists, err := d.exists(tempFilename)
	if err != nil || !tempExists {
		return err
	}
	return d.os.Rename(tempFilename, filename)
}

func (d *Storage) exists(filename string) (bool, error) {
	if _, err := d.os.Stat(filename); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *Storage) flushToStorage(filename string, isDir bool) error {
	if isDir && !syncDirs {
		return nil
	}
	flags := os.O_RDWR
	mode := d.fileMode
	if isDir {
		flags = os.O_RDONLY
		mode = d.dirMode
	}

	fileHandle, err := d.os.OpenFile(filename, flags, mode)
	if err != nil {
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}

	if err := fileHandle.Sync(); err != nil {
		fileHandle.Close()
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}

	if err := fileHandle.Close(); err != nil {
		return domain.ErrFlushToStorage{ErrorOnClose: err}
	}

	return nil
}

func (d *Storage) writeFile(ctx context.Context, filename string, data []byte) error {
	f, err := d.os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, d.fileMode)
	if err != nil {
		return err
	}
	if _, err := contextio.NewWriter(ctx, f).Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
