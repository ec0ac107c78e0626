package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkowalczyk/filekeeper/internal/common"
)

// Local is the disk-backed FileStore. Every logical path resolves under a
// single data root.
type Local struct {
	root string
}

var _ FileStore = (*Local)(nil)

// NewLocal creates the store rooted at dataRoot, creating the directory if
// needed.
func NewLocal(dataRoot string) (*Local, error) {
	abs, err := filepath.Abs(dataRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve data root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create data root: %w", err)
	}
	return &Local{root: abs}, nil
}

// resolve maps a logical path onto the data root, rejecting anything whose
// cleaned form escapes it.
func (l *Local) resolve(logical string) (string, error) {
	p := filepath.Join(l.root, filepath.FromSlash(logical))
	if p != l.root && !strings.HasPrefix(p, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", common.ErrInvalidPath, logical)
	}
	return p, nil
}

func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	p, err := l.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *Local) IsDirectory(_ context.Context, path string) (bool, error) {
	p, err := l.resolve(path)
	if err != nil {
		return false, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return fi.IsDir(), nil
}

func (l *Local) ListChildren(ctx context.Context, path string) ([]string, []string, error) {
	p, err := l.resolve(path)
	if err != nil {
		return nil, nil, err
	}

	fi, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s does not exist", path)
		}
		return nil, nil, err
	}
	if !fi.IsDir() {
		return nil, nil, nil
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, nil, err
	}

	var files, dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	return files, dirs, nil
}

func (l *Local) CreateFile(ctx context.Context, path, name string) error {
	exists, err := l.Exists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s does not exist", path)
	}

	p, err := l.resolve(path + "/" + name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	return f.Close()
}

func (l *Local) CreateDirectory(_ context.Context, path, name string) error {
	p, err := l.resolve(path + "/" + name)
	if err != nil {
		return err
	}
	return os.Mkdir(p, 0o750)
}

func (l *Local) RemoveRecursive(_ context.Context, path string) (int, error) {
	p, err := l.resolve(path)
	if err != nil {
		return 0, err
	}

	count, err := countEntries(p)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	if err := os.RemoveAll(p); err != nil {
		return 0, err
	}
	return count, nil
}

func (l *Local) Size(_ context.Context, path string) (int64, error) {
	p, err := l.resolve(path)
	if err != nil {
		return 0, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (l *Local) ReadChunk(_ context.Context, path string, offset int64, n int) ([]byte, bool, error) {
	p, err := l.resolve(path)
	if err != nil {
		return nil, false, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	size := fi.Size()
	if offset >= size {
		return nil, true, nil
	}

	buf := make([]byte, n)
	read, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}
	return buf[:read], offset+int64(read) >= size, nil
}

func (l *Local) Append(_ context.Context, path string, data []byte) error {
	p, err := l.resolve(path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

func (l *Local) Rename(_ context.Context, oldPath, newPath string) error {
	from, err := l.resolve(oldPath)
	if err != nil {
		return err
	}
	to, err := l.resolve(newPath)
	if err != nil {
		return err
	}
	return os.Rename(from, to)
}

// countEntries counts path itself plus everything below it; 0 when path
// does not exist.
func countEntries(p string) (int, error) {
	fi, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	if !fi.IsDir() {
		return 1, nil
	}

	count := 1
	entries, err := os.ReadDir(p)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		sub, err := countEntries(filepath.Join(p, e.Name()))
		if err != nil {
			return 0, err
		}
		count += sub
	}
	return count, nil
}
