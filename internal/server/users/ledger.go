// Package users owns identity records: usernames, opaque secrets and
// storage quotas, persisted one record per line in a flat ledger file.
package users

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkowalczyk/filekeeper/internal/common"
)

// Store is the identity repository consumed by the dispatcher and the auth
// strategies.
type Store interface {
	// Create appends a record. It does not check for duplicates; the
	// caller decides whether the username is taken before calling.
	Create(ctx context.Context, u *User) error

	// Delete removes the record, leaving the ledger untouched when the
	// username is absent (common.ErrNotFound).
	Delete(ctx context.Context, username string) error

	// Alter replaces secret and quotas, carrying the used-space fields
	// forward, in a single atomic ledger rewrite.
	Alter(ctx context.Context, username, newSecret string, publicQuota, privateQuota int) error

	// Find returns the first record matching username, or common.ErrNotFound.
	Find(ctx context.Context, username string) (*User, error)

	// GetLine returns the raw ledger line for username, or "" when absent.
	// Auth strategies verify secrets against this line themselves.
	GetLine(ctx context.Context, username string) (string, error)

	// AddUsage adjusts the used-space counters of a record.
	AddUsage(ctx context.Context, username string, publicDelta, privateDelta float64) error
}

// Ledger is the flat-file Store. All mutations serialize on one mutex and
// rewrite the file through a temp-file swap, so concurrent mutations on
// different usernames cannot corrupt it.
type Ledger struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*Ledger)(nil)

// NewLedger opens (creating if needed) the ledger file at path.
func NewLedger(path string) (*Ledger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	_ = f.Close()
	return &Ledger{path: path}, nil
}

func (l *Ledger) Create(_ context.Context, u *User) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(u.Line() + "\n"); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

func (l *Ledger) Delete(_ context.Context, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched, err := l.rewrite(func(line string) (string, bool) {
		if recordUsername(line) == username {
			return "", true // drop the line
		}
		return line, false
	})
	if err != nil {
		return err
	}
	if !matched {
		return fmt.Errorf("delete %s: %w", username, common.ErrNotFound)
	}
	return nil
}

func (l *Ledger) Alter(_ context.Context, username, newSecret string, publicQuota, privateQuota int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var parseErr error
	matched, err := l.rewrite(func(line string) (string, bool) {
		if recordUsername(line) != username {
			return line, false
		}
		old, err := ParseLine(line)
		if err != nil {
			parseErr = err
			return line, true
		}
		updated := &User{
			Username:     username,
			Secret:       newSecret,
			PublicQuota:  publicQuota,
			PrivateQuota: privateQuota,
			PublicUsed:   old.PublicUsed,
			PrivateUsed:  old.PrivateUsed,
		}
		return updated.Line(), true
	})
	if err != nil {
		return err
	}
	if parseErr != nil {
		return parseErr
	}
	if !matched {
		return fmt.Errorf("alter %s: %w", username, common.ErrNotFound)
	}
	return nil
}

func (l *Ledger) Find(ctx context.Context, username string) (*User, error) {
	line, err := l.GetLine(ctx, username)
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, fmt.Errorf("find %s: %w", username, common.ErrNotFound)
	}
	return ParseLine(line)
}

func (l *Ledger) GetLine(_ context.Context, username string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines, err := l.readLines()
	if err != nil {
		return "", err
	}
	for _, line := range lines {
		if recordUsername(line) == username {
			return line, nil
		}
	}
	return "", nil
}

func (l *Ledger) AddUsage(_ context.Context, username string, publicDelta, privateDelta float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var parseErr error
	matched, err := l.rewrite(func(line string) (string, bool) {
		if recordUsername(line) != username {
			return line, false
		}
		u, err := ParseLine(line)
		if err != nil {
			parseErr = err
			return line, true
		}
		u.PublicUsed += publicDelta
		u.PrivateUsed += privateDelta
		return u.Line(), true
	})
	if err != nil {
		return err
	}
	if parseErr != nil {
		return parseErr
	}
	if !matched {
		return fmt.Errorf("usage %s: %w", username, common.ErrNotFound)
	}
	return nil
}

// rewrite streams every ledger line through transform and swaps the result
// into place with a rename. transform returns the replacement line (""
// drops it) and whether the line matched. The original file is only
// replaced after the temp file is fully written, so a crash mid-rewrite
// leaves either the old or the new complete ledger. Caller holds mu.
func (l *Ledger) rewrite(transform func(line string) (string, bool)) (bool, error) {
	lines, err := l.readLines()
	if err != nil {
		return false, err
	}

	var out []string
	matched := false
	for _, line := range lines {
		replacement, hit := transform(line)
		if hit {
			matched = true
		}
		if replacement != "" {
			out = append(out, replacement)
		}
	}

	if !matched {
		return false, nil
	}

	tmp := l.path + ".tmp"
	content := ""
	if len(out) > 0 {
		content = strings.Join(out, "\n") + "\n"
	}
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("write temp ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return false, fmt.Errorf("swap ledger: %w", err)
	}
	return true, nil
}

// readLines returns all non-empty lines. Caller holds mu.
func (l *Ledger) readLines() ([]string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return lines, nil
}

// recordUsername extracts the username field without fully parsing the
// line, so lookups skip malformed records instead of failing on them.
func recordUsername(line string) string {
	if i := strings.IndexByte(line, ':'); i >= 0 {
		return line[:i]
	}
	return line
}
