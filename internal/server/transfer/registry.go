package transfer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/pkowalczyk/filekeeper/internal/chunkcodec"
	"github.com/pkowalczyk/filekeeper/internal/common"
	"github.com/pkowalczyk/filekeeper/internal/logging"
	"github.com/pkowalczyk/filekeeper/internal/proto"
	"github.com/pkowalczyk/filekeeper/internal/server/storage"
)

// partSuffix marks the staging file an upload appends into until UPLFIN
// renames it onto the destination.
const partSuffix = ".part"

// Registry is the process-wide table of active transfers, keyed by logical
// path. At most one session (download or upload) may exist per path.
type Registry struct {
	store     storage.FileStore
	codec     chunkcodec.Codec
	chunkSize int
	logger    logging.Logger

	mu        sync.Mutex
	downloads map[string]*Session
	uploads   map[string]*Session
}

func NewRegistry(store storage.FileStore, codec chunkcodec.Codec, chunkSize int, logger logging.Logger) *Registry {
	return &Registry{
		store:     store,
		codec:     codec,
		chunkSize: chunkSize,
		logger:    logger.With("module", "transfer"),
		downloads: make(map[string]*Session),
		uploads:   make(map[string]*Session),
	}
}

// StartDownload creates an Active download session for path and pushes its
// first chunk before returning. common.ErrConflict when any transfer is
// already bound to the path.
func (r *Registry) StartDownload(ctx context.Context, path string, owner Owner, priority int) (*Session, error) {
	exists, err := r.store.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s does not exist", path)
	}

	s := newSession(path, Download, owner, priority)

	r.mu.Lock()
	if _, busy := r.downloads[path]; busy {
		r.mu.Unlock()
		return nil, fmt.Errorf("transfer active on %s: %w", path, common.ErrConflict)
	}
	if _, busy := r.uploads[path]; busy {
		r.mu.Unlock()
		return nil, fmt.Errorf("transfer active on %s: %w", path, common.ErrConflict)
	}
	r.downloads[path] = s
	r.mu.Unlock()

	owner.RegisterTransfer(s)

	if err := r.PushNextChunk(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Abort releases the download session bound to path. The status flips
// before the registry entry goes away, so a concurrently scheduled chunk
// push observes the abort and skips emission. A second abort for the same
// path reports common.ErrNotFound.
func (r *Registry) Abort(path string) error {
	r.mu.Lock()
	s, ok := r.downloads[path]
	if ok {
		s.abort()
		delete(r.downloads, path)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("no transfer on %s: %w", path, common.ErrNotFound)
	}
	s.owner.UnregisterTransfer(s)
	return nil
}

// SetPriority updates the scheduling weight of the live session for path;
// it takes effect on the next scheduling round.
func (r *Registry) SetPriority(path string, priority int) error {
	r.mu.Lock()
	s, ok := r.downloads[path]
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("no transfer on %s: %w", path, common.ErrNotFound)
	}
	s.setPriority(priority)
	return nil
}

// PushNextChunk reads the next window at the session cursor, encodes it
// and emits one transfer-progress message to the owning connection. On end
// of data the session completes and leaves the registry.
func (r *Registry) PushNextChunk(ctx context.Context, s *Session) error {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	if s.Status() != Active {
		r.drop(s)
		return nil
	}

	offset := s.Offset()
	data, eof, err := r.store.ReadChunk(ctx, s.Path, offset, r.chunkSize)
	if err != nil {
		s.abort()
		r.drop(s)
		return fmt.Errorf("read chunk %s@%d: %w", s.Path, offset, err)
	}

	// The abort may have landed while we were reading; emitting now would
	// hand the client a chunk of a dead transfer.
	if s.Status() != Active {
		r.drop(s)
		return nil
	}

	msg := proto.NewChunkMessage(s.Path, offset, r.codec.Encode(data), eof)
	if err := s.owner.PushUnsolicited(msg); err != nil {
		s.abort()
		r.drop(s)
		return fmt.Errorf("push chunk %s@%d: %w", s.Path, offset, err)
	}

	s.advance(int64(len(data)))
	if eof {
		s.complete()
		r.drop(s)
	}
	return nil
}

// drop removes the session from its table and detaches it from the owning
// connection. Safe to call more than once.
func (r *Registry) drop(s *Session) {
	r.mu.Lock()
	switch s.Direction {
	case Download:
		if r.downloads[s.Path] == s {
			delete(r.downloads, s.Path)
		}
	case Upload:
		if r.uploads[s.Path] == s {
			delete(r.uploads, s.Path)
		}
	}
	r.mu.Unlock()
	s.owner.UnregisterTransfer(s)
}

// Step runs one weighted-round-robin scheduling round: every active
// download accrues credits equal to its priority and the richest session
// pushes one chunk, paying the round's total as its cost. Over time each
// session's share of pushes converges to its share of the total priority.
// Returns false when there is nothing to schedule.
func (r *Registry) Step(ctx context.Context) bool {
	r.mu.Lock()
	var chosen *Session
	total := 0
	for _, s := range r.downloads {
		if s.Status() != Active {
			continue
		}
		s.mu.Lock()
		total += s.priority
		s.credit += s.priority
		better := chosen == nil || s.credit > chosenCredit(chosen) ||
			(s.credit == chosenCredit(chosen) && s.Path < chosen.Path)
		s.mu.Unlock()
		if better {
			chosen = s
		}
	}
	if chosen != nil {
		chosen.mu.Lock()
		chosen.credit -= total
		chosen.mu.Unlock()
	}
	r.mu.Unlock()

	if chosen == nil {
		return false
	}
	if err := r.PushNextChunk(ctx, chosen); err != nil {
		r.logger.Warn(ctx, "chunk push failed", "path", chosen.Path, "error", err)
	}
	return true
}

func chosenCredit(s *Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credit
}

// Run pumps the scheduler until ctx is done, idling for interval between
// rounds with no work and pacing rounds by the same interval otherwise.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Step(ctx)
		}
	}
}

// AppendUpload claims the destination path for owner (first chunk) and
// appends the decoded chunk to its staging file. A path already claimed by
// a different connection, or busy with a download, is a conflict.
func (r *Registry) AppendUpload(ctx context.Context, path, name string, data []byte, owner Owner) error {
	dest := path + "/" + name

	r.mu.Lock()
	if _, busy := r.downloads[dest]; busy {
		r.mu.Unlock()
		return fmt.Errorf("transfer active on %s: %w", dest, common.ErrConflict)
	}
	s, ok := r.uploads[dest]
	if ok && s.owner != owner {
		r.mu.Unlock()
		return fmt.Errorf("upload claimed on %s: %w", dest, common.ErrConflict)
	}
	if !ok {
		s = newSession(dest, Upload, owner, 0)
		r.uploads[dest] = s
	}
	r.mu.Unlock()

	if !ok {
		owner.RegisterTransfer(s)
	}

	if err := r.store.Append(ctx, dest+partSuffix, data); err != nil {
		return fmt.Errorf("append %s: %w", dest, err)
	}
	s.advance(int64(len(data)))
	return nil
}

// FinishUpload renames the staging file onto the destination, releases the
// claim and returns the final size. Only the claiming connection may
// finalize.
func (r *Registry) FinishUpload(ctx context.Context, path, name string, owner Owner) (int64, error) {
	dest := path + "/" + name

	r.mu.Lock()
	s, ok := r.uploads[dest]
	if !ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("no upload on %s: %w", dest, common.ErrNotFound)
	}
	if s.owner != owner {
		r.mu.Unlock()
		return 0, fmt.Errorf("upload claimed on %s: %w", dest, common.ErrConflict)
	}
	r.mu.Unlock()

	if err := r.store.Rename(ctx, dest+partSuffix, dest); err != nil {
		return 0, fmt.Errorf("finalize %s: %w", dest, err)
	}
	size, err := r.store.Size(ctx, dest)
	if err != nil {
		return 0, fmt.Errorf("finalize %s: %w", dest, err)
	}

	s.complete()
	r.drop(s)
	return size, nil
}

// ReleaseForOwner aborts every transfer owned by the given connection and
// deletes upload staging files left behind. Called on connection teardown;
// a registry entry that outlives its connection would wedge the path for
// everyone.
func (r *Registry) ReleaseForOwner(ctx context.Context, owner Owner) error {
	r.mu.Lock()
	var owned []*Session
	for _, s := range r.downloads {
		if s.owner == owner {
			owned = append(owned, s)
		}
	}
	for _, s := range r.uploads {
		if s.owner == owner {
			owned = append(owned, s)
		}
	}
	r.mu.Unlock()

	var errs *multierror.Error
	for _, s := range owned {
		s.abort()
		r.drop(s)
		if s.Direction == Upload {
			if _, err := r.store.RemoveRecursive(ctx, s.Path+partSuffix); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("remove staging %s: %w", s.Path, err))
			}
		}
	}
	return errs.ErrorOrNil()
}

// ActiveCount reports how many transfers the registry currently tracks.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.downloads) + len(r.uploads)
}
