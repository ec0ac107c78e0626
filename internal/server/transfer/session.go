// Package transfer tracks in-flight chunked downloads and uploads. One
// registry owns every session; connections hold non-owning references so
// teardown can release what a client left behind.
package transfer

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type Direction int

const (
	Download Direction = iota
	Upload
)

// Status is the session lifecycle. Active is the only non-terminal state;
// there is no transition out of Aborted or Completed.
type Status int32

const (
	Active Status = iota
	Aborted
	Completed
)

// Owner is the connection-side surface a session pushes into. Implemented
// by the tcp layer; tests supply fakes.
type Owner interface {
	// PushUnsolicited queues a server-initiated message for the client.
	PushUnsolicited(msg string) error

	// RegisterTransfer and UnregisterTransfer maintain the connection's
	// non-owning reference set, used to clean up on disconnect.
	RegisterTransfer(s *Session)
	UnregisterTransfer(s *Session)
}

// Session is the state of one chunked transfer bound to a logical path.
type Session struct {
	ID        string
	Path      string
	Direction Direction

	owner Owner

	// pushMu serializes chunk pushes so the synchronous first push and
	// the scheduler never interleave on one session.
	pushMu sync.Mutex

	status atomic.Int32

	mu       sync.Mutex
	priority int
	credit   int
	offset   int64
}

func newSession(path string, direction Direction, owner Owner, priority int) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Path:      path,
		Direction: direction,
		owner:     owner,
		priority:  priority,
	}
	s.status.Store(int32(Active))
	return s
}

func (s *Session) Status() Status { return Status(s.status.Load()) }

func (s *Session) Priority() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priority
}

func (s *Session) Offset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

func (s *Session) setPriority(p int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priority = p
}

func (s *Session) advance(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset += n
}

// abort moves the session to Aborted if it is still Active and reports
// whether this call made the transition.
func (s *Session) abort() bool {
	return s.status.CompareAndSwap(int32(Active), int32(Aborted))
}

func (s *Session) complete() {
	s.status.CompareAndSwap(int32(Active), int32(Completed))
}
