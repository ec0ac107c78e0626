package dispatch

import (
	"github.com/pkowalczyk/filekeeper/internal/server/transfer"
	"github.com/pkowalczyk/filekeeper/internal/server/users"
)

// Session is the per-connection surface the dispatcher sees. The tcp layer
// implements it; handler tests use fakes.
type Session interface {
	transfer.Owner

	// Identity returns the authenticated identity, or nil before AUTH.
	Identity() *users.User

	// SetIdentity stores the identity after a successful AUTH.
	SetIdentity(u *users.User)
}
