// Package authz decides whether an authenticated identity may operate on a
// logical path of the form <owner>/<category>/...
package authz

import (
	"strings"

	"github.com/pkowalczyk/filekeeper/internal/server/users"
)

// Result is the three-way authorization verdict.
type Result int

const (
	// OK means the identity may operate on the path.
	OK Result = iota
	// NoPath means the request carried no usable path.
	NoPath
	// Denied means the identity exists but may not touch the path.
	Denied
)

// Authorizer is the stateless sandbox policy. The superuser bypasses it
// entirely; everyone else is confined to their own tree plus any path whose
// category segment is "public".
//
// This is a prefix policy only: it never resolves ".." segments. The
// FileStore boundary must reject traversal outside the data root.
type Authorizer struct {
	Superuser string
}

// Authorize applies the policy. identity may be nil (unauthenticated), in
// which case any path is Denied.
func (a Authorizer) Authorize(identity *users.User, logicalPath string) Result {
	if logicalPath == "" {
		return NoPath
	}
	if identity == nil {
		return Denied
	}
	if identity.Username == a.Superuser {
		return OK
	}

	owner, category := splitPath(logicalPath)
	if owner == identity.Username || category == "public" {
		return OK
	}
	return Denied
}

// splitPath returns the owner segment and the category segment. A path
// without separators is its own owner and category.
func splitPath(logicalPath string) (owner, category string) {
	parts := strings.SplitN(logicalPath, "/", 3)
	owner = parts[0]
	category = parts[0]
	if len(parts) > 1 {
		category = parts[1]
	}
	return owner, category
}
