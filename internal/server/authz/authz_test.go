package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkowalczyk/filekeeper/internal/server/users"
)

func TestAuthorize(t *testing.T) {
	a := Authorizer{Superuser: "root"}
	alice := &users.User{Username: "alice"}
	root := &users.User{Username: "root"}

	tests := []struct {
		name     string
		identity *users.User
		path     string
		want     Result
	}{
		{"empty path", alice, "", NoPath},
		{"unauthenticated", nil, "alice/public/a.txt", Denied},
		{"superuser anywhere", root, "bob/private/x", OK},
		{"own tree", alice, "alice/private/notes.txt", OK},
		{"own tree public", alice, "alice/public", OK},
		{"foreign public", alice, "bob/public/shared.txt", OK},
		{"foreign private", alice, "bob/private/secret.txt", Denied},
		{"foreign root segment only", alice, "bob", Denied},
		{"own root segment only", alice, "alice", OK},
		{"category is whole rest", alice, "bob/public", OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Authorize(tt.identity, tt.path))
		})
	}
}
