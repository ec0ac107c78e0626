// Package auth verifies client credentials against the identity ledger.
// The verification algorithm is pluggable behind Strategy; the core only
// ever sees the verdict.
package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/pkowalczyk/filekeeper/internal/common"
	"github.com/pkowalczyk/filekeeper/internal/server/users"
)

// Strategy authenticates a username/credential pair, returning the identity
// record on success and common.ErrUnauthorized on any verification failure.
type Strategy interface {
	Authenticate(ctx context.Context, username, credential string) (*users.User, error)
}

// LedgerStrategy verifies a plaintext password against the bcrypt hash
// stored in the user's raw ledger line. It fetches the line itself through
// the store's GetLine primitive rather than going through Find, so the
// record format stays an auth concern.
type LedgerStrategy struct {
	store users.Store
}

func NewLedgerStrategy(store users.Store) *LedgerStrategy {
	return &LedgerStrategy{store: store}
}

func (s *LedgerStrategy) Authenticate(ctx context.Context, username, password string) (*users.User, error) {
	line, err := s.store.GetLine(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
	if line == "" {
		return nil, common.ErrUnauthorized
	}

	u, err := users.ParseLine(line)
	if err != nil {
		return nil, fmt.Errorf("ledger record: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Secret), []byte(password)); err != nil {
		return nil, common.ErrUnauthorized
	}
	return u, nil
}

// HashSecret produces the stored form of a password.
func HashSecret(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}
