package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pkowalczyk/filekeeper/internal/common"
	"github.com/pkowalczyk/filekeeper/internal/server/users"
)

// Claims carries the authenticated username alongside the registered set.
type Claims struct {
	jwt.RegisteredClaims
	Username string
}

// GenerateToken mints an HS256 token naming username, valid for
// validityDuration.
func GenerateToken(username string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Username: username,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// UsernameFromToken verifies signature and expiry and returns the embedded
// username.
func UsernameFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", common.ErrInvalidToken
	}
	return claims.Username, nil
}

// TokenStrategy authenticates with a previously issued token instead of a
// password. The token must name the same username the request claims, and
// the record must still exist in the ledger.
type TokenStrategy struct {
	store     users.Store
	secretKey []byte
}

func NewTokenStrategy(store users.Store, secretKey []byte) *TokenStrategy {
	return &TokenStrategy{store: store, secretKey: secretKey}
}

func (s *TokenStrategy) Authenticate(ctx context.Context, username, token string) (*users.User, error) {
	fromToken, err := UsernameFromToken(token, s.secretKey)
	if err != nil {
		return nil, common.ErrUnauthorized
	}
	if fromToken != username {
		return nil, common.ErrUnauthorized
	}

	u, err := s.store.Find(ctx, username)
	if err != nil {
		return nil, common.ErrUnauthorized
	}
	return u, nil
}
