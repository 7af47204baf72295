package service

import (
	"context"
	"time"

	appErr "github.com/xxxsen/chatrecall/internal/pkg/errors"
	"github.com/xxxsen/chatrecall/internal/pkg/jwt"
	"github.com/xxxsen/chatrecall/internal/pkg/password"
)

// AuthService guards the single-user deployment: the caller proves knowledge
// of the access secret and receives a short-lived token.
type AuthService struct {
	secretHash string
	jwtSecret  []byte
	jwtTTL     time.Duration
}

func NewAuthService(secretHash string, jwtSecret []byte, ttl time.Duration) *AuthService {
	return &AuthService{secretHash: secretHash, jwtSecret: jwtSecret, jwtTTL: ttl}
}

func (s *AuthService) Login(ctx context.Context, secret string) (string, error) {
	if err := password.Verify(s.secretHash, secret); err != nil {
		return "", appErr.ErrUnauthorized
	}
	token, err := jwt.GenerateToken("owner", s.jwtSecret, s.jwtTTL)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *AuthService) Validate(tokenString string) error {
	if _, err := jwt.ParseToken(tokenString, s.jwtSecret); err != nil {
		return appErr.ErrUnauthorized
	}
	return nil
}
