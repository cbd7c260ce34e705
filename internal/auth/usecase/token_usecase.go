package usecase

import (
	"errors"
	"fmt"
	"time"

	authdomain "taskflow-backend/internal/auth/domain"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenUsecase issues and validates HS256 API tokens
type TokenUsecase interface {
	IssueToken(subject string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*authdomain.Principal, error)
}

type tokenUsecase struct {
	secret []byte
	now    func() time.Time
}

func NewTokenUsecase(secret string) TokenUsecase {
	return &tokenUsecase{secret: []byte(secret), now: time.Now}
}

func (u *tokenUsecase) IssueToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := u.now()
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(u.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (u *tokenUsecase) ValidateToken(tokenString string) (*authdomain.Principal, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return u.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(u.now))

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	principal := &authdomain.Principal{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, nil
}
