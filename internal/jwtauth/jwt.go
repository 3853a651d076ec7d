// Package jwtauth issues and validates the bearer tokens callers use to prove
// control of an address. Token issuance sits outside this service's core —
// wallets obtain tokens from the gateway's login flow — but validation is on
// the hot path of every authorized request.
package jwtauth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"aliaspay/internal/platform/middleware"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
)

// Claims carries the caller's proven address.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey string, issuer string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// GenerateToken mints a token asserting control of addr.
func (s *Service) GenerateToken(addr domain.Address, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Address: addr.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a token, returning middleware claims.
func (s *Service) ValidateToken(tokenString string) (*middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	addr, err := domain.ParseAddress(claims.Address)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid address claim")
	}
	return &middleware.Claims{Address: addr}, nil
}
