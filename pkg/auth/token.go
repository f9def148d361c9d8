package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/uhyunpark/limitbook/pkg/util"
)

// TokenIssuer signs and checks HS256 bearer tokens whose subject is the username.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  util.Clock
}

func NewTokenIssuer(secret string, ttl time.Duration, clock util.Clock) *TokenIssuer {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, clock: clock}
}

func (ti *TokenIssuer) Generate(username string) (string, error) {
	now := ti.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Username returns the subject of a valid token.
func (ti *TokenIssuer) Username(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.Subject, nil
}

func (ti *TokenIssuer) Validate(token string) bool {
	_, err := ti.Username(token)
	return err == nil
}
