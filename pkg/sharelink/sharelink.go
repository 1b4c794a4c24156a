// Package sharelink issues and verifies the signed tokens behind the
// read-only booking status pages a customer can share. The token binds a
// booking to its owning customer; the shared view never exposes the
// security pin.
package sharelink

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "fieldserve"

type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// Sign mints a share token for one booking.
func (s *Signer) Sign(bookingID, customerID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": issuer,
		"sub": customerID,
		"bid": bookingID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

// Parse validates a share token and returns the booking and customer it
// was minted for.
func (s *Signer) Parse(tokenString string) (bookingID, customerID string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", fmt.Errorf("invalid share token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid share token claims")
	}

	bookingID, _ = claims["bid"].(string)
	customerID, _ = claims["sub"].(string)
	if bookingID == "" {
		return "", "", errors.New("share token has no booking")
	}
	return bookingID, customerID, nil
}
