package client

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 5 * time.Minute

// Signer mints the short-lived RS256 tokens the accounting endpoints accept.
type Signer struct {
	key     *rsa.PrivateKey
	subject string
	ttl     time.Duration
}

func NewSigner(key *rsa.PrivateKey, subject string) *Signer {
	return &Signer{key: key, subject: subject, ttl: defaultTokenTTL}
}

// NewSignerFromPEM parses a PEM encoded RSA private key.
func NewSignerFromPEM(pemData []byte, subject string) (*Signer, error) {
	if len(pemData) == 0 {
		return nil, errors.New("empty private key")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("parse agent private key: %w", err)
	}
	return NewSigner(key, subject), nil
}

func (s *Signer) Token(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   s.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign agent token: %w", err)
	}
	return token, nil
}
