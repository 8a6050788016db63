// Package auth issues and verifies the bearer tokens that identify a requester.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is used when no lifetime is configured.
const DefaultTokenTTL = 12 * time.Hour

var (
	// ErrInvalidToken is returned for malformed, unsigned, expired or foreign tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrMissingIdentity is returned when a valid token names no account or organization.
	ErrMissingIdentity = errors.New("token carries no account or organization")
)

// Claims are the requester claims carried by a token. The subject is the account id.
type Claims struct {
	OrganizationID string `json:"org"`
	Name           string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AccountID returns the token subject.
func (c *Claims) AccountID() string {
	return c.Subject
}

// Config configures an Issuer.
type Config struct {
	Base64Secret string
	Issuer       string
	TTL          time.Duration
}

// Issuer signs and parses HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer decodes the base64 secret and builds an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	secret, err := base64.StdEncoding.DecodeString(cfg.Base64Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode auth secret: %w", err)
	}
	if len(secret) < 16 {
		return nil, fmt.Errorf("auth secret must be at least 16 bytes, got %d", len(secret))
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{
		secret: secret,
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for accountID in organizationID.
func (i *Issuer) Issue(accountID, organizationID, name string) (string, error) {
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(organizationID) == "" {
		return "", ErrMissingIdentity
	}
	now := i.now()
	claims := Claims{
		OrganizationID: organizationID,
		Name:           name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse verifies tokenStr and returns its claims.
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.OrganizationID == "" {
		return nil, ErrMissingIdentity
	}
	return claims, nil
}
