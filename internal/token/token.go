// Package token issues and verifies signed session tokens. A token encodes
// the account ID and an expiry; it proves a prior successful login but is
// only half of the session check -- the users gate additionally compares it
// against the token stored on the account, which is what makes logout and
// login-supersession actually invalidate old tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned by Verify for any token that fails signature,
// structure, or expiry checks. Callers don't need to distinguish the cases.
var ErrInvalidToken = errors.New("invalid session token")

// claims carries the account binding alongside the registered JWT claims.
type claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
}

// Issuer creates and validates HS256-signed session tokens. Constructed
// once at startup with the signing secret and validity window from config;
// there is no ambient secret lookup.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer with the given signing secret and token TTL.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl}
}

// Issue produces a signed token bound to the given account ID, expiring
// after the configured TTL. Expiry is enforced by Verify, not by any
// external scheduler.
func (i *Issuer) Issue(accountID string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			// Unique per issuance so back-to-back logins never produce
			// the same token string; supersession of the stored token
			// depends on the strings differing.
			ID: uuid.NewString(),
		},
		AccountID: accountID,
	})

	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns the bound account ID.
// Returns ErrInvalidToken for a bad signature, malformed structure, or
// elapsed expiry. There are no renewal or refresh semantics.
func (i *Issuer) Verify(raw string) (string, error) {
	cl := &claims{}

	t, err := jwt.ParseWithClaims(raw, cl, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}

	if !t.Valid || cl.AccountID == "" {
		return "", ErrInvalidToken
	}

	return cl.AccountID, nil
}
