// Package authtoken implements the self-contained bearer token used for
// sessions:
//
//	<identity>:<unix-expiry>:<hex hmac-sha256 over "identity:expiry">
//
// A token carries everything needed to check it, so any instance holding the
// secret key can validate or renew it without a lookup.
package authtoken

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const delimiter = ":"

var (
	ErrMalformed        = errors.New("token is malformed")
	ErrExpired          = errors.New("token has expired")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrInvalidIdentity  = errors.New("identity must be non-empty and must not contain ':'")
)

// Token is the parsed wire form. It is never persisted.
type Token struct {
	Identity  string
	ExpiresAt time.Time
	Signature string
}

// Codec issues and validates tokens with a single immutable key.
// It's safe for concurrent use.
type Codec struct {
	key    []byte
	method *jwt.SigningMethodHMAC
}

func NewCodec(key []byte) *Codec {
	k := make([]byte, len(key))
	copy(k, key)
	return &Codec{key: k, method: jwt.SigningMethodHS256}
}

// Issue returns a token for identity that expires at now+ttl (second precision).
func (c *Codec) Issue(identity string, ttl time.Duration, now time.Time) (string, error) {
	if identity == "" || strings.Contains(identity, delimiter) {
		return "", ErrInvalidIdentity
	}

	payload := identity + delimiter + strconv.FormatInt(now.Add(ttl).Unix(), 10)
	sig, err := c.method.Sign(payload, c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return payload + delimiter + hex.EncodeToString(sig), nil
}

// Parse splits raw into its three fields without checking expiry or signature.
func Parse(raw string) (Token, error) {
	parts := strings.Split(raw, delimiter)
	if len(parts) != 3 {
		return Token{}, ErrMalformed
	}
	for _, p := range parts {
		if p == "" {
			return Token{}, ErrMalformed
		}
	}

	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Token{}, ErrMalformed
	}

	return Token{
		Identity:  parts[0],
		ExpiresAt: time.Unix(exp, 0),
		Signature: parts[2],
	}, nil
}

// Validate returns the identity carried by raw. Expiry is checked before the
// signature, so a stale token signed with the right key reports ErrExpired.
func (c *Codec) Validate(raw string, now time.Time) (string, error) {
	tok, err := Parse(raw)
	if err != nil {
		return "", err
	}

	if !now.Before(tok.ExpiresAt) {
		return "", ErrExpired
	}

	sig, err := hex.DecodeString(tok.Signature)
	if err != nil || hex.EncodeToString(sig) != tok.Signature {
		return "", ErrInvalidSignature
	}

	payload := tok.Identity + delimiter + strconv.FormatInt(tok.ExpiresAt.Unix(), 10)
	// Verify compares with hmac.Equal, which runs in constant time.
	if err := c.method.Verify(payload, sig, c.key); err != nil {
		return "", ErrInvalidSignature
	}

	return tok.Identity, nil
}

// Renew validates raw and issues a replacement with a fresh ttl window from now.
func (c *Codec) Renew(raw string, ttl time.Duration, now time.Time) (identity, renewed string, err error) {
	identity, err = c.Validate(raw, now)
	if err != nil {
		return "", "", err
	}
	renewed, err = c.Issue(identity, ttl, now)
	if err != nil {
		return "", "", err
	}
	return identity, renewed, nil
}
