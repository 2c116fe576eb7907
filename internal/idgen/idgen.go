// Package idgen produces identifiers that do not depend on clock resolution.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/google/uuid"
)

const challengeIDBytes = 16

// ChallengeID returns 128 bits from crypto/rand, hex encoded.
func ChallengeID() (string, error) {
	raw := make([]byte, challengeIDBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate challenge id: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// New returns a random UUID v4 for notes, notebooks and boxes.
func New() string {
	return uuid.NewString()
}

// IsChallengeID reports whether s has the shape ChallengeID produces.
func IsChallengeID(s string) bool {
	if len(s) != 2*challengeIDBytes {
		return false
	}
	raw, err := hex.DecodeString(s)
	return err == nil && hex.EncodeToString(raw) == s
}
