package repository

import (
	"context"
	"time"

	"github.com/p3tuh/notello/internal/domain"
)

type ChallengeRepository interface {
	// Create persists a new challenge for identity and returns its ID.
	Create(ctx context.Context, identity string, issuedAt time.Time) (string, error)

	// Consume looks up the challenge and, in the same atomic step, deletes every
	// challenge issued for the same identity. Returns domain.ErrChallengeNotFound
	// when the ID is unknown or was already consumed.
	Consume(ctx context.Context, challengeID string) (*domain.LoginChallenge, error)

	// DeleteIssuedBefore removes challenges older than cutoff. Housekeeping only.
	DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
