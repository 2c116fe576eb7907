package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/p3tuh/notello/internal/domain"
	"github.com/p3tuh/notello/internal/idgen"
)

type ChallengeRepository struct {
	pool *pgxpool.Pool
}

func NewChallengeRepository(pool *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{pool: pool}
}

func (r *ChallengeRepository) Create(ctx context.Context, identity string, issuedAt time.Time) (string, error) {
	id, err := idgen.ChallengeID()
	if err != nil {
		return "", err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO login_challenges (id, email, issued_at) VALUES ($1, $2, $3)`,
		id, identity, issuedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert login challenge: %w", err)
	}
	return id, nil
}

// Consume runs as one statement. A concurrent redemption of the same ID
// blocks on the row locks taken by the DELETE and then finds nothing left,
// so only one caller ever gets the row back.
func (r *ChallengeRepository) Consume(ctx context.Context, challengeID string) (*domain.LoginChallenge, error) {
	query := `
		WITH target AS (
			SELECT email FROM login_challenges WHERE id = $1
		), purged AS (
			DELETE FROM login_challenges
			WHERE  email IN (SELECT email FROM target)
			RETURNING id, email, issued_at
		)
		SELECT id, email, issued_at FROM purged WHERE id = $1`

	var c domain.LoginChallenge
	err := r.pool.QueryRow(ctx, query, challengeID).Scan(&c.ID, &c.Identity, &c.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("consume login challenge: %w", err)
	}
	return &c, nil
}

func (r *ChallengeRepository) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM login_challenges WHERE issued_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale login challenges: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
