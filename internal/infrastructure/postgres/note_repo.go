package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/p3tuh/notello/internal/domain"
)

type NoteRepository struct {
	pool *pgxpool.Pool
}

func NewNoteRepository(pool *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{pool: pool}
}

func (r *NoteRepository) Get(ctx context.Context, noteID string) (*domain.Note, error) {
	var n domain.Note
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, body FROM notes WHERE id = $1`, noteID,
	).Scan(&n.ID, &n.Title, &n.Text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &n, nil
}

func (r *NoteRepository) Put(ctx context.Context, note *domain.Note) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notes (id, title, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET    title      = EXCLUDED.title,
		       body       = EXCLUDED.body,
		       updated_at = NOW()`,
		note.ID, note.Title, note.Text,
	)
	if err != nil {
		return fmt.Errorf("put note: %w", err)
	}
	return nil
}

// Delete is idempotent: removing a missing note is not an error.
func (r *NoteRepository) Delete(ctx context.Context, noteID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, noteID); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (r *NoteRepository) GetUserNotes(ctx context.Context, email string) (*domain.UserNotes, error) {
	un := domain.UserNotes{Email: email}
	err := r.pool.QueryRow(ctx,
		`SELECT items FROM user_notes WHERE email = $1`, email,
	).Scan(&un.Items)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotesNotFound
		}
		return nil, fmt.Errorf("get user notes: %w", err)
	}
	return &un, nil
}

func (r *NoteRepository) PutUserNotes(ctx context.Context, email string, items json.RawMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_notes (email, items)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE
		SET    items      = EXCLUDED.items,
		       updated_at = NOW()`,
		email, items,
	)
	if err != nil {
		return fmt.Errorf("put user notes: %w", err)
	}
	return nil
}
