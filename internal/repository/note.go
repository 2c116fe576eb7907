package repository

import (
	"context"
	"encoding/json"

	"github.com/p3tuh/notello/internal/domain"
)

type NoteRepository interface {
	Get(ctx context.Context, noteID string) (*domain.Note, error)
	// Put inserts or replaces the note keyed by note.ID.
	Put(ctx context.Context, note *domain.Note) error
	Delete(ctx context.Context, noteID string) error

	GetUserNotes(ctx context.Context, email string) (*domain.UserNotes, error)
	PutUserNotes(ctx context.Context, email string, items json.RawMessage) error
}
