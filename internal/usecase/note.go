package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/p3tuh/notello/internal/domain"
	"github.com/p3tuh/notello/internal/idgen"
	"github.com/p3tuh/notello/internal/repository"
)

var ErrInvalidUserNotes = errors.New("userNotes must be a JSON array of objects")

type NoteUsecase struct {
	repo  repository.NoteRepository
	newID func() string
}

func NewNoteUsecase(repo repository.NoteRepository) *NoteUsecase {
	return &NoteUsecase{repo: repo, newID: idgen.New}
}

func (u *NoteUsecase) GetNote(ctx context.Context, noteID string) (*domain.Note, error) {
	note, err := u.repo.Get(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

type NoteInput struct {
	Title string
	Text  string
}

// CreateNote stores a note under a fresh ID and returns that ID.
func (u *NoteUsecase) CreateNote(ctx context.Context, input NoteInput) (string, error) {
	note := &domain.Note{ID: u.newID(), Title: input.Title, Text: input.Text}
	if err := u.repo.Put(ctx, note); err != nil {
		return "", fmt.Errorf("create note: %w", err)
	}
	return note.ID, nil
}

// UpdateNote replaces the note, creating it if it does not exist.
func (u *NoteUsecase) UpdateNote(ctx context.Context, noteID string, input NoteInput) error {
	if err := u.repo.Put(ctx, &domain.Note{ID: noteID, Title: input.Title, Text: input.Text}); err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

func (u *NoteUsecase) DeleteNote(ctx context.Context, noteID string) error {
	if err := u.repo.Delete(ctx, noteID); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// GetUserNotes returns the stored blob for email, or nil if there is none.
func (u *NoteUsecase) GetUserNotes(ctx context.Context, email string) (json.RawMessage, error) {
	un, err := u.repo.GetUserNotes(ctx, email)
	if errors.Is(err, domain.ErrUserNotesNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user notes: %w", err)
	}
	return un.Items, nil
}

// SaveUserNotes gives every notebook without a notebookId and every box
// without a boxId a fresh ID, stores the result and returns it.
func (u *NoteUsecase) SaveUserNotes(ctx context.Context, email string, items json.RawMessage) (json.RawMessage, error) {
	var list []map[string]json.RawMessage
	if err := json.Unmarshal(items, &list); err != nil {
		return nil, ErrInvalidUserNotes
	}

	for _, item := range list {
		if item == nil {
			continue
		}
		switch itemType(item) {
		case domain.ItemTypeNotebook:
			u.assignID(item, "notebookId")
		case domain.ItemTypeBox:
			u.assignID(item, "boxId")
		}
	}

	if list == nil {
		list = []map[string]json.RawMessage{}
	}
	out, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode user notes: %w", err)
	}
	if err := u.repo.PutUserNotes(ctx, email, out); err != nil {
		return nil, fmt.Errorf("save user notes: %w", err)
	}
	return out, nil
}

func itemType(item map[string]json.RawMessage) string {
	var t string
	if raw, ok := item["itemType"]; ok {
		_ = json.Unmarshal(raw, &t)
	}
	return t
}

// assignID treats an explicit null like a missing key.
func (u *NoteUsecase) assignID(item map[string]json.RawMessage, key string) {
	if raw, ok := item[key]; ok && string(raw) != "null" {
		return
	}
	id, _ := json.Marshal(u.newID())
	item[key] = id
}
