package domain

import (
	"encoding/json"
	"errors"
)

var (
	ErrNoteNotFound      = errors.New("note not found")
	ErrUserNotesNotFound = errors.New("user notes not found")
)

type Note struct {
	ID    string
	Title string
	Text  string
}

// Item types inside a user's notes blob that get server-assigned IDs.
const (
	ItemTypeNotebook = "notebook"
	ItemTypeBox      = "box"
)

// UserNotes is the per-user blob describing the notebook/box/note tree.
// The server only inspects itemType and the ID fields; the rest is opaque.
type UserNotes struct {
	Email string
	Items json.RawMessage
}
