package handler

const (
	errInternalServer   = "Internal server error"
	errNoteNotFound     = "Note not found"
	errInvalidUserNotes = "userNotes must be an array of objects"

	// invalidToken is the literal the client checks for on /api/token and
	// on protected routes whose token failed signature verification.
	invalidToken = "InvalidToken"
)
