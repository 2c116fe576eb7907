package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/p3tuh/notello/internal/domain"
	"github.com/p3tuh/notello/internal/transport/http/middleware"
	"github.com/p3tuh/notello/internal/usecase"
)

type noteUsecaser interface {
	GetNote(ctx context.Context, noteID string) (*domain.Note, error)
	CreateNote(ctx context.Context, input usecase.NoteInput) (string, error)
	UpdateNote(ctx context.Context, noteID string, input usecase.NoteInput) error
	DeleteNote(ctx context.Context, noteID string) error
	GetUserNotes(ctx context.Context, email string) (json.RawMessage, error)
	SaveUserNotes(ctx context.Context, email string, items json.RawMessage) (json.RawMessage, error)
}

type NoteHandler struct {
	uc     noteUsecaser
	logger *slog.Logger
}

func NewNoteHandler(uc noteUsecaser, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{uc: uc, logger: logger.With("component", "note_handler")}
}

type noteRequest struct {
	Title string `form:"noteTitle" json:"noteTitle"`
	Text  string `form:"noteText"  json:"noteText"`
}

type userNotesRequest struct {
	UserNotes json.RawMessage `json:"userNotes" binding:"required"`
}

func (h *NoteHandler) GetUserNotes(ctx *gin.Context) {
	items, err := h.uc.GetUserNotes(ctx.Request.Context(), ctx.GetString(middleware.IdentityKey))
	if err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "get user notes", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	// The browser app expects the blob as a JSON-encoded string.
	var userNotes *string
	if items != nil {
		encoded := string(items)
		userNotes = &encoded
	}
	ctx.JSON(http.StatusOK, gin.H{"userNotes": userNotes})
}

func (h *NoteHandler) SaveUserNotes(ctx *gin.Context) {
	var req userNotesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.uc.SaveUserNotes(ctx.Request.Context(), ctx.GetString(middleware.IdentityKey), req.UserNotes)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidUserNotes) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidUserNotes})
			return
		}
		h.logger.ErrorContext(ctx.Request.Context(), "save user notes", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": saved})
}

func (h *NoteHandler) Get(ctx *gin.Context) {
	noteID := ctx.Param("noteId")

	note, err := h.uc.GetNote(ctx.Request.Context(), noteID)
	if err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errNoteNotFound})
			return
		}
		h.logger.ErrorContext(ctx.Request.Context(), "get note", "note_id", noteID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"noteText": note.Text})
}

func (h *NoteHandler) Create(ctx *gin.Context) {
	var req noteRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.uc.CreateNote(ctx.Request.Context(), usecase.NoteInput{Title: req.Title, Text: req.Text})
	if err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "create note", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"noteId": id})
}

func (h *NoteHandler) Update(ctx *gin.Context) {
	noteID := ctx.Param("noteId")

	var req noteRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.uc.UpdateNote(ctx.Request.Context(), noteID, usecase.NoteInput{Title: req.Title, Text: req.Text}); err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "update note", "note_id", noteID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Successful"})
}

func (h *NoteHandler) Delete(ctx *gin.Context) {
	noteID := ctx.Param("noteId")

	if err := h.uc.DeleteNote(ctx.Request.Context(), noteID); err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "delete note", "note_id", noteID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Successful"})
}
