package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/p3tuh/notello/internal/transport/http/handler"
	"github.com/p3tuh/notello/internal/transport/http/middleware"
	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Auth *handler.AuthHandler
	Note *handler.NoteHandler
}

type Options struct {
	// HSTS enables Strict-Transport-Security on every response.
	HSTS bool
}

func NewRouter(logger *slog.Logger, h Handlers, authorizer middleware.Authorizer, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(opts.HSTS))
	// /authenticate carries a live challenge ID in its query string.
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		Filters:          []sloggin.Filter{sloggin.IgnorePath("/authenticate")},
	}))
	r.Use(middleware.Metrics())

	r.GET("/authenticate", h.Auth.Authenticate)

	api := r.Group("/api")
	api.GET("/token", h.Auth.Token)
	api.POST("/login", h.Auth.Login)

	protected := api.Group("", middleware.RequireToken(authorizer))
	protected.GET("/usernotes", h.Note.GetUserNotes)
	protected.PUT("/usernotes", h.Note.SaveUserNotes)
	protected.GET("/note/:noteId", h.Note.Get)
	protected.POST("/note", h.Note.Create)
	protected.PUT("/note/:noteId", h.Note.Update)
	protected.DELETE("/note/:noteId", h.Note.Delete)

	return r
}
