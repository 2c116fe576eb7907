package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/p3tuh/notello/internal/domain"
)

const (
	RelayCookie       = "tempAuthToken"
	relayCookieMaxAge = 5 * 60
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	RequestLogin(ctx context.Context, email string) error
	RedeemLink(ctx context.Context, challengeID string) (domain.Redemption, error)
	RefreshToken(rawToken string) (string, error)
}

type AuthHandler struct {
	authUsecase  authUsecaser
	cookieSecure bool
	logger       *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase:  authUsecase,
		cookieSecure: cookieSecure,
		logger:       logger.With("component", "auth_handler"),
	}
}

type loginRequest struct {
	Email string `form:"email" json:"email" binding:"required,email"`
}

// POST /api/login
// Accepts a JSON or form body. Responds with JSON true once the email is
// handed to the provider; a provider rejection is returned as plain text.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.authUsecase.RequestLogin(c.Request.Context(), req.Email)
	if err != nil {
		var dispatchErr *domain.DispatchError
		switch {
		case errors.As(err, &dispatchErr):
			h.logger.WarnContext(c.Request.Context(), "login email not sent", "error", err)
			c.String(http.StatusOK, dispatchErr.Error())
		case errors.Is(err, domain.ErrInvalidIdentity):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.ErrorContext(c.Request.Context(), "request login", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	c.JSON(http.StatusOK, true)
}

// GET /authenticate?token=<challengeID>
// Hands the outcome to the browser app through a short-lived cookie and
// redirects to it. The cookie holds the session token, "expired" or "invalid".
func (h *AuthHandler) Authenticate(c *gin.Context) {
	red, err := h.authUsecase.RedeemLink(c.Request.Context(), c.Query("token"))
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "redeem login link", "error", err)
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RelayCookie, "", -1, "/", "", h.cookieSecure, false)
	c.SetCookie(RelayCookie, red.RelayValue(), relayCookieMaxAge, "/", "", h.cookieSecure, false)
	c.Redirect(http.StatusSeeOther, "/")
}

// GET /api/token
// Always 200: a fresh token for a valid X-Authorization, InvalidToken otherwise.
func (h *AuthHandler) Token(c *gin.Context) {
	renewed, err := h.authUsecase.RefreshToken(c.GetHeader("X-Authorization"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"token": invalidToken})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": renewed})
}
