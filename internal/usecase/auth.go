package usecase

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/p3tuh/notello/internal/authtoken"
	"github.com/p3tuh/notello/internal/domain"
	"github.com/p3tuh/notello/internal/email"
	"github.com/p3tuh/notello/internal/events"
	"github.com/p3tuh/notello/internal/metrics"
	"github.com/p3tuh/notello/internal/repository"
)

const (
	// SessionTTL is the sliding window every issued or renewed token gets.
	SessionTTL = 7 * 24 * time.Hour
	// ChallengeMaxAge is how long a login link stays redeemable.
	ChallengeMaxAge = time.Hour
)

type AuthUsecase struct {
	challenges repository.ChallengeRepository
	email      email.Sender
	tokens     *authtoken.Codec
	events     events.Publisher
	logger     *slog.Logger
	appBaseURL string
	now        func() time.Time
}

type AuthOption func(*AuthUsecase)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AuthOption {
	return func(u *AuthUsecase) { u.now = now }
}

func WithEvents(p events.Publisher) AuthOption {
	return func(u *AuthUsecase) { u.events = p }
}

func NewAuthUsecase(
	challenges repository.ChallengeRepository,
	emailSender email.Sender,
	tokens *authtoken.Codec,
	appBaseURL string,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthUsecase {
	u := &AuthUsecase{
		challenges: challenges,
		email:      emailSender,
		tokens:     tokens,
		events:     events.Nop{},
		logger:     logger.With("component", "auth_usecase"),
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// RequestLogin stores a fresh challenge for emailAddr and mails the link that
// redeems it. It does not check whether the address is known. A failed send
// is returned as *domain.DispatchError.
func (u *AuthUsecase) RequestLogin(ctx context.Context, emailAddr string) error {
	if emailAddr == "" || strings.Contains(emailAddr, ":") {
		metrics.LoginRequestsTotal.WithLabelValues("rejected").Inc()
		return domain.ErrInvalidIdentity
	}

	now := u.now()
	challengeID, err := u.challenges.Create(ctx, emailAddr, now)
	if err != nil {
		metrics.LoginRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("create login challenge: %w", err)
	}

	msg, err := email.LoginMessage(email.LoginParams{
		Email:    emailAddr,
		Link:     u.appBaseURL + "/authenticate?token=" + url.QueryEscape(challengeID),
		ValidFor: ChallengeMaxAge,
	})
	if err != nil {
		metrics.LoginRequestsTotal.WithLabelValues("error").Inc()
		return err
	}

	messageID, err := u.email.Send(ctx, msg)
	if err != nil {
		metrics.LoginRequestsTotal.WithLabelValues("dispatch_failed").Inc()
		return &domain.DispatchError{Err: err}
	}
	metrics.LoginRequestsTotal.WithLabelValues("sent").Inc()
	u.logger.InfoContext(ctx, "login email sent", "message_id", messageID)

	if err := u.events.LoginRequested(ctx, events.LoginRequested{
		Email:           emailAddr,
		ChallengeDigest: fmt.Sprintf("%x", sha256.Sum256([]byte(challengeID))),
		At:              now,
	}); err != nil {
		u.logger.WarnContext(ctx, "publish login requested", "error", err)
	}
	return nil
}

// RedeemLink consumes the challenge behind a magic link. The store deletes
// every challenge for the same address before the age check, so even an
// expired link retires the others. A non-nil error means the store failed;
// the returned Redemption is then OutcomeInvalid.
func (u *AuthUsecase) RedeemLink(ctx context.Context, challengeID string) (domain.Redemption, error) {
	now := u.now()

	red, err := u.redeem(ctx, challengeID, now)
	if err != nil {
		metrics.LoginRedemptionsTotal.WithLabelValues("error").Inc()
		return domain.Redemption{Outcome: domain.OutcomeInvalid}, err
	}
	metrics.LoginRedemptionsTotal.WithLabelValues(string(red.Outcome)).Inc()

	if err := u.events.LoginRedeemed(ctx, events.LoginRedeemed{
		Email:   red.Identity,
		Outcome: red.Outcome,
		At:      now,
	}); err != nil {
		u.logger.WarnContext(ctx, "publish login redeemed", "error", err)
	}
	return red, nil
}

func (u *AuthUsecase) redeem(ctx context.Context, challengeID string, now time.Time) (domain.Redemption, error) {
	if challengeID == "" {
		return domain.Redemption{Outcome: domain.OutcomeInvalid}, nil
	}

	c, err := u.challenges.Consume(ctx, challengeID)
	if errors.Is(err, domain.ErrChallengeNotFound) {
		return domain.Redemption{Outcome: domain.OutcomeInvalid}, nil
	}
	if err != nil {
		return domain.Redemption{}, fmt.Errorf("consume login challenge: %w", err)
	}

	if c.Age(now) > ChallengeMaxAge {
		return domain.Redemption{Outcome: domain.OutcomeExpired, Identity: c.Identity}, nil
	}

	token, err := u.tokens.Issue(c.Identity, SessionTTL, now)
	if err != nil {
		return domain.Redemption{}, fmt.Errorf("issue session token: %w", err)
	}
	return domain.Redemption{Outcome: domain.OutcomeGranted, Identity: c.Identity, Token: token}, nil
}

// Authorize validates the bearer token of a protected request and returns a
// replacement valid for SessionTTL from now. Errors: domain.ErrTokenMissing,
// authtoken.ErrMalformed, authtoken.ErrExpired, authtoken.ErrInvalidSignature.
func (u *AuthUsecase) Authorize(rawToken string) (identity, renewed string, err error) {
	return u.renew("session", rawToken)
}

// RefreshToken is Authorize for the standalone token check endpoint.
func (u *AuthUsecase) RefreshToken(rawToken string) (string, error) {
	_, renewed, err := u.renew("refresh", rawToken)
	return renewed, err
}

func (u *AuthUsecase) renew(kind, rawToken string) (string, string, error) {
	if rawToken == "" {
		metrics.TokenChecksTotal.WithLabelValues(kind, "missing").Inc()
		return "", "", domain.ErrTokenMissing
	}

	identity, renewed, err := u.tokens.Renew(rawToken, SessionTTL, u.now())
	metrics.TokenChecksTotal.WithLabelValues(kind, checkResult(err)).Inc()
	if err != nil {
		return "", "", err
	}
	return identity, renewed, nil
}

func checkResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, authtoken.ErrExpired):
		return "expired"
	case errors.Is(err, authtoken.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, authtoken.ErrMalformed):
		return "malformed"
	default:
		return "error"
	}
}
