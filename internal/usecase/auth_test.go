package usecase_test

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/p3tuh/notello/internal/authtoken"
	"github.com/p3tuh/notello/internal/domain"
	"github.com/p3tuh/notello/internal/email"
	"github.com/p3tuh/notello/internal/events"
	"github.com/p3tuh/notello/internal/usecase"
)

// ---- fakes ----

// memChallenges mirrors the store contract: consume deletes every challenge
// of the same identity.
type memChallenges struct {
	mu      sync.Mutex
	records map[string]domain.LoginChallenge
	seq     int
	failOn  error
}

func newMemChallenges() *memChallenges {
	return &memChallenges{records: make(map[string]domain.LoginChallenge)}
}

func (m *memChallenges) Create(_ context.Context, identity string, issuedAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return "", m.failOn
	}
	m.seq++
	id := fmt.Sprintf("%032x", m.seq)
	m.records[id] = domain.LoginChallenge{ID: id, Identity: identity, IssuedAt: issuedAt}
	return id, nil
}

func (m *memChallenges) Consume(_ context.Context, challengeID string) (*domain.LoginChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return nil, m.failOn
	}
	c, ok := m.records[challengeID]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	for id, r := range m.records {
		if r.Identity == c.Identity {
			delete(m.records, id)
		}
	}
	return &c, nil
}

func (m *memChallenges) DeleteIssuedBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.records {
		if r.IssuedAt.Before(cutoff) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

type fakeEmailSender struct {
	send func(ctx context.Context, msg email.Message) (string, error)
}

func (s *fakeEmailSender) Send(ctx context.Context, msg email.Message) (string, error) {
	return s.send(ctx, msg)
}

type recordingPublisher struct {
	requested []events.LoginRequested
	redeemed  []events.LoginRedeemed
}

func (p *recordingPublisher) LoginRequested(_ context.Context, e events.LoginRequested) error {
	p.requested = append(p.requested, e)
	return nil
}

func (p *recordingPublisher) LoginRedeemed(_ context.Context, e events.LoginRedeemed) error {
	p.redeemed = append(p.redeemed, e)
	return nil
}

// ---- helpers ----

const (
	testTokenKey   = "usecase-test-secret-at-least-32-chars"
	testAppBaseURL = "http://localhost:8080"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newUsecase(repo *memChallenges, sender *fakeEmailSender, clk *clock, opts ...usecase.AuthOption) *usecase.AuthUsecase {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	opts = append([]usecase.AuthOption{usecase.WithClock(clk.Now)}, opts...)
	return usecase.NewAuthUsecase(repo, sender, authtoken.NewCodec([]byte(testTokenKey)), testAppBaseURL, logger, opts...)
}

func okSender(captured *email.Message) *fakeEmailSender {
	return &fakeEmailSender{
		send: func(_ context.Context, msg email.Message) (string, error) {
			if captured != nil {
				*captured = msg
			}
			return "msg-1", nil
		},
	}
}

// challengeIDFrom pulls the token query parameter out of the link in the text body.
func challengeIDFrom(t *testing.T, msg email.Message) string {
	t.Helper()
	for _, field := range strings.Fields(msg.Text) {
		if !strings.Contains(field, "/authenticate?") {
			continue
		}
		u, err := url.Parse(field)
		if err != nil {
			t.Fatalf("parse link %q: %v", field, err)
		}
		return u.Query().Get("token")
	}
	t.Fatalf("email body has no /authenticate link: %q", msg.Text)
	return ""
}

// ---- RequestLogin ----

func TestRequestLogin_StoresChallengeAndMailsLink(t *testing.T) {
	repo := newMemChallenges()
	var msg email.Message
	clk := &clock{t: baseTime}

	if err := newUsecase(repo, okSender(&msg), clk).RequestLogin(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.To != "a@x.com" {
		t.Errorf("To = %q, want a@x.com", msg.To)
	}
	if !strings.Contains(msg.HTML, testAppBaseURL+"/authenticate?token=") {
		t.Errorf("html body missing link: %q", msg.HTML)
	}

	id := challengeIDFrom(t, msg)
	c, ok := repo.records[id]
	if !ok {
		t.Fatalf("challenge %q from the email was not stored", id)
	}
	if c.Identity != "a@x.com" || !c.IssuedAt.Equal(baseTime) {
		t.Errorf("stored challenge = %+v", c)
	}
}

func TestRequestLogin_RejectsIdentityWithDelimiter(t *testing.T) {
	repo := newMemChallenges()
	err := newUsecase(repo, okSender(nil), &clock{t: baseTime}).RequestLogin(context.Background(), "a:b@x.com")
	if !errors.Is(err, domain.ErrInvalidIdentity) {
		t.Fatalf("want ErrInvalidIdentity, got %v", err)
	}
	if len(repo.records) != 0 {
		t.Error("no challenge should be stored")
	}
}

func TestRequestLogin_RepoError_Propagates(t *testing.T) {
	repoErr := errors.New("db down")
	repo := newMemChallenges()
	repo.failOn = repoErr

	err := newUsecase(repo, okSender(nil), &clock{t: baseTime}).RequestLogin(context.Background(), "a@x.com")
	if !errors.Is(err, repoErr) {
		t.Errorf("want wrapped repoErr, got %v", err)
	}
	var de *domain.DispatchError
	if errors.As(err, &de) {
		t.Error("store failure must not look like a dispatch failure")
	}
}

func TestRequestLogin_EmailError_IsDispatchError(t *testing.T) {
	sendErr := errors.New("Email address is not verified.")
	sender := &fakeEmailSender{
		send: func(_ context.Context, _ email.Message) (string, error) { return "", sendErr },
	}

	err := newUsecase(newMemChallenges(), sender, &clock{t: baseTime}).RequestLogin(context.Background(), "a@x.com")
	var de *domain.DispatchError
	if !errors.As(err, &de) {
		t.Fatalf("want *DispatchError, got %v", err)
	}
	if de.Error() != sendErr.Error() {
		t.Errorf("message = %q, want %q", de.Error(), sendErr.Error())
	}
	if !errors.Is(err, sendErr) {
		t.Error("dispatch error should unwrap to the send error")
	}
}

func TestRequestLogin_PublishesEvent(t *testing.T) {
	pub := &recordingPublisher{}
	err := newUsecase(newMemChallenges(), okSender(nil), &clock{t: baseTime}, usecase.WithEvents(pub)).
		RequestLogin(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.requested) != 1 || pub.requested[0].Email != "a@x.com" {
		t.Errorf("requested events = %+v", pub.requested)
	}
}

func TestRequestLogin_EventCarriesDigestNotChallengeID(t *testing.T) {
	pub := &recordingPublisher{}
	var msg email.Message
	err := newUsecase(newMemChallenges(), okSender(&msg), &clock{t: baseTime}, usecase.WithEvents(pub)).
		RequestLogin(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.requested) != 1 {
		t.Fatalf("requested events = %+v", pub.requested)
	}

	id := challengeIDFrom(t, msg)
	payload, err := json.Marshal(pub.requested[0])
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if strings.Contains(string(payload), id) {
		t.Errorf("event %s exposes the challenge ID %q", payload, id)
	}
	if want := fmt.Sprintf("%x", sha256.Sum256([]byte(id))); pub.requested[0].ChallengeDigest != want {
		t.Errorf("digest = %q, want %q", pub.requested[0].ChallengeDigest, want)
	}
}

// ---- RedeemLink ----

func TestRedeemLink_EndToEnd_Granted(t *testing.T) {
	repo := newMemChallenges()
	var msg email.Message
	clk := &clock{t: baseTime}
	uc := newUsecase(repo, okSender(&msg), clk)

	if err := uc.RequestLogin(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("request login: %v", err)
	}
	id := challengeIDFrom(t, msg)

	clk.t = baseTime.Add(10 * time.Minute)
	red, err := uc.RedeemLink(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if red.Outcome != domain.OutcomeGranted {
		t.Fatalf("outcome = %q, want granted", red.Outcome)
	}

	tok, err := authtoken.Parse(red.Token)
	if err != nil {
		t.Fatalf("granted token does not parse: %v", err)
	}
	if tok.Identity != "a@x.com" {
		t.Errorf("identity = %q, want a@x.com", tok.Identity)
	}
	if want := clk.t.Add(usecase.SessionTTL).Unix(); tok.ExpiresAt.Unix() != want {
		t.Errorf("expiry = %d, want %d", tok.ExpiresAt.Unix(), want)
	}
	if red.RelayValue() != red.Token {
		t.Errorf("relay value = %q, want the token", red.RelayValue())
	}
}

func TestRedeemLink_AgeBoundary(t *testing.T) {
	cases := []struct {
		name string
		age  time.Duration
		want domain.Outcome
	}{
		{"just inside", usecase.ChallengeMaxAge - time.Second, domain.OutcomeGranted},
		{"exactly max age", usecase.ChallengeMaxAge, domain.OutcomeGranted},
		{"just outside", usecase.ChallengeMaxAge + time.Second, domain.OutcomeExpired},
		{"a day old", 24 * time.Hour, domain.OutcomeExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemChallenges()
			clk := &clock{t: baseTime}
			uc := newUsecase(repo, okSender(nil), clk)

			id, _ := repo.Create(context.Background(), "a@x.com", baseTime)
			clk.t = baseTime.Add(tc.age)

			red, err := uc.RedeemLink(context.Background(), id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if red.Outcome != tc.want {
				t.Errorf("outcome = %q, want %q", red.Outcome, tc.want)
			}
			if tc.want == domain.OutcomeExpired && red.RelayValue() != "expired" {
				t.Errorf("relay value = %q, want expired", red.RelayValue())
			}
		})
	}
}

func TestRedeemLink_SecondUseIsInvalid(t *testing.T) {
	repo := newMemChallenges()
	clk := &clock{t: baseTime}
	uc := newUsecase(repo, okSender(nil), clk)
	id, _ := repo.Create(context.Background(), "a@x.com", baseTime)

	first, err := uc.RedeemLink(context.Background(), id)
	if err != nil || first.Outcome != domain.OutcomeGranted {
		t.Fatalf("first redemption = %+v, %v", first, err)
	}

	second, err := uc.RedeemLink(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Outcome != domain.OutcomeInvalid || second.RelayValue() != "invalid" {
		t.Errorf("second redemption = %+v, want invalid", second)
	}
}

func TestRedeemLink_ExpiredLinkStillRetiresSiblings(t *testing.T) {
	repo := newMemChallenges()
	clk := &clock{t: baseTime}
	uc := newUsecase(repo, okSender(nil), clk)

	stale, _ := repo.Create(context.Background(), "a@x.com", baseTime)
	fresh, _ := repo.Create(context.Background(), "a@x.com", baseTime.Add(90*time.Minute))

	clk.t = baseTime.Add(100 * time.Minute)
	red, err := uc.RedeemLink(context.Background(), stale)
	if err != nil || red.Outcome != domain.OutcomeExpired {
		t.Fatalf("stale redemption = %+v, %v", red, err)
	}

	red, err = uc.RedeemLink(context.Background(), fresh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if red.Outcome != domain.OutcomeInvalid {
		t.Errorf("fresh sibling outcome = %q, want invalid", red.Outcome)
	}
}

func TestRedeemLink_EmptyID_IsInvalid(t *testing.T) {
	red, err := newUsecase(newMemChallenges(), okSender(nil), &clock{t: baseTime}).RedeemLink(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if red.Outcome != domain.OutcomeInvalid {
		t.Errorf("outcome = %q, want invalid", red.Outcome)
	}
}

func TestRedeemLink_StoreError_ReturnsInvalidAndError(t *testing.T) {
	repoErr := errors.New("db down")
	repo := newMemChallenges()
	repo.failOn = repoErr

	red, err := newUsecase(repo, okSender(nil), &clock{t: baseTime}).RedeemLink(context.Background(), "abc")
	if !errors.Is(err, repoErr) {
		t.Errorf("want wrapped repoErr, got %v", err)
	}
	if red.Outcome != domain.OutcomeInvalid {
		t.Errorf("outcome = %q, want invalid", red.Outcome)
	}
}

func TestRedeemLink_PublishesOutcome(t *testing.T) {
	pub := &recordingPublisher{}
	repo := newMemChallenges()
	uc := newUsecase(repo, okSender(nil), &clock{t: baseTime}, usecase.WithEvents(pub))
	id, _ := repo.Create(context.Background(), "a@x.com", baseTime)

	if _, err := uc.RedeemLink(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.redeemed) != 1 || pub.redeemed[0].Outcome != domain.OutcomeGranted {
		t.Errorf("redeemed events = %+v", pub.redeemed)
	}
}

// ---- Authorize / RefreshToken ----

func issue(t *testing.T, identity string, at time.Time) string {
	t.Helper()
	tok, err := authtoken.NewCodec([]byte(testTokenKey)).Issue(identity, usecase.SessionTTL, at)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func TestAuthorize_RenewsWithSlidingWindow(t *testing.T) {
	clk := &clock{t: baseTime.Add(2 * 24 * time.Hour)}
	uc := newUsecase(newMemChallenges(), okSender(nil), clk)
	orig := issue(t, "a@x.com", baseTime)

	identity, renewed, err := uc.Authorize(orig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity != "a@x.com" {
		t.Errorf("identity = %q", identity)
	}

	o, _ := authtoken.Parse(orig)
	r, err := authtoken.Parse(renewed)
	if err != nil {
		t.Fatalf("renewed token does not parse: %v", err)
	}
	if !r.ExpiresAt.After(o.ExpiresAt) {
		t.Errorf("renewed expiry %v is not after original %v", r.ExpiresAt, o.ExpiresAt)
	}
	if r.ExpiresAt.Unix() != clk.t.Add(usecase.SessionTTL).Unix() {
		t.Errorf("renewed expiry should be a full window from now")
	}
}

func TestAuthorize_Failures(t *testing.T) {
	clk := &clock{t: baseTime}
	uc := newUsecase(newMemChallenges(), okSender(nil), clk)

	valid := issue(t, "a@x.com", baseTime)
	last := "0"
	if strings.HasSuffix(valid, "0") {
		last = "1"
	}
	badSig := valid[:len(valid)-1] + last
	stale := issue(t, "a@x.com", baseTime.Add(-usecase.SessionTTL))

	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"missing", "", domain.ErrTokenMissing},
		{"malformed", "a:notanumber:sig", authtoken.ErrMalformed},
		{"expired", stale, authtoken.ErrExpired},
		{"bad signature", badSig, authtoken.ErrInvalidSignature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := uc.Authorize(tc.raw)
			if !errors.Is(err, tc.want) {
				t.Errorf("Authorize err = %v, want %v", err, tc.want)
			}
			_, err = uc.RefreshToken(tc.raw)
			if !errors.Is(err, tc.want) {
				t.Errorf("RefreshToken err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRefreshToken_ReturnsRenewedToken(t *testing.T) {
	clk := &clock{t: baseTime.Add(time.Hour)}
	uc := newUsecase(newMemChallenges(), okSender(nil), clk)

	renewed, err := uc.RefreshToken(issue(t, "a@x.com", baseTime))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, err := authtoken.Parse(renewed)
	if err != nil || tok.Identity != "a@x.com" {
		t.Fatalf("renewed = %q (%v)", renewed, err)
	}
}
