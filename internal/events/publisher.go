// Package events publishes login audit events. Nothing in the request path
// depends on them being delivered.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/p3tuh/notello/internal/domain"
)

const (
	TopicLoginRequested = "notello.login.requested"
	TopicLoginRedeemed  = "notello.login.redeemed"
)

// LoginRequested carries a digest of the challenge ID, never the ID itself:
// the ID alone redeems the link.
type LoginRequested struct {
	Email           string    `json:"email"`
	ChallengeDigest string    `json:"challenge_digest"`
	At              time.Time `json:"at"`
}

type LoginRedeemed struct {
	Email   string         `json:"email,omitempty"`
	Outcome domain.Outcome `json:"outcome"`
	At      time.Time      `json:"at"`
}

type Publisher interface {
	LoginRequested(ctx context.Context, e LoginRequested) error
	LoginRedeemed(ctx context.Context, e LoginRedeemed) error
}

// Nop drops every event. Used when EVENTS_ENABLED is false.
type Nop struct{}

func (Nop) LoginRequested(context.Context, LoginRequested) error { return nil }
func (Nop) LoginRedeemed(context.Context, LoginRedeemed) error   { return nil }

// WatermillPublisher JSON-encodes events onto a watermill publisher.
type WatermillPublisher struct {
	publisher message.Publisher
}

func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) LoginRequested(ctx context.Context, e LoginRequested) error {
	return p.publish(ctx, TopicLoginRequested, e)
}

func (p *WatermillPublisher) LoginRedeemed(ctx context.Context, e LoginRedeemed) error {
	return p.publish(ctx, TopicLoginRedeemed, e)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
