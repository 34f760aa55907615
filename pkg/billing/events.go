package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event emitted on every successful state transition.
// The core does not format or send notifications itself; an external
// collaborator subscribes through a Publisher.
type Event interface {
	EventName() string
}

// TrialActivatedEvent is emitted when a trial subscription becomes active.
type TrialActivatedEvent struct {
	SubscriptionID uuid.UUID
	UserID         uuid.UUID
	PlanID         string
	EndsAt         time.Time
}

func (TrialActivatedEvent) EventName() string { return "billing.trial_activated" }

// SubscriptionActivatedEvent is emitted when a paid subscription is
// confirmed by the gateway, via webhook or synchronous verification.
type SubscriptionActivatedEvent struct {
	SubscriptionID uuid.UUID
	UserID         uuid.UUID
	PlanID         string
	AmountPaid     Money
	EndsAt         time.Time
}

func (SubscriptionActivatedEvent) EventName() string { return "billing.subscription_activated" }

// PaymentFailedEvent is emitted when the gateway reports a failed charge.
type PaymentFailedEvent struct {
	SubscriptionID   uuid.UUID
	UserID           uuid.UUID
	GatewayReference string
}

func (PaymentFailedEvent) EventName() string { return "billing.payment_failed" }

// SubscriptionCancelledEvent is emitted on explicit cancellation.
type SubscriptionCancelledEvent struct {
	SubscriptionID uuid.UUID
	UserID         uuid.UUID
	CancelledAt    time.Time
}

func (SubscriptionCancelledEvent) EventName() string { return "billing.subscription_cancelled" }

// Publisher delivers domain events to interested collaborators.
// Implementations must not block the billing operation; delivery
// failures are the subscriber's concern, not the orchestrator's.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher discards all events. It is the default when no publisher
// is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
