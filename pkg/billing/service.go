package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service owns the subscription lifecycle: it creates pending
// subscriptions, activates trials, initiates paid-plan payments,
// reconciles gateway events against stored state, computes the
// post-login access decision, and handles cancellation and
// trial-to-paid upgrades.
//
// All operations are request-scoped and stateless between calls; the
// only shared state is the Store, reached through its conditional-write
// contract.
type Service interface {
	// SelectPlan starts a subscription for the user on the given plan.
	// If the user already holds an ACTIVE subscription it is returned
	// unchanged. Trial plans activate immediately with no gateway call;
	// paid plans create a PENDING subscription and return a payment URL.
	SelectPlan(ctx context.Context, userID uuid.UUID, planID string) (*PlanSelection, error)

	// PostLoginStatus computes the access decision for a user at login.
	// Side effects: lazily activates a PENDING trial found at login
	// time, and re-initiates a gateway transaction for a PENDING paid
	// subscription that has none in flight.
	PostLoginStatus(ctx context.Context, userID uuid.UUID) (*Access, error)

	// Status is the read-only counterpart of PostLoginStatus: it
	// classifies the user's current subscription with no side effects.
	Status(ctx context.Context, userID uuid.UUID) (*Access, error)

	// ActivatePending attempts to move the user's PENDING subscription
	// forward: trials activate directly, paid subscriptions with a
	// reference in flight are verified against the gateway.
	ActivatePending(ctx context.Context, userID uuid.UUID) (*Access, error)

	// TrialStatus summarizes the user's trial subscription, if any.
	TrialStatus(ctx context.Context, userID uuid.UUID) (*TrialStatus, error)

	// VerifyPayment is the synchronous counterpart of the webhook path:
	// it asks the gateway for the authoritative transaction outcome and
	// applies the same transition. Safe to call after the webhook has
	// already applied it. Returns ErrSubscriptionNotFound when no
	// subscription holds the reference.
	VerifyPayment(ctx context.Context, reference string) (*Subscription, error)

	// HandleWebhook authenticates and processes one gateway webhook
	// delivery. The signature is verified before any payload parsing;
	// on failure processing aborts with ErrInvalidSignature and no side
	// effects.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error)

	// Cancel marks the subscription CANCELLED and disables auto-renew.
	// Cancelling an already-cancelled subscription is a no-op success.
	Cancel(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// UpgradeExpiredTrial creates a new PENDING, non-trial subscription
	// for a user whose trial has expired, carrying the same plan
	// reference, and runs the paid-plan initiation path. The expired row
	// is retained. Returns ErrNoExpiredTrial when the user's latest
	// subscription is not an expired trial.
	UpgradeExpiredTrial(ctx context.Context, userID uuid.UUID) (*PlanSelection, error)
}

// PlanSelection is the result of SelectPlan and UpgradeExpiredTrial.
type PlanSelection struct {
	Subscription    *Subscription
	AlreadyActive   bool   // an existing ACTIVE subscription was returned unchanged
	RequiresPayment bool   // the subscription is PENDING until payment completes
	PaymentURL      string // hosted payment page, set when RequiresPayment
}

type service struct {
	plans         map[string]Plan
	store         Store
	gateway       Gateway
	publisher     Publisher
	clock         Clock
	log           *slog.Logger
	emailResolver EmailResolver
	callbackURL   string
}

// NewService creates the billing orchestrator. Panics if required
// dependencies are nil to fail fast during initialization; returns an
// error when the plan catalog cannot be loaded or is misconfigured.
func NewService(ctx context.Context, src PlanSource, gateway Gateway, store Store, opts ...ServiceOption) (Service, error) {
	if src == nil {
		panic("billing: PlanSource is required")
	}
	if gateway == nil {
		panic("billing: Gateway is required")
	}
	if store == nil {
		panic("billing: Store is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	s := &service{
		plans:         plans,
		store:         store,
		gateway:       gateway,
		publisher:     NopPublisher{},
		clock:         RealClock{},
		log:           slog.Default(),
		emailResolver: EmailContextResolver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) SelectPlan(ctx context.Context, userID uuid.UUID, planID string) (*PlanSelection, error) {
	now := s.clock.Now()

	// An existing ACTIVE subscription makes plan selection a no-op
	// rather than an error.
	active, err := s.store.ActiveByUser(ctx, userID)
	switch {
	case err == nil:
		if active.IsActiveAt(now) {
			return &PlanSelection{Subscription: active, AlreadyActive: true}, nil
		}
		s.expireElapsed(ctx, active, now)
	case !errors.Is(err, ErrSubscriptionNotFound):
		return nil, err
	}

	plan, ok := s.plans[planID]
	if !ok {
		return nil, ErrPlanNotFound
	}

	if plan.Trial {
		return s.startTrial(ctx, userID, plan, now)
	}
	return s.startPaid(ctx, userID, plan, now)
}

// startTrial creates an immediately ACTIVE trial subscription. No
// gateway call is made; trials never require payment.
func (s *service) startTrial(ctx context.Context, userID uuid.UUID, plan Plan, now time.Time) (*PlanSelection, error) {
	end := plan.Period.EndDate(now)
	sub := &Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		PlanID:        plan.ID,
		Price:         plan.Price,
		Period:        plan.Period,
		IsTrial:       true,
		Status:        StatusActive,
		PaymentStatus: PaymentNotRequired,
		StartDate:     now,
		EndDate:       &end,
		AutoRenew:     false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create trial subscription: %w", err)
	}

	s.publisher.Publish(ctx, TrialActivatedEvent{
		SubscriptionID: sub.ID,
		UserID:         userID,
		PlanID:         plan.ID,
		EndsAt:         end,
	})
	s.log.InfoContext(ctx, "trial subscription activated",
		"subscription_id", sub.ID, "user_id", userID, "plan_id", plan.ID, "ends_at", end)

	return &PlanSelection{Subscription: sub}, nil
}

// startPaid creates a PENDING subscription and initializes a gateway
// transaction for it. On gateway failure the subscription stays PENDING
// without a reference so the attempt can be retried.
func (s *service) startPaid(ctx context.Context, userID uuid.UUID, plan Plan, now time.Time) (*PlanSelection, error) {
	sub := &Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		PlanID:        plan.ID,
		Price:         plan.Price,
		Period:        plan.Period,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		StartDate:     now,
		AutoRenew:     true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create pending subscription: %w", err)
	}

	url, err := s.initiatePayment(ctx, sub)
	if err != nil {
		return nil, err
	}
	return &PlanSelection{Subscription: sub, RequiresPayment: true, PaymentURL: url}, nil
}

// initiatePayment obtains a payment URL for a PENDING subscription and
// stores the gateway reference and amount due on the row.
func (s *service) initiatePayment(ctx context.Context, sub *Subscription) (string, error) {
	email, err := s.emailResolver(ctx, sub.UserID)
	if err != nil {
		return "", err
	}

	checkout, err := s.gateway.InitializeTransaction(ctx, InitializeRequest{
		Amount:      sub.Price,
		Email:       email,
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("initialize transaction for subscription %s: %w", sub.ID, err)
	}

	sub.GatewayReference = checkout.Reference
	sub.AmountPaid = sub.Price
	sub.UpdatedAt = s.clock.Now()
	if err := s.store.Update(ctx, sub); err != nil {
		return "", fmt.Errorf("store gateway reference %s: %w", checkout.Reference, err)
	}

	s.log.InfoContext(ctx, "payment initiated",
		"subscription_id", sub.ID, "reference", checkout.Reference, "amount", sub.Price.Amount)
	return checkout.PaymentURL, nil
}

func (s *service) PostLoginStatus(ctx context.Context, userID uuid.UUID) (*Access, error) {
	sub, err := s.store.LatestByUser(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return &Access{State: AccessNoSubscription, NextStep: NextStepChoosePlan}, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	switch {
	case sub.Status == StatusPending && sub.IsTrial:
		return s.activateTrialLazily(ctx, sub, now)

	case sub.Status == StatusPending:
		access := &Access{State: AccessPendingPayment, Subscription: sub, NextStep: NextStepRetryPayment}
		if sub.GatewayReference == "" {
			// No transaction in flight; start one so the user has a
			// payment URL to act on. Gateway unavailability degrades
			// the response rather than failing the login.
			url, err := s.initiatePayment(ctx, sub)
			if err != nil {
				s.log.WarnContext(ctx, "could not re-initiate payment",
					"subscription_id", sub.ID, "error", err)
			} else {
				access.PaymentURL = url
			}
		}
		return access, nil

	default:
		access := s.classify(sub, now)
		if sub.Status == StatusActive && sub.IsExpiredAt(now) {
			s.expireElapsed(ctx, sub, now)
		}
		return access, nil
	}
}

func (s *service) Status(ctx context.Context, userID uuid.UUID) (*Access, error) {
	sub, err := s.store.LatestByUser(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return &Access{State: AccessNoSubscription, NextStep: NextStepChoosePlan}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.classify(sub, s.clock.Now()), nil
}

// classify maps a subscription to the discriminated access result
// without side effects. Unrecognized combinations fall through to
// AccessUnknown, which never grants access.
func (s *service) classify(sub *Subscription, now time.Time) *Access {
	switch {
	case sub.Status == StatusPending && sub.IsTrial:
		return &Access{State: AccessPendingPayment, Subscription: sub, NextStep: NextStepNone}

	case sub.Status == StatusPending:
		return &Access{State: AccessPendingPayment, Subscription: sub, NextStep: NextStepRetryPayment}

	case sub.Status == StatusActive && sub.IsExpiredAt(now), sub.Status == StatusExpired:
		if sub.IsTrial {
			return &Access{State: AccessTrialExpired, Subscription: sub, NextStep: NextStepUpgrade}
		}
		return &Access{State: AccessSubscriptionExpired, Subscription: sub, NextStep: NextStepChoosePlan}

	case sub.Status == StatusActive:
		return &Access{
			State:           AccessActive,
			Subscription:    sub,
			DaysUntilExpiry: sub.DaysRemainingAt(now),
		}

	case sub.Status == StatusCancelled:
		return &Access{State: AccessCancelled, Subscription: sub, NextStep: NextStepChoosePlan}

	case sub.Status == StatusFailed:
		return &Access{State: AccessPaymentFailed, Subscription: sub, NextStep: NextStepRetryPayment}

	default:
		return &Access{State: AccessUnknown, Subscription: sub, NextStep: NextStepChoosePlan}
	}
}

// activateTrialLazily moves a PENDING trial found at login time to
// ACTIVE via the conditional-write path.
func (s *service) activateTrialLazily(ctx context.Context, sub *Subscription, now time.Time) (*Access, error) {
	end := sub.Period.EndDate(now)
	applied, err := s.store.TransitionFromPending(ctx, sub.ID, PendingTransition{
		Status:        StatusActive,
		PaymentStatus: PaymentNotRequired,
		EndDate:       &end,
	})
	if err != nil {
		return nil, fmt.Errorf("activate trial %s: %w", sub.ID, err)
	}
	if !applied {
		// A concurrent login won the race; re-read and classify.
		current, err := s.store.Get(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		return s.classify(current, now), nil
	}

	sub.Status = StatusActive
	sub.PaymentStatus = PaymentNotRequired
	sub.EndDate = &end

	s.publisher.Publish(ctx, TrialActivatedEvent{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanID:         sub.PlanID,
		EndsAt:         end,
	})
	s.log.InfoContext(ctx, "pending trial activated at login",
		"subscription_id", sub.ID, "user_id", sub.UserID, "ends_at", end)

	return &Access{
		State:           AccessTrialActivated,
		Subscription:    sub,
		DaysUntilExpiry: DaysUntil(end, now),
	}, nil
}

func (s *service) ActivatePending(ctx context.Context, userID uuid.UUID) (*Access, error) {
	sub, err := s.store.LatestByUser(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return &Access{State: AccessNoSubscription, NextStep: NextStepChoosePlan}, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if sub.Status != StatusPending {
		return s.classify(sub, now), nil
	}
	if sub.IsTrial {
		return s.activateTrialLazily(ctx, sub, now)
	}
	if sub.GatewayReference == "" {
		return &Access{State: AccessPendingPayment, Subscription: sub, NextStep: NextStepRetryPayment}, nil
	}

	verified, err := s.VerifyPayment(ctx, sub.GatewayReference)
	if err != nil {
		return nil, err
	}
	return s.classify(verified, now), nil
}

func (s *service) TrialStatus(ctx context.Context, userID uuid.UUID) (*TrialStatus, error) {
	sub, err := s.store.LatestByUser(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return &TrialStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	if !sub.IsTrial {
		return &TrialStatus{}, nil
	}

	now := s.clock.Now()
	expired := sub.IsExpiredAt(now)
	days := sub.DaysRemainingAt(now)
	if days < 0 {
		days = 0
	}
	return &TrialStatus{
		OnTrial:       !expired && (sub.Status == StatusActive || sub.Status == StatusPending),
		Expired:       expired,
		DaysRemaining: days,
		EndsAt:        sub.EndDate,
	}, nil
}

func (s *service) VerifyPayment(ctx context.Context, reference string) (*Subscription, error) {
	sub, err := s.store.ByGatewayReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	// Gateway unavailability propagates untouched: the subscription
	// stays PENDING so the caller can retry.
	result, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}

	return s.applyPaymentResult(ctx, sub, result.Succeeded, result.Amount, result.CustomerCode)
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error) {
	// Authentication is the cancellation point: nothing is parsed, let
	// alone mutated, until the signature checks out.
	if !s.gateway.VerifyWebhookSignature(payload, signature) {
		return "", ErrInvalidSignature
	}

	event, err := ParseWebhookEvent(payload)
	if err != nil {
		return "", err
	}

	switch e := event.(type) {
	case ChargeSuccessEvent:
		return s.reconcileReference(ctx, e.Reference, true, e.Amount, e.CustomerCode)
	case TransferSuccessEvent:
		return s.reconcileReference(ctx, e.Reference, true, Money{}, "")
	case TransferFailedEvent:
		return s.reconcileReference(ctx, e.Reference, false, Money{}, "")
	case OtherEvent:
		s.log.DebugContext(ctx, "ignoring webhook event", "event_type", e.Type)
		return OutcomeIgnored, nil
	default:
		return OutcomeIgnored, nil
	}
}

// reconcileReference applies a gateway-reported outcome to the
// subscription holding the reference. Events referencing transactions
// outside this domain are logged and discarded.
func (s *service) reconcileReference(ctx context.Context, reference string, succeeded bool, amount Money, customerCode string) (WebhookOutcome, error) {
	sub, err := s.store.ByGatewayReference(ctx, reference)
	if errors.Is(err, ErrSubscriptionNotFound) {
		s.log.InfoContext(ctx, "webhook references no local subscription, discarding",
			"reference", reference)
		return OutcomeNoMatch, nil
	}
	if err != nil {
		return "", err
	}

	if _, err := s.applyPaymentResult(ctx, sub, succeeded, amount, customerCode); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

// applyPaymentResult is the single reconciliation path shared by the
// webhook and synchronous verify flows. Re-applying a transition that
// has already happened is a no-op other than a log line; the store's
// conditional write makes the racing writer harmless.
func (s *service) applyPaymentResult(ctx context.Context, sub *Subscription, succeeded bool, amount Money, customerCode string) (*Subscription, error) {
	if succeeded {
		if sub.Status == StatusActive {
			s.log.InfoContext(ctx, "payment already reconciled",
				"subscription_id", sub.ID, "reference", sub.GatewayReference)
			return sub, nil
		}
		if sub.Status != StatusPending {
			// A success report for a FAILED/CANCELLED/EXPIRED row does
			// not resurrect it; flag for manual reconciliation.
			s.log.WarnContext(ctx, "payment success for non-pending subscription",
				"subscription_id", sub.ID, "status", sub.Status, "reference", sub.GatewayReference)
			return sub, nil
		}

		end := sub.Period.EndDate(sub.StartDate)
		paid := amount
		if paid.Amount == 0 {
			paid = sub.Price
		}
		applied, err := s.store.TransitionFromPending(ctx, sub.ID, PendingTransition{
			Status:              StatusActive,
			PaymentStatus:       PaymentSuccessful,
			EndDate:             &end,
			AmountPaid:          paid,
			GatewayCustomerCode: customerCode,
		})
		if err != nil {
			return nil, fmt.Errorf("activate subscription %s (reference %s): %w",
				sub.ID, sub.GatewayReference, err)
		}
		if !applied {
			s.log.InfoContext(ctx, "subscription already transitioned by concurrent writer",
				"subscription_id", sub.ID, "reference", sub.GatewayReference)
			return s.store.Get(ctx, sub.ID)
		}

		sub.Status = StatusActive
		sub.PaymentStatus = PaymentSuccessful
		sub.EndDate = &end
		sub.AmountPaid = paid
		sub.GatewayCustomerCode = customerCode

		s.publisher.Publish(ctx, SubscriptionActivatedEvent{
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			PlanID:         sub.PlanID,
			AmountPaid:     paid,
			EndsAt:         end,
		})
		s.log.InfoContext(ctx, "subscription activated",
			"subscription_id", sub.ID, "user_id", sub.UserID, "reference", sub.GatewayReference, "ends_at", end)
		return sub, nil
	}

	if sub.Status != StatusPending {
		s.log.InfoContext(ctx, "payment failure already reconciled",
			"subscription_id", sub.ID, "status", sub.Status)
		return sub, nil
	}

	applied, err := s.store.TransitionFromPending(ctx, sub.ID, PendingTransition{
		Status:        StatusFailed,
		PaymentStatus: PaymentFailed,
	})
	if err != nil {
		return nil, fmt.Errorf("fail subscription %s (reference %s): %w",
			sub.ID, sub.GatewayReference, err)
	}
	if !applied {
		return s.store.Get(ctx, sub.ID)
	}

	sub.Status = StatusFailed
	sub.PaymentStatus = PaymentFailed

	s.publisher.Publish(ctx, PaymentFailedEvent{
		SubscriptionID:   sub.ID,
		UserID:           sub.UserID,
		GatewayReference: sub.GatewayReference,
	})
	s.log.InfoContext(ctx, "payment failed",
		"subscription_id", sub.ID, "user_id", sub.UserID, "reference", sub.GatewayReference)
	return sub, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	sub, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == StatusCancelled {
		// Already cancelled: idempotent no-op success.
		return sub, nil
	}

	now := s.clock.Now()
	sub.Status = StatusCancelled
	sub.AutoRenew = false
	sub.CancelledAt = &now
	sub.UpdatedAt = now
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("cancel subscription %s: %w", id, err)
	}

	s.publisher.Publish(ctx, SubscriptionCancelledEvent{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		CancelledAt:    now,
	})
	s.log.InfoContext(ctx, "subscription cancelled", "subscription_id", sub.ID, "user_id", sub.UserID)
	return sub, nil
}

func (s *service) UpgradeExpiredTrial(ctx context.Context, userID uuid.UUID) (*PlanSelection, error) {
	sub, err := s.store.LatestByUser(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil, ErrNoExpiredTrial
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !sub.IsTrial || !sub.IsExpiredAt(now) {
		return nil, ErrNoExpiredTrial
	}
	if sub.Status == StatusActive {
		s.expireElapsed(ctx, sub, now)
	}

	plan, ok := s.plans[sub.PlanID]
	if !ok {
		return nil, ErrPlanNotFound
	}

	// The expired trial row stays as-is; the upgrade starts a fresh
	// PENDING chain on the same plan reference.
	return s.startPaid(ctx, userID, plan, now)
}

// expireElapsed persists the read-time ACTIVE -> EXPIRED detection.
// Best effort: access decisions already treat the row as expired, so a
// store failure here is logged rather than propagated.
func (s *service) expireElapsed(ctx context.Context, sub *Subscription, now time.Time) {
	if sub.Status != StatusActive || !sub.IsExpiredAt(now) {
		return
	}
	sub.Status = StatusExpired
	sub.UpdatedAt = now
	if err := s.store.Update(ctx, sub); err != nil {
		s.log.WarnContext(ctx, "could not persist expiry",
			"subscription_id", sub.ID, "error", err)
	}
}
