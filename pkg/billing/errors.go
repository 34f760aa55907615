package billing

import "errors"

var (
	ErrPlanNotFound             = errors.New("pricing plan not found")
	ErrInvalidPlanConfiguration = errors.New("invalid pricing plan configuration")
	ErrFailedToLoadPlans        = errors.New("failed to load pricing plans")

	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNoExpiredTrial       = errors.New("no expired trial subscription to upgrade")

	// ErrInvalidSignature rejects a webhook before any of its payload is
	// interpreted. Processing aborts with no side effects.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrGatewayUnavailable indicates a network or timeout failure talking
	// to the payment provider. The subscription is left unchanged so the
	// caller can retry; it is never treated as a payment failure.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrPaymentRejected indicates the gateway explicitly reported a
	// failed charge. The transition to FAILED is terminal and not retried
	// automatically.
	ErrPaymentRejected = errors.New("payment rejected by gateway")

	ErrGatewayDeclined = errors.New("payment gateway declined the request")

	// Provider configuration errors, reported at construction time.
	ErrMissingSecretKey = errors.New("gateway secret key is required")
)
