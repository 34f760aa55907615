package billing

import "time"

// Status represents the lifecycle state of a subscription.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// PaymentStatus represents the payment state of a subscription.
// Trial subscriptions are always PaymentNotRequired.
type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "PENDING"
	PaymentSuccessful  PaymentStatus = "SUCCESSFUL"
	PaymentFailed      PaymentStatus = "FAILED"
	PaymentNotRequired PaymentStatus = "NOT_REQUIRED"
)

// Money represents a monetary amount in whole currency units.
// Conversion to the payment provider's minor unit (e.g. kobo, cents)
// happens only inside the gateway client, nowhere else.
type Money struct {
	Amount   int64  `json:"amount" yaml:"amount"`
	Currency string `json:"currency" yaml:"currency"` // ISO 4217 currency code
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// AccessState is the discriminated post-login access decision.
// AccessUnknown is the defensive default for unrecognized state
// combinations and never grants access.
type AccessState string

const (
	AccessNoSubscription      AccessState = "NO_SUBSCRIPTION"
	AccessActive              AccessState = "ACTIVE"
	AccessTrialActivated      AccessState = "TRIAL_ACTIVATED"
	AccessPendingPayment      AccessState = "PENDING_PAYMENT"
	AccessTrialExpired        AccessState = "TRIAL_EXPIRED"
	AccessSubscriptionExpired AccessState = "SUBSCRIPTION_EXPIRED"
	AccessCancelled           AccessState = "CANCELLED"
	AccessPaymentFailed       AccessState = "PAYMENT_FAILED"
	AccessUnknown             AccessState = "UNKNOWN"
)

// Allowed reports whether the state grants access to the product.
func (s AccessState) Allowed() bool {
	return s == AccessActive || s == AccessTrialActivated
}

// NextStep tells the caller which action resolves a non-active state.
type NextStep string

const (
	NextStepNone         NextStep = ""
	NextStepChoosePlan   NextStep = "CHOOSE_PLAN"
	NextStepRetryPayment NextStep = "RETRY_PAYMENT"
	NextStepUpgrade      NextStep = "UPGRADE"
)

// Access is the result of a post-login status check.
type Access struct {
	State           AccessState
	Subscription    *Subscription // nil for AccessNoSubscription
	DaysUntilExpiry int           // meaningful for AccessActive only
	PaymentURL      string        // set when a payment action is pending
	NextStep        NextStep
}

// TrialStatus summarizes a user's trial subscription, if any.
type TrialStatus struct {
	OnTrial       bool
	Expired       bool
	DaysRemaining int
	EndsAt        *time.Time
}
