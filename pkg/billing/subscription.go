package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is a tenant's record of entitlement to use the product
// under a specific plan and time window. A user accumulates a history of
// subscriptions; rows are mutated in place through the lifecycle and
// never hard-deleted. Plan terms (price, period, trial flag) are
// snapshotted at creation so later catalog edits do not retroactively
// change billing terms.
type Subscription struct {
	ID     uuid.UUID
	UserID uuid.UUID

	// Plan snapshot captured at creation.
	PlanID  string
	Price   Money
	Period  BillingPeriod
	IsTrial bool

	Status        Status
	PaymentStatus PaymentStatus

	StartDate time.Time
	EndDate   *time.Time // nil until computed

	AmountPaid Money

	// GatewayReference is the provider's transaction identifier. Once
	// assigned it is never reattached to a different subscription; it is
	// the idempotency anchor linking webhook events back to this row.
	GatewayReference    string
	GatewayCustomerCode string

	AutoRenew bool

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CancelledAt *time.Time
}

// IsPending reports whether the subscription is awaiting activation.
func (s *Subscription) IsPending() bool {
	return s.Status == StatusPending
}

// IsActiveAt reports whether the subscription grants access at the given
// time. An ACTIVE row whose end date has elapsed no longer counts.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	return s.Status == StatusActive && !s.IsExpiredAt(now)
}

// IsExpiredAt reports whether an ACTIVE subscription's window has
// elapsed. Expiry is detected on read rather than by a scheduled sweep,
// so callers must always check against the current time.
func (s *Subscription) IsExpiredAt(now time.Time) bool {
	if s.Status == StatusExpired {
		return true
	}
	if s.Status != StatusActive || s.EndDate == nil {
		return false
	}
	return !now.Before(*s.EndDate)
}

// DaysRemainingAt returns the signed number of whole days until the
// subscription's end date. Negative means already expired; zero when no
// end date has been computed yet.
func (s *Subscription) DaysRemainingAt(now time.Time) int {
	if s.EndDate == nil {
		return 0
	}
	return DaysUntil(*s.EndDate, now)
}
