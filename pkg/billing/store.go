package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the persistence contract for subscriptions. All lookup
// methods return ErrSubscriptionNotFound when no row matches.
type Store interface {
	// Create inserts a new subscription row.
	Create(ctx context.Context, sub *Subscription) error

	// Get retrieves a subscription by ID.
	Get(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// LatestByUser returns the user's most recently created subscription.
	LatestByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// ActiveByUser returns the user's subscription with status ACTIVE.
	ActiveByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// ByGatewayReference returns the subscription holding the gateway's
	// transaction reference.
	ByGatewayReference(ctx context.Context, reference string) (*Subscription, error)

	// Update persists mutated fields of an existing subscription.
	Update(ctx context.Context, sub *Subscription) error

	// TransitionFromPending applies tr to the subscription only if its
	// status is still PENDING, as a single conditional write. It returns
	// applied=false when the row has already left PENDING, which lets a
	// racing webhook delivery and a synchronous verify call both attempt
	// the same transition safely: the second writer becomes a no-op.
	TransitionFromPending(ctx context.Context, id uuid.UUID, tr PendingTransition) (applied bool, err error)
}

// PendingTransition describes the terminal fields of a PENDING ->
// ACTIVE/FAILED transition.
type PendingTransition struct {
	Status              Status
	PaymentStatus       PaymentStatus
	EndDate             *time.Time
	AmountPaid          Money
	GatewayCustomerCode string
}
