package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizenhr/billing/pkg/billing"
)

func newStoredSubscription(userID uuid.UUID, status billing.Status, createdAt time.Time) *billing.Subscription {
	return &billing.Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    "team-monthly",
		Price:     billing.Money{Amount: 50000, Currency: "NGN"},
		Period:    billing.Monthly(),
		Status:    status,
		StartDate: createdAt,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	userID := uuid.New()
	sub := newStoredSubscription(userID, billing.StatusActive, time.Now())
	require.NoError(t, store.Create(context.Background(), sub))

	got, err := store.Get(context.Background(), sub.ID)
	require.NoError(t, err)

	// Mutating the returned value must not leak into the store.
	got.Status = billing.StatusCancelled
	again, err := store.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, again.Status)
}

func TestMemoryStore_LatestByUser(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	userID := uuid.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := newStoredSubscription(userID, billing.StatusExpired, base)
	newer := newStoredSubscription(userID, billing.StatusPending, base.Add(24*time.Hour))
	other := newStoredSubscription(uuid.New(), billing.StatusActive, base.Add(48*time.Hour))
	for _, sub := range []*billing.Subscription{older, newer, other} {
		require.NoError(t, store.Create(context.Background(), sub))
	}

	got, err := store.LatestByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	_, err = store.LatestByUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
}

func TestMemoryStore_ByGatewayReference(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	sub := newStoredSubscription(uuid.New(), billing.StatusPending, time.Now())
	sub.GatewayReference = "ref-123"
	require.NoError(t, store.Create(context.Background(), sub))

	got, err := store.ByGatewayReference(context.Background(), "ref-123")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	_, err = store.ByGatewayReference(context.Background(), "ref-missing")
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)

	// Rows without a reference must not match an empty lookup.
	_, err = store.ByGatewayReference(context.Background(), "")
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	sub := newStoredSubscription(uuid.New(), billing.StatusActive, time.Now())

	err := store.Update(context.Background(), sub)
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
}

func TestMemoryStore_TransitionFromPending(t *testing.T) {
	t.Parallel()

	endDate := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	transition := billing.PendingTransition{
		Status:              billing.StatusActive,
		PaymentStatus:       billing.PaymentSuccessful,
		EndDate:             &endDate,
		AmountPaid:          billing.Money{Amount: 50000, Currency: "NGN"},
		GatewayCustomerCode: "CUS_1",
	}

	t.Run("applies to pending row", func(t *testing.T) {
		t.Parallel()

		store := billing.NewMemoryStore()
		sub := newStoredSubscription(uuid.New(), billing.StatusPending, time.Now())
		require.NoError(t, store.Create(context.Background(), sub))

		applied, err := store.TransitionFromPending(context.Background(), sub.ID, transition)
		require.NoError(t, err)
		assert.True(t, applied)

		got, err := store.Get(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, got.Status)
		assert.Equal(t, billing.PaymentSuccessful, got.PaymentStatus)
		assert.Equal(t, "CUS_1", got.GatewayCustomerCode)
		require.NotNil(t, got.EndDate)
		assert.True(t, got.EndDate.Equal(endDate))
	})

	t.Run("no-op on non-pending row", func(t *testing.T) {
		t.Parallel()

		store := billing.NewMemoryStore()
		sub := newStoredSubscription(uuid.New(), billing.StatusActive, time.Now())
		require.NoError(t, store.Create(context.Background(), sub))

		applied, err := store.TransitionFromPending(context.Background(), sub.ID, transition)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("missing row", func(t *testing.T) {
		t.Parallel()

		store := billing.NewMemoryStore()
		_, err := store.TransitionFromPending(context.Background(), uuid.New(), transition)
		assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
	})

	t.Run("exactly one racing writer wins", func(t *testing.T) {
		t.Parallel()

		store := billing.NewMemoryStore()
		sub := newStoredSubscription(uuid.New(), billing.StatusPending, time.Now())
		require.NoError(t, store.Create(context.Background(), sub))

		const writers = 16
		var wg sync.WaitGroup
		results := make(chan bool, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				applied, err := store.TransitionFromPending(context.Background(), sub.ID, transition)
				assert.NoError(t, err)
				results <- applied
			}()
		}
		wg.Wait()
		close(results)

		wins := 0
		for applied := range results {
			if applied {
				wins++
			}
		}
		assert.Equal(t, 1, wins)
	})
}
