// Package billingstore provides the PostgreSQL implementation of the
// billing persistence contracts plus a redis read-through cache for the
// pricing catalog.
package billingstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kaizenhr/billing/pkg/billing"
)

// Postgres implements billing.Store on a pgx connection pool.
//
// Two schema-level constraints back the orchestrator's invariants: a
// unique index on gateway_reference keeps the webhook idempotency
// anchor one-to-one, and a partial unique index on (user_id) WHERE
// status='ACTIVE' prevents concurrent double-submission from creating
// two ACTIVE rows for one user.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a subscription store on the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const subscriptionColumns = `
	id, user_id, plan_id,
	price_amount, price_currency,
	period_unit, period_days, is_trial,
	status, payment_status,
	start_date, end_date,
	amount_paid, amount_paid_currency,
	COALESCE(gateway_reference, ''), gateway_customer_code,
	auto_renew, created_at, updated_at, cancelled_at`

func (s *Postgres) Create(ctx context.Context, sub *billing.Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (
			id, user_id, plan_id,
			price_amount, price_currency,
			period_unit, period_days, is_trial,
			status, payment_status,
			start_date, end_date,
			amount_paid, amount_paid_currency,
			gateway_reference, gateway_customer_code,
			auto_renew, created_at, updated_at, cancelled_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NULLIF($15,''),$16,$17,$18,$19,$20)`,
		sub.ID, sub.UserID, sub.PlanID,
		sub.Price.Amount, sub.Price.Currency,
		string(sub.Period.Unit), sub.Period.Days, sub.IsTrial,
		string(sub.Status), string(sub.PaymentStatus),
		sub.StartDate, sub.EndDate,
		sub.AmountPaid.Amount, sub.AmountPaid.Currency,
		sub.GatewayReference, sub.GatewayCustomerCode,
		sub.AutoRenew, sub.CreatedAt, sub.UpdatedAt, sub.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("insert subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	return scanSubscription(row)
}

func (s *Postgres) LatestByUser(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID)
	return scanSubscription(row)
}

func (s *Postgres) ActiveByUser(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = $1 AND status = 'ACTIVE' LIMIT 1`, userID)
	return scanSubscription(row)
}

func (s *Postgres) ByGatewayReference(ctx context.Context, reference string) (*billing.Subscription, error) {
	if reference == "" {
		return nil, billing.ErrSubscriptionNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE gateway_reference = $1`, reference)
	return scanSubscription(row)
}

func (s *Postgres) Update(ctx context.Context, sub *billing.Subscription) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions SET
			status = $2, payment_status = $3,
			start_date = $4, end_date = $5,
			amount_paid = $6, amount_paid_currency = $7,
			gateway_reference = NULLIF($8, ''), gateway_customer_code = $9,
			auto_renew = $10, updated_at = $11, cancelled_at = $12
		WHERE id = $1`,
		sub.ID, string(sub.Status), string(sub.PaymentStatus),
		sub.StartDate, sub.EndDate,
		sub.AmountPaid.Amount, sub.AmountPaid.Currency,
		sub.GatewayReference, sub.GatewayCustomerCode,
		sub.AutoRenew, sub.UpdatedAt, sub.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update subscription %s: %w", sub.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrSubscriptionNotFound
	}
	return nil
}

// TransitionFromPending is a single conditional write: the row moves
// only if its status is still PENDING, so the losing writer of a
// webhook/verify race observes applied=false instead of overwriting.
func (s *Postgres) TransitionFromPending(ctx context.Context, id uuid.UUID, tr billing.PendingTransition) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions SET
			status = $2, payment_status = $3, end_date = $4,
			amount_paid = $5, amount_paid_currency = $6,
			gateway_customer_code = CASE WHEN $7 <> '' THEN $7 ELSE gateway_customer_code END,
			updated_at = now()
		WHERE id = $1 AND status = 'PENDING'`,
		id, string(tr.Status), string(tr.PaymentStatus), tr.EndDate,
		tr.AmountPaid.Amount, tr.AmountPaid.Currency, tr.GatewayCustomerCode,
	)
	if err != nil {
		return false, fmt.Errorf("transition subscription %s from pending: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish "row left PENDING already" from "row does not exist".
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check subscription %s: %w", id, err)
	}
	if !exists {
		return false, billing.ErrSubscriptionNotFound
	}
	return false, nil
}

func scanSubscription(row pgx.Row) (*billing.Subscription, error) {
	var (
		sub        billing.Subscription
		status     string
		payStatus  string
		periodUnit string
		endDate    *time.Time
		cancelled  *time.Time
	)
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.PlanID,
		&sub.Price.Amount, &sub.Price.Currency,
		&periodUnit, &sub.Period.Days, &sub.IsTrial,
		&status, &payStatus,
		&sub.StartDate, &endDate,
		&sub.AmountPaid.Amount, &sub.AmountPaid.Currency,
		&sub.GatewayReference, &sub.GatewayCustomerCode,
		&sub.AutoRenew, &sub.CreatedAt, &sub.UpdatedAt, &cancelled,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, billing.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.Status = billing.Status(status)
	sub.PaymentStatus = billing.PaymentStatus(payStatus)
	sub.Period.Unit = billing.PeriodUnit(periodUnit)
	sub.EndDate = endDate
	sub.CancelledAt = cancelled
	return &sub, nil
}
