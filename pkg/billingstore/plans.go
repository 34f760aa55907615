package billingstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kaizenhr/billing/pkg/billing"
)

// PGPlanSource loads the pricing catalog from the pricing_plans table.
// It satisfies billing.PlanSource so the catalog can be managed through
// migrations or an admin surface instead of a static file.
type PGPlanSource struct {
	pool *pgxpool.Pool
}

// NewPGPlanSource creates a catalog source backed by the given pool.
func NewPGPlanSource(pool *pgxpool.Pool) *PGPlanSource {
	return &PGPlanSource{pool: pool}
}

func (s *PGPlanSource) Load(ctx context.Context) (map[string]billing.Plan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, price_amount, price_currency, period_unit, period_days, region, trial
		FROM pricing_plans ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query pricing plans: %w", err)
	}
	defer rows.Close()

	plans := make(map[string]billing.Plan)
	for rows.Next() {
		var (
			plan billing.Plan
			unit string
		)
		if err := rows.Scan(
			&plan.ID, &plan.Name,
			&plan.Price.Amount, &plan.Price.Currency,
			&unit, &plan.Period.Days,
			&plan.Region, &plan.Trial,
		); err != nil {
			return nil, fmt.Errorf("scan pricing plan: %w", err)
		}
		plan.Period.Unit = billing.PeriodUnit(unit)
		plans[plan.ID] = plan
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read pricing plans: %w", err)
	}
	return plans, nil
}
