package billing_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizenhr/billing/pkg/billing"
)

func writePlansFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestYAMLSource_Load(t *testing.T) {
	t.Parallel()

	path := writePlansFile(t, `
- id: starter-trial
  name: Starter Trial
  trial: true
  period:
    unit: days
    days: 2
- id: team-monthly
  name: Team Monthly
  price:
    amount: 50000
    currency: NGN
  period:
    unit: month
`)

	plans, err := billing.NewYAMLSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)

	trial := plans["starter-trial"]
	assert.True(t, trial.Trial)
	assert.Equal(t, billing.FixedDays(2), trial.Period)

	paid := plans["team-monthly"]
	assert.Equal(t, int64(50000), paid.Price.Amount)
	assert.Equal(t, "NGN", paid.Price.Currency)
	assert.Equal(t, billing.PeriodUnitMonth, paid.Period.Unit)
}

func TestYAMLSource_DuplicateID(t *testing.T) {
	t.Parallel()

	path := writePlansFile(t, `
- id: team-monthly
  name: First
  period: {unit: month}
- id: team-monthly
  name: Second
  period: {unit: month}
`)

	_, err := billing.NewYAMLSource(path).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrInvalidPlanConfiguration)
}

func TestYAMLSource_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := billing.NewYAMLSource("/does/not/exist.yaml").Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrFailedToLoadPlans)
}

func TestYAMLSource_MalformedYAML(t *testing.T) {
	t.Parallel()

	path := writePlansFile(t, "{not valid yaml: [")
	_, err := billing.NewYAMLSource(path).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrFailedToLoadPlans)
}

func TestNewService_RejectsInvalidCatalog(t *testing.T) {
	t.Parallel()

	gateway := &mockGateway{}
	store := billing.NewMemoryStore()

	tests := []struct {
		name string
		plan billing.Plan
	}{
		{
			name: "invalid period",
			plan: billing.Plan{ID: "broken", Name: "Broken"},
		},
		{
			name: "negative price",
			plan: billing.Plan{
				ID:     "negative",
				Name:   "Negative",
				Price:  billing.Money{Amount: -1, Currency: "NGN"},
				Period: billing.Monthly(),
			},
		},
		{
			name: "price without currency",
			plan: billing.Plan{
				ID:     "nocurrency",
				Name:   "No Currency",
				Price:  billing.Money{Amount: 1000},
				Period: billing.Monthly(),
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := billing.NewService(context.Background(),
				billing.NewStaticSource(tt.plan), gateway, store)
			require.Error(t, err)
			assert.ErrorIs(t, err, billing.ErrInvalidPlanConfiguration)
		})
	}
}
