package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kaizenhr/billing/pkg/billing"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBillingPeriod_EndDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		period billing.BillingPeriod
		start  time.Time
		want   time.Time
	}{
		{
			name:   "two day trial",
			period: billing.FixedDays(2),
			start:  date(2024, time.January, 1),
			want:   date(2024, time.January, 3),
		},
		{
			name:   "monthly mid-month",
			period: billing.Monthly(),
			start:  date(2024, time.March, 15),
			want:   date(2024, time.April, 15),
		},
		{
			name:   "monthly clamps jan 31 to leap february",
			period: billing.Monthly(),
			start:  date(2024, time.January, 31),
			want:   date(2024, time.February, 29),
		},
		{
			name:   "monthly clamps jan 31 to non-leap february",
			period: billing.Monthly(),
			start:  date(2023, time.January, 31),
			want:   date(2023, time.February, 28),
		},
		{
			name:   "monthly clamps may 31 to june 30",
			period: billing.Monthly(),
			start:  date(2024, time.May, 31),
			want:   date(2024, time.June, 30),
		},
		{
			name:   "monthly across year boundary",
			period: billing.Monthly(),
			start:  date(2023, time.December, 31),
			want:   date(2024, time.January, 31),
		},
		{
			name:   "yearly",
			period: billing.Yearly(),
			start:  date(2024, time.June, 1),
			want:   date(2025, time.June, 1),
		},
		{
			name:   "yearly clamps feb 29 to feb 28",
			period: billing.Yearly(),
			start:  date(2024, time.February, 29),
			want:   date(2025, time.February, 28),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.period.EndDate(tt.start)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.False(t, got.Before(tt.start), "end date must not precede start")
		})
	}
}

func TestBillingPeriod_EndDate_PreservesClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.January, 31, 9, 30, 15, 0, time.UTC)
	got := billing.Monthly().EndDate(start)

	assert.Equal(t, time.Date(2024, time.February, 29, 9, 30, 15, 0, time.UTC), got)
}

func TestDaysUntil(t *testing.T) {
	t.Parallel()

	now := date(2024, time.January, 2)

	assert.Equal(t, 1, billing.DaysUntil(date(2024, time.January, 3), now))
	assert.Equal(t, 0, billing.DaysUntil(now, now))
	assert.Equal(t, -2, billing.DaysUntil(date(2023, time.December, 31), now))
	assert.Equal(t, 30, billing.DaysUntil(date(2024, time.February, 1), now))
}

func TestBillingPeriod_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, billing.FixedDays(2).Valid())
	assert.True(t, billing.Monthly().Valid())
	assert.True(t, billing.Yearly().Valid())
	assert.False(t, billing.FixedDays(0).Valid())
	assert.False(t, billing.BillingPeriod{Unit: "fortnight"}.Valid())
}
