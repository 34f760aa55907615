package billing

import (
	"fmt"
	"time"
)

// PeriodUnit identifies how a billing period advances time.
type PeriodUnit string

const (
	PeriodUnitDays  PeriodUnit = "days"
	PeriodUnitMonth PeriodUnit = "month"
	PeriodUnitYear  PeriodUnit = "year"
)

// BillingPeriod describes how long one billing cycle lasts. Trials,
// monthly plans, and yearly plans all resolve end dates through the
// same calendar arithmetic so there is a single rounding rule.
type BillingPeriod struct {
	Unit PeriodUnit `json:"unit" yaml:"unit"`
	Days int        `json:"days,omitempty" yaml:"days,omitempty"` // used when Unit is days
}

// FixedDays returns a period of exactly n days.
func FixedDays(n int) BillingPeriod {
	return BillingPeriod{Unit: PeriodUnitDays, Days: n}
}

// Monthly returns a one-calendar-month period.
func Monthly() BillingPeriod {
	return BillingPeriod{Unit: PeriodUnitMonth}
}

// Yearly returns a one-calendar-year period.
func Yearly() BillingPeriod {
	return BillingPeriod{Unit: PeriodUnitYear}
}

// Valid reports whether the period is well-formed.
func (p BillingPeriod) Valid() bool {
	switch p.Unit {
	case PeriodUnitDays:
		return p.Days > 0
	case PeriodUnitMonth, PeriodUnitYear:
		return true
	default:
		return false
	}
}

func (p BillingPeriod) String() string {
	switch p.Unit {
	case PeriodUnitDays:
		return fmt.Sprintf("%d days", p.Days)
	case PeriodUnitMonth:
		return "monthly"
	case PeriodUnitYear:
		return "yearly"
	default:
		return "invalid"
	}
}

// EndDate returns the end of one billing cycle starting at start.
// Calendar months and years are advanced with day-of-month clamping,
// so Jan 31 + monthly lands on the last day of February rather than
// overflowing into March. The result is always >= start.
func (p BillingPeriod) EndDate(start time.Time) time.Time {
	switch p.Unit {
	case PeriodUnitDays:
		return start.AddDate(0, 0, p.Days)
	case PeriodUnitMonth:
		return addMonthsClamped(start, 1)
	case PeriodUnitYear:
		return addMonthsClamped(start, 12)
	default:
		return start
	}
}

// DaysUntil returns the number of whole days from now until end,
// negative when end has already passed. Callers decide expiry policy;
// this function never guesses.
func DaysUntil(end, now time.Time) int {
	return int(end.Sub(now).Hours() / 24)
}

// addMonthsClamped advances t by the given number of calendar months,
// clamping the day of month to the target month's length. time.AddDate
// normalizes overflow (Jan 31 + 1 month = Mar 2/3), which is the wrong
// behavior for billing anniversaries.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
