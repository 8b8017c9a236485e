package leave_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(t *testing.T, s string) leave.Date {
	t.Helper()
	d, err := leave.ParseDate(s)
	require.NoError(t, err)
	return d
}

func fullDay(t *testing.T, s string) leave.UsageDate {
	t.Helper()
	return leave.UsageDate{Date: day(t, s), Origin: leave.OriginLocal}
}

func externalDay(t *testing.T, s string) leave.UsageDate {
	t.Helper()
	return leave.UsageDate{Date: day(t, s), Origin: leave.OriginExternal}
}

func activeEmployee(hire string, t *testing.T) leave.Employee {
	t.Helper()
	return leave.Employee{
		ID:       "emp-1",
		Name:     "Sato Yuki",
		HireDate: day(t, hire),
		Status:   leave.StatusActive,
	}
}

// newPeriod builds a period directly, bypassing the builder, for tests
// that exercise the recalculator and allocator in isolation.
func newPeriod(t *testing.T, index int, grantDate string, granted float64) leave.GrantPeriod {
	t.Helper()
	gd := day(t, grantDate)
	return leave.GrantPeriod{
		PeriodIndex: index,
		GrantDate:   gd,
		ExpiryDate:  gd.AddYears(2),
		Granted:     leave.Days(granted),
		Used:        decimal.Zero,
		CarryOver:   decimal.Zero,
		Expired:     decimal.Zero,
		CapExceeded: decimal.Zero,
	}
}

func newLedgerWith(periods ...leave.GrantPeriod) leave.Ledger {
	l := leave.NewLedger("emp-1")
	l.Periods = periods
	return l
}

// requireDecimalEqual compares decimals semantically: 10 and 10.0 carry
// different exponents internally but are the same number of days.
func requireDecimalEqual(t *testing.T, want, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, want.Equal(got), "want %s, got %s (%v)", want, got, msgAndArgs)
}

// requireLedgerEqual asserts two ledgers describe the same state,
// comparing decimal fields by value rather than representation.
func requireLedgerEqual(t *testing.T, want, got leave.Ledger) {
	t.Helper()
	require.Equal(t, want.EmployeeID, got.EmployeeID)
	require.Equal(t, want.ExternalDateCount, got.ExternalDateCount)
	require.True(t, want.RecalculatedAt.Equal(got.RecalculatedAt))
	requireDecimalEqual(t, want.CurrentGrantedTotal, got.CurrentGrantedTotal, "current granted")
	requireDecimalEqual(t, want.CurrentUsedTotal, got.CurrentUsedTotal, "current used")
	requireDecimalEqual(t, want.CurrentBalance, got.CurrentBalance, "current balance")
	requireDecimalEqual(t, want.HistoricalGrantedTotal, got.HistoricalGrantedTotal, "historical granted")
	requireDecimalEqual(t, want.HistoricalUsedTotal, got.HistoricalUsedTotal, "historical used")
	requireDecimalEqual(t, want.HistoricalBalance, got.HistoricalBalance, "historical balance")
	requireDecimalEqual(t, want.ExceededDays, got.ExceededDays, "exceeded days")

	require.Len(t, got.Periods, len(want.Periods))
	for i := range want.Periods {
		wp, gp := want.Periods[i], got.Periods[i]
		require.Equal(t, wp.PeriodIndex, gp.PeriodIndex, "period %d index", i)
		require.True(t, wp.GrantDate.Equal(gp.GrantDate), "period %d grant date", i)
		require.True(t, wp.ExpiryDate.Equal(gp.ExpiryDate), "period %d expiry date", i)
		requireDecimalEqual(t, wp.Granted, gp.Granted, "period", i, "granted")
		requireDecimalEqual(t, wp.Used, gp.Used, "period", i, "used")
		requireDecimalEqual(t, wp.CarryOver, gp.CarryOver, "period", i, "carry over")
		requireDecimalEqual(t, wp.Expired, gp.Expired, "period", i, "expired")
		requireDecimalEqual(t, wp.CapExceeded, gp.CapExceeded, "period", i, "cap exceeded")
		require.Equal(t, wp.IsExpired, gp.IsExpired, "period %d is_expired", i)
		require.Equal(t, wp.IsCurrent, gp.IsCurrent, "period %d is_current", i)
		require.Len(t, gp.UsageDates, len(wp.UsageDates), "period %d usage dates", i)
		for j := range wp.UsageDates {
			require.True(t, wp.UsageDates[j].Date.Equal(gp.UsageDates[j].Date))
			require.Equal(t, wp.UsageDates[j].Half, gp.UsageDates[j].Half)
		}
	}
}
