package leave_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/leave"
)

// datesIn generates n consecutive full-day usage dates starting at from.
func datesIn(t *testing.T, from string, n int) []leave.UsageDate {
	t.Helper()
	start := day(t, from)
	out := make([]leave.UsageDate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, leave.UsageDate{Date: start.AddDays(i), Origin: leave.OriginLocal})
	}
	return out
}

// =============================================================================
// LIFO ORDER
// =============================================================================

func TestAllocate_DebitsNewestPeriodFirst(t *testing.T) {
	// GIVEN: 10 days in the older period, 11 in the newer
	// WHEN: Allocating 15 days
	// THEN: The newer period is drained (11) before the older is touched (4)

	older := newPeriod(t, 0, "2023-10-01", 10)
	newer := newPeriod(t, 1, "2024-10-01", 11)
	l := newLedgerWith(older, newer)
	emp := activeEmployee("2023-04-01", t)

	res, err := leave.Allocate(&l, emp, datesIn(t, "2024-11-01", 15))
	require.NoError(t, err)

	requireDecimalEqual(t, leave.Days(15), res.Total)
	require.Len(t, res.Debits, 2)
	assert.Equal(t, 1, res.Debits[0].PeriodIndex)
	requireDecimalEqual(t, leave.Days(11), res.Debits[0].Amount)
	assert.Equal(t, 0, res.Debits[1].PeriodIndex)
	requireDecimalEqual(t, leave.Days(4), res.Debits[1].Amount)

	requireDecimalEqual(t, leave.Days(0), l.Periods[1].Balance())
	requireDecimalEqual(t, leave.Days(6), l.Periods[0].Balance())
}

func TestAllocate_SkipsExpiredPeriods(t *testing.T) {
	expired := newPeriod(t, 0, "2021-10-01", 10)
	expired.IsExpired = true
	expired.Expired = leave.Days(10)
	live := newPeriod(t, 1, "2024-10-01", 12)
	l := newLedgerWith(expired, live)
	emp := activeEmployee("2021-04-01", t)

	res, err := leave.Allocate(&l, emp, datesIn(t, "2024-12-01", 3))
	require.NoError(t, err)

	require.Len(t, res.Debits, 1)
	assert.Equal(t, 1, res.Debits[0].PeriodIndex)
	requireDecimalEqual(t, leave.Days(0), l.Periods[0].Used)
}

func TestAllocate_DatesFollowDebitOrder(t *testing.T) {
	// Dates land in the periods that were debited for them, newest
	// first; every calendar day ends up in exactly one period.
	older := newPeriod(t, 0, "2023-10-01", 10)
	newer := newPeriod(t, 1, "2024-10-01", 2)
	l := newLedgerWith(older, newer)
	emp := activeEmployee("2023-04-01", t)

	_, err := leave.Allocate(&l, emp, datesIn(t, "2024-11-01", 5))
	require.NoError(t, err)

	assert.Len(t, l.Periods[1].UsageDates, 2)
	assert.Len(t, l.Periods[0].UsageDates, 3)
	for i := 0; i < 5; i++ {
		d := day(t, "2024-11-01").AddDays(i)
		assert.GreaterOrEqual(t, l.PeriodHolding(d), 0, "date %s unassigned", d)
	}
}

// =============================================================================
// ALL-OR-NOTHING
// =============================================================================

func TestAllocate_InsufficientBalance_NothingChanges(t *testing.T) {
	p := newPeriod(t, 0, "2024-10-01", 10)
	l := newLedgerWith(p)
	emp := activeEmployee("2024-04-01", t)

	_, err := leave.Allocate(&l, emp, datesIn(t, "2024-11-01", 11))

	require.Error(t, err)
	require.ErrorIs(t, err, leave.ErrInsufficientBalance)
	var insErr *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &insErr)
	requireDecimalEqual(t, leave.Days(10), insErr.Available)
	requireDecimalEqual(t, leave.Days(11), insErr.Requested)

	// Nothing was committed.
	requireDecimalEqual(t, leave.Days(0), l.Periods[0].Used)
	assert.Empty(t, l.Periods[0].UsageDates)
}

func TestAllocate_ExactBalanceSucceeds(t *testing.T) {
	p := newPeriod(t, 0, "2024-10-01", 10)
	l := newLedgerWith(p)
	emp := activeEmployee("2024-04-01", t)

	_, err := leave.Allocate(&l, emp, datesIn(t, "2024-11-01", 10))
	require.NoError(t, err)
	requireDecimalEqual(t, leave.Days(0), l.Periods[0].Balance())
}

// =============================================================================
// HALF DAYS
// =============================================================================

func TestAllocate_HalfDays(t *testing.T) {
	p := newPeriod(t, 0, "2024-10-01", 10)
	l := newLedgerWith(p)
	emp := activeEmployee("2024-04-01", t)

	dates := []leave.UsageDate{
		{Date: day(t, "2024-11-01"), Origin: leave.OriginLocal},
		{Date: day(t, "2024-11-02"), Half: true, Origin: leave.OriginLocal},
		{Date: day(t, "2024-11-03"), Origin: leave.OriginLocal},
		{Date: day(t, "2024-11-04"), Half: true, Origin: leave.OriginLocal},
		{Date: day(t, "2024-11-05"), Origin: leave.OriginLocal},
	}

	res, err := leave.Allocate(&l, emp, dates)
	require.NoError(t, err)
	requireDecimalEqual(t, leave.Days(3.5), res.Total)
	requireDecimalEqual(t, leave.Days(3.5), l.Periods[0].Used)
	requireDecimalEqual(t, leave.Days(6.5), l.Periods[0].Balance())
}

func TestParseUsageAmount(t *testing.T) {
	tests := []struct {
		amount  float64
		half    bool
		wantErr bool
	}{
		{1.0, false, false},
		{0.5, true, false},
		{0.25, false, true},
		{2.0, false, true},
		{0, false, true},
		{-1, false, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.amount), func(t *testing.T) {
			half, err := leave.ParseUsageAmount(tt.amount)
			if tt.wantErr {
				require.ErrorIs(t, err, leave.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.half, half)
		})
	}
}

// =============================================================================
// REJECTIONS
// =============================================================================

func TestAllocate_DuplicateDateInLedger(t *testing.T) {
	p := newPeriod(t, 0, "2024-10-01", 10)
	p.Used = leave.Days(1)
	p.UsageDates = []leave.UsageDate{fullDay(t, "2024-11-01")}
	l := newLedgerWith(p)
	emp := activeEmployee("2024-04-01", t)

	_, err := leave.Allocate(&l, emp, []leave.UsageDate{fullDay(t, "2024-11-01")})

	require.ErrorIs(t, err, leave.ErrDuplicateDate)
	var dupErr *leave.DuplicateDateError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, 0, dupErr.PeriodIndex)
}

func TestAllocate_DuplicateDateWithinRequest(t *testing.T) {
	p := newPeriod(t, 0, "2024-10-01", 10)
	l := newLedgerWith(p)
	emp := activeEmployee("2024-04-01", t)

	_, err := leave.Allocate(&l, emp, []leave.UsageDate{
		fullDay(t, "2024-11-01"),
		fullDay(t, "2024-11-01"),
	})

	require.ErrorIs(t, err, leave.ErrDuplicateDate)
	var dupErr *leave.DuplicateDateError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, -1, dupErr.PeriodIndex)
}

func TestAllocate_SeparatedEmployeeRejected(t *testing.T) {
	p := newPeriod(t, 0, "2024-10-01", 10)
	l := newLedgerWith(p)
	emp := activeEmployee("2024-04-01", t)
	emp.Status = leave.StatusSeparated

	_, err := leave.Allocate(&l, emp, datesIn(t, "2024-11-01", 1))
	require.ErrorIs(t, err, leave.ErrEmployeeRetired)
}

func TestAllocate_OnLeaveEmployeeAllowed(t *testing.T) {
	p := newPeriod(t, 0, "2024-10-01", 10)
	l := newLedgerWith(p)
	emp := activeEmployee("2024-04-01", t)
	emp.Status = leave.StatusOnLeave

	_, err := leave.Allocate(&l, emp, datesIn(t, "2024-11-01", 1))
	require.NoError(t, err)
}

func TestAllocate_EmptyRequestRejected(t *testing.T) {
	p := newPeriod(t, 0, "2024-10-01", 10)
	l := newLedgerWith(p)
	emp := activeEmployee("2024-04-01", t)

	_, err := leave.Allocate(&l, emp, nil)
	require.ErrorIs(t, err, leave.ErrInvalidAmount)
}
