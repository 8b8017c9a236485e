package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testDate(t *testing.T, s string) leave.Date {
	t.Helper()
	d, err := leave.ParseDate(s)
	require.NoError(t, err)
	return d
}

func testEmployee(t *testing.T) leave.Employee {
	return leave.Employee{
		ID:       "emp-1",
		Name:     "Tanaka Rin",
		HireDate: testDate(t, "2019-04-01"),
		Status:   leave.StatusActive,
	}
}

func buildTestLedger(t *testing.T) leave.Ledger {
	t.Helper()
	l, warnings := leave.BuildLedger(leave.BuildInput{
		Employee:      testEmployee(t),
		ReferenceDate: testDate(t, "2025-06-01"),
	})
	require.Empty(t, warnings)
	return leave.Recalculate(l, testDate(t, "2025-06-01"))
}

func TestStore_EmployeeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emp := testEmployee(t)

	require.NoError(t, store.SaveEmployee(ctx, emp))

	got, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, emp.ID, got.ID)
	assert.Equal(t, emp.Name, got.Name)
	assert.True(t, emp.HireDate.Equal(got.HireDate))
	assert.Equal(t, leave.StatusActive, got.Status)
}

func TestStore_GetEmployee_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetEmployee(context.Background(), "missing")
	require.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

func TestStore_EmployeeUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emp := testEmployee(t)

	require.NoError(t, store.SaveEmployee(ctx, emp))
	emp.Status = leave.StatusSeparated
	require.NoError(t, store.SaveEmployee(ctx, emp))

	got, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusSeparated, got.Status)

	all, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_LedgerRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	l := buildTestLedger(t)

	require.NoError(t, store.SaveLedger(ctx, l))

	got, err := store.GetLedger(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, got.Periods, len(l.Periods))
	for i := range l.Periods {
		assert.True(t, l.Periods[i].GrantDate.Equal(got.Periods[i].GrantDate), "period %d grant date", i)
		assert.True(t, l.Periods[i].Granted.Equal(got.Periods[i].Granted), "period %d granted", i)
		assert.Equal(t, l.Periods[i].IsExpired, got.Periods[i].IsExpired, "period %d expiry flag", i)
	}
	assert.True(t, l.CurrentBalance.Equal(got.CurrentBalance))
	assert.True(t, l.RecalculatedAt.Equal(got.RecalculatedAt))
}

func TestStore_LedgerRoundTrip_WithUsageDates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	l := buildTestLedger(t)
	emp := testEmployee(t)
	_, err := leave.Allocate(&l, emp, []leave.UsageDate{
		{Date: testDate(t, "2025-06-02"), Origin: leave.OriginLocal},
		{Date: testDate(t, "2025-06-03"), Half: true, Origin: leave.OriginLocal},
	})
	require.NoError(t, err)
	l = leave.Recalculate(l, testDate(t, "2025-06-01"))

	require.NoError(t, store.SaveLedger(ctx, l))

	got, err := store.GetLedger(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsageDateCount())
	assert.True(t, l.CurrentUsedTotal.Equal(got.CurrentUsedTotal))

	idx := got.PeriodHolding(testDate(t, "2025-06-03"))
	require.GreaterOrEqual(t, idx, 0)
	for _, u := range got.Periods[idx].UsageDates {
		if u.Date.Equal(testDate(t, "2025-06-03")) {
			assert.True(t, u.Half)
			assert.Equal(t, leave.OriginLocal, u.Origin)
		}
	}
}

func TestStore_SaveLedgerReplacesWholeState(t *testing.T) {
	// SaveLedger is a whole-ledger swap: periods removed upstream do not
	// linger in the database.
	store := newTestStore(t)
	ctx := context.Background()

	l := buildTestLedger(t)
	require.NoError(t, store.SaveLedger(ctx, l))

	smaller := leave.NewLedger("emp-1")
	smaller.Periods = l.Periods[:2]
	smaller = leave.Recalculate(smaller, testDate(t, "2025-06-01"))
	require.NoError(t, store.SaveLedger(ctx, smaller))

	got, err := store.GetLedger(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, got.Periods, 2)
}

func TestStore_GetLedger_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetLedger(context.Background(), "missing")
	require.ErrorIs(t, err, leave.ErrLedgerNotFound)
}

func TestStore_ReconciliationRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveReconciliationRun(ctx, leave.ReconciliationRun{
			ID:         string(rune('a' + i)),
			EmployeeID: "emp-1",
			Mode:       leave.ReSync,
			Conflicts:  i,
			RunAt:      base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := store.ListReconciliationRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Newest first.
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}
