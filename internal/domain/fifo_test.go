package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileFIFODrainsOldestFirst(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	due1 := t0.Add(11 * time.Hour)
	due2 := t0.Add(22 * time.Hour)

	dists := []DistributionLine{
		{TransactionID: "D2", UnitID: "u1", ItemType: ItemTypeSingle, ItemID: "A", Timestamp: t0.Add(2 * time.Hour), ExpectedReturnDate: &due2, Count: 5},
		{TransactionID: "D1", UnitID: "u1", ItemType: ItemTypeSingle, ItemID: "A", Timestamp: t0.Add(1 * time.Hour), ExpectedReturnDate: &due1, Count: 5},
	}
	cols := []CollectionLine{
		{TransactionID: "C1", UnitID: "u1", ItemType: ItemTypeSingle, ItemID: "A", Timestamp: t0.Add(3 * time.Hour), Count: 7},
	}

	lines := ReconcileFIFO(dists, cols)
	require.Len(t, lines, 2)
	byID := map[string]DistributionLine{}
	for _, l := range lines {
		byID[l.TransactionID] = l
	}
	assert.Equal(t, 0, byID["D1"].Remaining)
	assert.Equal(t, 3, byID["D2"].Remaining)
	assert.Equal(t, 0, dists[0].Remaining, "input is not modified")
}

func TestReconcileFIFOKeysAreIndependent(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dists := []DistributionLine{
		{TransactionID: "D1", UnitID: "u1", ItemType: ItemTypeSingle, ItemID: "A", Timestamp: t0, Count: 4},
		{TransactionID: "D2", UnitID: "u2", ItemType: ItemTypeSingle, ItemID: "A", Timestamp: t0, Count: 4},
		{TransactionID: "D3", UnitID: "u1", ItemType: ItemTypeSet, ItemID: "A", Timestamp: t0, Count: 4},
	}
	cols := []CollectionLine{
		{UnitID: "u1", ItemType: ItemTypeSingle, ItemID: "A", Timestamp: t0.Add(time.Hour), Count: 10},
	}

	lines := ReconcileFIFO(dists, cols)
	remaining := map[string]int{}
	for _, l := range lines {
		remaining[l.TransactionID] = l.Remaining
	}
	assert.Equal(t, map[string]int{"D1": 0, "D2": 4, "D3": 4}, remaining)
}

func TestOverdueFilter(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-36 * time.Hour)
	future := now.Add(time.Hour)

	lines := []DistributionLine{
		{TransactionID: "returned", ExpectedReturnDate: &past, Count: 3, Remaining: 0},
		{TransactionID: "late", ExpectedReturnDate: &past, Count: 3, Remaining: 2},
		{TransactionID: "not-due", ExpectedReturnDate: &future, Count: 3, Remaining: 3},
		{TransactionID: "no-date", Count: 3, Remaining: 3},
	}

	overdue := OverdueLines(lines, now)
	require.Len(t, overdue, 1)
	assert.Equal(t, "late", overdue[0].TransactionID)
	assert.GreaterOrEqual(t, DaysOverdue(now, *overdue[0].ExpectedReturnDate), 1)
	assert.Len(t, OutstandingLines(lines), 3)
}

func TestDaysOverdueFloors(t *testing.T) {
	due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysOverdue(due.Add(23*time.Hour), due))
	assert.Equal(t, 1, DaysOverdue(due.Add(47*time.Hour), due))
	assert.Equal(t, 2, DaysOverdue(due.Add(48*time.Hour), due))
}

func TestLinesFromTransactions(t *testing.T) {
	due := testNow.Add(time.Hour)
	dist, err := NewTransaction(TransactionParams{
		ID: "D1", Type: TransactionTypeDistribute, UnitID: "u1", CSSDUnitID: DefaultCSSDUnitID,
		Items: []ItemLine{{InstrumentID: "A", Count: 5}}, SetItems: []SetLine{{SetID: "S", Quantity: 1}},
		ExpectedReturnDate: &due, Now: testNow,
	})
	require.NoError(t, err)
	pending, err := NewTransaction(TransactionParams{
		ID: "C0", Type: TransactionTypeCollect, UnitID: "u1", CSSDUnitID: DefaultCSSDUnitID,
		Items: []ItemLine{{InstrumentID: "A", Count: 5}}, Now: testNow,
	})
	require.NoError(t, err)
	col, err := NewTransaction(TransactionParams{
		ID: "C1", Type: TransactionTypeCollect, UnitID: "u1", CSSDUnitID: DefaultCSSDUnitID,
		Items: []ItemLine{{InstrumentID: "A", Count: 2, BrokenCount: 1, MissingCount: 1}}, Now: testNow,
	})
	require.NoError(t, err)

	require.NoError(t, dist.Complete())
	col.CompleteWithDeclaredCounts("staff", testNow)

	txs := []*Transaction{dist, pending, col}
	ds := DistributionLines(txs)
	cs := CollectionLines(txs)
	require.Len(t, ds, 2)
	assert.Equal(t, ItemTypeSet, ds[1].ItemType)
	require.Len(t, cs, 1, "pending collections are not counted")
	assert.Equal(t, 4, cs[0].Count)
}
