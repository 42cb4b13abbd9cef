package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, store *Store, id string, sterile int) {
	t.Helper()
	inst, err := domain.NewInstrument(id, "Gunting "+id, "", sterile, false, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Repositories().Instruments.Create(context.Background(), inst))
}

func TestLedgerMovesStockThroughTheCycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()
	seed(t, store, "A", 10)

	require.NoError(t, repos.Ledger.MoveDistribute(ctx, "A", 6, "u1"))
	require.NoError(t, repos.Ledger.MoveCollect(ctx, "A", 3, 1, 1, "u1"))
	require.NoError(t, repos.Ledger.MoveWash(ctx, "A", 3))
	require.NoError(t, repos.Ledger.MoveSterilize(ctx, "A", 2, true))
	require.NoError(t, repos.Ledger.MoveSterilize(ctx, "A", 1, false))

	inst, err := repos.Instruments.FindByID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 9, inst.TotalStock)
	assert.Equal(t, 6, inst.CSSDStock)
	assert.Equal(t, 1, inst.DirtyStock)
	assert.Equal(t, 0, inst.PackingStock)
	assert.Equal(t, 1, inst.BrokenStock)

	snap, err := repos.Snapshots.Find(ctx, "A", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Quantity)
	assert.Zero(t, inst.Drift(snap.Quantity, 0))
}

func TestLedgerGuards(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()
	seed(t, store, "A", 2)

	tests := []struct {
		name        string
		apply       func() error
		expectError error
	}{
		{"distribute beyond sterile", func() error { return repos.Ledger.MoveDistribute(ctx, "A", 3, "u1") }, domain.ErrInsufficientStock},
		{"collect from a unit holding nothing", func() error { return repos.Ledger.MoveCollect(ctx, "A", 1, 0, 0, "u1") }, domain.ErrInsufficientStock},
		{"wash without dirty", func() error { return repos.Ledger.MoveWash(ctx, "A", 1) }, domain.ErrInsufficientStock},
		{"reserve without packing", func() error { return repos.Ledger.ReservePacking(ctx, "A", 1) }, domain.ErrInsufficientPackingStock},
		{"unknown instrument", func() error { return repos.Ledger.MoveWash(ctx, "Z", 1) }, domain.ErrNotFound},
		{"zero quantity", func() error { return repos.Ledger.MoveDistribute(ctx, "A", 0, "u1") }, domain.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.apply()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expectError), "got %v", err)

			inst, err := repos.Instruments.FindByID(ctx, "A")
			require.NoError(t, err)
			assert.Equal(t, 2, inst.CSSDStock)
			assert.Equal(t, 2, inst.TotalStock)
		})
	}
}

func TestDoRollsBackEverythingOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()
	seed(t, store, "A", 5)
	seed(t, store, "B", 1)

	err := store.Do(ctx, func(ctx context.Context) error {
		if err := repos.Ledger.MoveDistribute(ctx, "A", 5, "u1"); err != nil {
			return err
		}
		inside, err := repos.Instruments.FindByID(ctx, "A")
		require.NoError(t, err)
		assert.Zero(t, inside.CSSDStock, "reads inside the unit of work see its writes")
		return repos.Ledger.MoveDistribute(ctx, "B", 2, "u1")
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	a, _ := repos.Instruments.FindByID(ctx, "A")
	assert.Equal(t, 5, a.CSSDStock)
	snap, err := repos.Snapshots.Find(ctx, "A", "u1")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestConcurrentDistributionsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()
	seed(t, store, "A", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repos.Ledger.MoveDistribute(ctx, "A", 1, "u1"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	inst, _ := repos.Instruments.FindByID(ctx, "A")
	assert.Zero(t, inst.CSSDStock)
	snap, _ := repos.Snapshots.Find(ctx, "A", "u1")
	assert.Equal(t, 10, snap.Quantity)
}

func TestReturnedEntitiesAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()

	tx, err := domain.NewTransaction(domain.TransactionParams{
		ID: "TX-1", Type: domain.TransactionTypeCollect, UnitID: "u1", CSSDUnitID: domain.DefaultCSSDUnitID,
		Items: []domain.ItemLine{{InstrumentID: "A", Count: 2}}, Now: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, repos.Transactions.Save(ctx, tx))

	tx.Items[0].Count = 99
	got, err := repos.Transactions.FindByID(ctx, "TX-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Count)

	got.Items[0].Count = 50
	again, _ := repos.Transactions.FindByID(ctx, "TX-1")
	assert.Equal(t, 2, again.Items[0].Count)

	missing, err := repos.Transactions.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTransactionFindPaginates(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"T1", "T2", "T3"} {
		tx, err := domain.NewTransaction(domain.TransactionParams{
			ID: id, Type: domain.TransactionTypeCollect, UnitID: "u1", CSSDUnitID: domain.DefaultCSSDUnitID,
			Items: []domain.ItemLine{{InstrumentID: "A", Count: 1}}, Now: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		require.NoError(t, repos.Transactions.Save(ctx, tx))
	}

	page, err := repos.Transactions.Find(ctx, domain.TransactionFilter{UnitID: "u1", Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "T2", page[0].ID)

	count, err := repos.Transactions.Count(ctx, domain.TransactionFilter{Type: domain.TransactionTypeDistribute})
	require.NoError(t, err)
	assert.Zero(t, count)
}
