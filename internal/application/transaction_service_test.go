package application

import (
	"testing"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributeThenCollectRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 100)

	due := f.now.Add(24 * time.Hour)
	tx := f.distribute("u1", &due, TransactionItemInput{InstrumentID: "A", Count: 10})
	assert.Equal(t, string(domain.TransactionStatusCompleted), tx.Status)
	assert.Equal(t, domain.DefaultCSSDUnitID, tx.SourceUnitID)
	assert.Equal(t, "u1", tx.DestUnitID)
	assert.Equal(t, 90, f.stock("A").CSSDStock)
	assert.Equal(t, 10, f.held("A", "u1"))

	f.advance(time.Hour)
	col := f.collect("u1", true, TransactionItemInput{InstrumentID: "A", Count: 10})
	assert.Equal(t, string(domain.ValidationStatusVerified), col.ValidationStatus)

	inst := f.stock("A")
	assert.Equal(t, 90, inst.CSSDStock)
	assert.Equal(t, 10, inst.DirtyStock)
	assert.Equal(t, 100, inst.TotalStock)
	assert.Zero(t, f.held("A", "u1"))
	f.assertConsistent()
	assert.Equal(t, 2, f.pendingEvents())
}

func TestCollectWithoutAutoValidateMovesNothing(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 20)
	f.distribute("u1", nil, TransactionItemInput{InstrumentID: "A", Count: 10})

	tx := f.collect("u1", false, TransactionItemInput{InstrumentID: "A", Count: 10})
	assert.Equal(t, string(domain.TransactionStatusPending), tx.Status)
	assert.Zero(t, f.stock("A").DirtyStock)
	assert.Equal(t, 10, f.held("A", "u1"))
}

func TestCreateTransactionRejections(t *testing.T) {
	tests := []struct {
		name string
		cmd  CreateTransactionCommand
		code string
	}{
		{
			name: "empty",
			cmd:  CreateTransactionCommand{Type: "DISTRIBUTE", UnitID: "u1"},
			code: apperrors.CodeValidationError,
		},
		{
			name: "more than sterile stock",
			cmd:  CreateTransactionCommand{Type: "DISTRIBUTE", UnitID: "u1", Items: []TransactionItemInput{{InstrumentID: "A", Count: 11}}},
			code: apperrors.CodeInsufficientStock,
		},
		{
			name: "collect more than the unit holds",
			cmd:  CreateTransactionCommand{Type: "COLLECT", UnitID: "u1", AutoValidate: true, Items: []TransactionItemInput{{InstrumentID: "A", Count: 1}}},
			code: apperrors.CodeInsufficientStock,
		},
		{
			name: "unknown instrument",
			cmd:  CreateTransactionCommand{Type: "DISTRIBUTE", UnitID: "u1", Items: []TransactionItemInput{{InstrumentID: "Z", Count: 1}}},
			code: apperrors.CodeNotFound,
		},
		{
			name: "unknown set",
			cmd:  CreateTransactionCommand{Type: "DISTRIBUTE", UnitID: "u1", SetItems: []TransactionSetInput{{SetID: "S-404", Quantity: 1}}},
			code: apperrors.CodeNotFound,
		},
		{
			name: "unknown pack",
			cmd:  CreateTransactionCommand{Type: "DISTRIBUTE", UnitID: "u1", PackIDs: []string{"P-404"}},
			code: apperrors.CodeNotFound,
		},
		{
			name: "distribute to cssd",
			cmd:  CreateTransactionCommand{Type: "DISTRIBUTE", UnitID: domain.DefaultCSSDUnitID, Items: []TransactionItemInput{{InstrumentID: "A", Count: 1}}},
			code: apperrors.CodeValidationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.instrument("A", "Gunting", 10)
			before := f.stock("A")

			_, err := f.transactions.CreateTransaction(f.ctx, tt.cmd)
			assertCode(t, err, tt.code)

			assert.Equal(t, before, f.stock("A"))
			total, err := f.repos.Transactions.Count(f.ctx, domain.TransactionFilter{})
			require.NoError(t, err)
			assert.Zero(t, total)
			assert.Zero(t, f.pendingEvents())
		})
	}
}

func TestCreateTransactionRollsBackEarlierLines(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 100)
	f.instrument("B", "Pinset", 5)

	_, err := f.transactions.CreateTransaction(f.ctx, CreateTransactionCommand{
		Type:   "DISTRIBUTE",
		UnitID: "u1",
		Items:  []TransactionItemInput{{InstrumentID: "A", Count: 10}, {InstrumentID: "B", Count: 6}},
	})
	assertCode(t, err, apperrors.CodeInsufficientStock)

	assert.Equal(t, 100, f.stock("A").CSSDStock)
	assert.Equal(t, 5, f.stock("B").CSSDStock)
	assert.Zero(t, f.held("A", "u1"))
}

func TestSetExpansionOnDistribute(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 100)
	f.instrument("B", "Pinset", 100)
	_, err := f.packs.DefineSet(f.ctx, DefineSetCommand{
		ID: "S1", Name: "Set Minor",
		Items: []SetComponentInput{{InstrumentID: "A", Quantity: 2}, {InstrumentID: "B", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.transactions.CreateTransaction(f.ctx, CreateTransactionCommand{
		Type: "DISTRIBUTE", UnitID: "u1", SetItems: []TransactionSetInput{{SetID: "S1", Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, 94, f.stock("A").CSSDStock)
	assert.Equal(t, 97, f.stock("B").CSSDStock)
	assert.Equal(t, 6, f.held("A", "u1"))
	assert.Equal(t, 3, f.held("B", "u1"))
	f.assertConsistent()

	f.advance(time.Hour)
	_, err = f.transactions.CreateTransaction(f.ctx, CreateTransactionCommand{
		Type: "COLLECT", UnitID: "u1", AutoValidate: true,
		SetItems: []TransactionSetInput{{SetID: "S1", Quantity: 2, BrokenCount: 1}},
	})
	require.NoError(t, err)
	a, b := f.stock("A"), f.stock("B")
	assert.Equal(t, 4, a.DirtyStock)
	assert.Equal(t, 2, a.BrokenStock)
	assert.Equal(t, 2, b.DirtyStock)
	assert.Equal(t, 1, b.BrokenStock)
	assert.Zero(t, f.held("A", "u1"))
	f.assertConsistent()
}

func TestValidateSetAvailability(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 10)
	f.instrument("B", "Pinset", 100)
	_, err := f.packs.DefineSet(f.ctx, DefineSetCommand{
		ID: "S1", Name: "Set Minor",
		Items: []SetComponentInput{{InstrumentID: "A", Quantity: 2}, {InstrumentID: "B", Quantity: 1}},
	})
	require.NoError(t, err)

	res, err := f.transactions.ValidateSetAvailability(f.ctx, SetAvailabilityQuery{SetID: "S1", Quantity: 5})
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Empty(t, res.Unavailable)

	res, err = f.transactions.ValidateSetAvailability(f.ctx, SetAvailabilityQuery{SetID: "S1", Quantity: 6})
	require.NoError(t, err)
	assert.False(t, res.Available)
	require.Len(t, res.Unavailable, 1)
	assert.Equal(t, UnavailableItemDTO{InstrumentID: "A", InstrumentName: "Gunting", Required: 12, Available: 10}, res.Unavailable[0])

	res, err = f.transactions.ValidateSetAvailability(f.ctx, SetAvailabilityQuery{SetID: "S1", Quantity: 1, Type: "COLLECT", UnitID: "u1"})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Len(t, res.Unavailable, 2)

	_, err = f.transactions.ValidateSetAvailability(f.ctx, SetAvailabilityQuery{SetID: "S1", Quantity: 1, Type: "COLLECT"})
	assertCode(t, err, apperrors.CodeValidationError)

	_, err = f.transactions.ValidateSetAvailability(f.ctx, SetAvailabilityQuery{SetID: "nope", Quantity: 1})
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestCreateTransactionIsIdempotentOnID(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 100)

	cmd := CreateTransactionCommand{
		ID: "TX-1", Type: "DISTRIBUTE", UnitID: "u1",
		Items: []TransactionItemInput{{InstrumentID: "A", Count: 10}},
	}
	first, err := f.transactions.CreateTransaction(f.ctx, cmd)
	require.NoError(t, err)
	second, err := f.transactions.CreateTransaction(f.ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 90, f.stock("A").CSSDStock)
	assert.Equal(t, 10, f.held("A", "u1"))

	cmd.Items[0].Count = 5
	_, err = f.transactions.CreateTransaction(f.ctx, cmd)
	assertCode(t, err, apperrors.CodeConcurrencyConflict)
}

func TestAssetsFollowTheirTransaction(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.RegisterInstrument(f.ctx, RegisterInstrumentCommand{ID: "A", Name: "Gunting", InitialStock: 2, IsSerialized: true})
	require.NoError(t, err)
	_, err = f.catalog.RegisterAsset(f.ctx, RegisterAssetCommand{ID: "A-001", InstrumentID: "A", SerialNumber: "SN-1"})
	require.NoError(t, err)

	f.distribute("u1", nil, TransactionItemInput{InstrumentID: "A", Count: 1, AssetIDs: []string{"A-001"}})
	asset, err := f.repos.Assets.FindByID(f.ctx, "A-001")
	require.NoError(t, err)
	assert.Equal(t, domain.AssetStatusInUse, asset.Status)
	assert.Equal(t, "u1", asset.Location)

	f.collect("u1", true, TransactionItemInput{InstrumentID: "A", Count: 1, AssetIDs: []string{"A-001"}})
	asset, err = f.repos.Assets.FindByID(f.ctx, "A-001")
	require.NoError(t, err)
	assert.Equal(t, domain.AssetStatusDirty, asset.Status)
	assert.Equal(t, domain.DefaultCSSDUnitID, asset.Location)

	_, err = f.transactions.CreateTransaction(f.ctx, CreateTransactionCommand{
		Type: "DISTRIBUTE", UnitID: "u1",
		Items: []TransactionItemInput{{InstrumentID: "A", Count: 1, AssetIDs: []string{"A-001", "A-002"}}},
	})
	assertCode(t, err, apperrors.CodeValidationError)
}

func TestListTransactions(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 100)
	for i := 0; i < 3; i++ {
		f.distribute("u1", nil, TransactionItemInput{InstrumentID: "A", Count: 1})
		f.advance(time.Minute)
	}
	f.distribute("u2", nil, TransactionItemInput{InstrumentID: "A", Count: 1})

	page, err := f.transactions.ListTransactions(f.ctx, ListTransactionsQuery{UnitID: "u1", Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Transactions, 2)
	assert.True(t, page.Transactions[0].Timestamp.After(page.Transactions[1].Timestamp))

	all, err := f.transactions.ListTransactions(f.ctx, ListTransactionsQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)
	assert.Equal(t, defaultPageSize, all.PageSize)

	_, err = f.transactions.GetTransaction(f.ctx, "missing")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestCreateTransactionSurvivesRerunUnitOfWork(t *testing.T) {
	uow := &rerunningUnitOfWork{}
	wrap := func(inner domain.UnitOfWork) domain.UnitOfWork {
		uow.inner = inner
		return uow
	}

	t.Run("distribute", func(t *testing.T) {
		f := newFixtureWith(t, wrap)
		f.instrument("A", "Gunting", 100)
		events := f.pendingEvents()
		reruns := uow.reruns

		tx := f.distribute("u1", nil, TransactionItemInput{InstrumentID: "A", Count: 10})
		assert.Equal(t, string(domain.TransactionStatusCompleted), tx.Status)
		assert.Len(t, tx.Items, 1)
		assert.Equal(t, 90, f.stock("A").CSSDStock)
		assert.Equal(t, 10, f.held("A", "u1"))
		assert.Equal(t, events+1, f.pendingEvents())
		assert.Greater(t, uow.reruns, reruns)
		f.assertConsistent()
	})

	t.Run("pack distribute", func(t *testing.T) {
		f := newFixtureWith(t, wrap)
		f.instrument("A", "Gunting", 10)
		f.washed("A", 10)
		pack, err := f.packs.CreatePack(f.ctx, CreatePackCommand{Items: []PackItemInput{{ItemID: "A", Quantity: 4}}})
		require.NoError(t, err)
		_, err = f.packs.SterilizePack(f.ctx, pack.ID)
		require.NoError(t, err)
		events := f.pendingEvents()

		tx, err := f.transactions.CreateTransaction(f.ctx, CreateTransactionCommand{Type: "DISTRIBUTE", UnitID: "u1", PackIDs: []string{pack.ID}})
		require.NoError(t, err)
		require.Len(t, tx.Items, 1)
		assert.Equal(t, 4, tx.Items[0].Count)
		assert.Zero(t, f.stock("A").CSSDStock)
		assert.Equal(t, 4, f.held("A", "u1"))
		assert.Equal(t, events+1, f.pendingEvents())
		f.assertConsistent()

		got, err := f.packs.GetPack(f.ctx, pack.ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.PackStatusDistributed), got.Status)
	})

	t.Run("auto-validated collect", func(t *testing.T) {
		f := newFixtureWith(t, wrap)
		f.instrument("A", "Gunting", 10)
		f.distribute("u1", nil, TransactionItemInput{InstrumentID: "A", Count: 5})

		tx := f.collect("u1", true, TransactionItemInput{InstrumentID: "A", Count: 3, BrokenCount: 1, MissingCount: 1})
		assert.Equal(t, string(domain.ValidationStatusPartial), tx.ValidationStatus)
		a := f.stock("A")
		assert.Equal(t, 3, a.DirtyStock)
		assert.Equal(t, 1, a.BrokenStock)
		assert.Equal(t, 9, a.TotalStock)
		assert.Zero(t, f.held("A", "u1"))
		f.assertConsistent()

		reports, err := f.verification.GetDiscrepancies(f.ctx, tx.ID)
		require.NoError(t, err)
		assert.Len(t, reports, 1)
		assert.Len(t, f.notifier.discrepancies, 1)
	})
}
