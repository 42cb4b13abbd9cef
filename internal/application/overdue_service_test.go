package application

import (
	"testing"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuntingOverdueScenario(t *testing.T) {
	f := newFixture(t)
	f.instrument("Gunting", "Gunting", 100)
	f.unit("u1", "Bedah")

	due := f.now.Add(86_400_000 * time.Millisecond)
	f.distribute("u1", &due, TransactionItemInput{InstrumentID: "Gunting", Count: 10})
	assert.Equal(t, 90, f.stock("Gunting").CSSDStock)
	assert.Equal(t, 10, f.held("Gunting", "u1"))

	f.advance(48 * time.Hour)
	units, err := f.overdue.GetOverdueInstruments(f.ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "u1", units[0].UnitID)
	assert.Equal(t, "Bedah", units[0].UnitName)
	assert.Equal(t, 10, units[0].OverdueCount)
	require.Len(t, units[0].Instruments, 1)
	assert.Equal(t, 1, units[0].Instruments[0].DaysOverdue)
	assert.Equal(t, "Gunting", units[0].Instruments[0].ItemName)

	status, err := f.overdue.CheckUnitOverdue(f.ctx, "u1")
	require.NoError(t, err)
	assert.True(t, status.HasOverdue)
	assert.Equal(t, 10, status.OverdueCount)
}

func TestOverdueUsesFIFOMatching(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 100)
	f.unit("u1", "Bedah")

	f.advance(time.Hour)
	due1 := f.now.Add(10 * time.Hour)
	d1 := f.distribute("u1", &due1, TransactionItemInput{InstrumentID: "A", Count: 5})
	f.advance(time.Hour)
	due2 := f.now.Add(20 * time.Hour)
	d2 := f.distribute("u1", &due2, TransactionItemInput{InstrumentID: "A", Count: 5})
	f.advance(time.Hour)
	f.collect("u1", true, TransactionItemInput{InstrumentID: "A", Count: 7})

	outstanding, err := f.overdue.GetOutstanding(f.ctx, "u1")
	require.NoError(t, err)
	require.Len(t, outstanding, 1)
	assert.Equal(t, d2.ID, outstanding[0].TransactionID)
	assert.Equal(t, 3, outstanding[0].Remaining)

	status, err := f.overdue.CheckUnitOverdue(f.ctx, "u1")
	require.NoError(t, err)
	assert.False(t, status.HasOverdue, "nothing is due yet")

	f.advance(3 * 24 * time.Hour)
	units, err := f.overdue.GetOverdueInstruments(f.ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, 3, units[0].OverdueCount)
	for _, l := range units[0].Instruments {
		assert.NotEqual(t, d1.ID, l.TransactionID, "fully returned loans are never overdue")
	}
}

func TestOverdueIgnoresPendingCollectionsAndOtherUnits(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 100)

	due := f.now.Add(time.Hour)
	f.distribute("u1", &due, TransactionItemInput{InstrumentID: "A", Count: 4})
	f.distribute("u2", nil, TransactionItemInput{InstrumentID: "A", Count: 4})
	f.collect("u1", false, TransactionItemInput{InstrumentID: "A", Count: 4})

	f.advance(50 * time.Hour)
	units, err := f.overdue.GetOverdueInstruments(f.ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "u1", units[0].UnitID)
	assert.Equal(t, "u1", units[0].UnitName, "unknown units fall back to their id")
	assert.Equal(t, 4, units[0].OverdueCount)
	assert.Equal(t, 2, units[0].Instruments[0].DaysOverdue)

	status, err := f.overdue.CheckUnitOverdue(f.ctx, "u2")
	require.NoError(t, err)
	assert.False(t, status.HasOverdue)
}

func TestOverdueSetLinesKeepTheirOwnQueue(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 100)
	_, err := f.packs.DefineSet(f.ctx, DefineSetCommand{ID: "S1", Name: "Set Minor", Items: []SetComponentInput{{InstrumentID: "A", Quantity: 2}}})
	require.NoError(t, err)

	due := f.now.Add(time.Hour)
	_, err = f.transactions.CreateTransaction(f.ctx, CreateTransactionCommand{
		Type: "DISTRIBUTE", UnitID: "u1", ExpectedReturnDate: &due,
		SetItems: []TransactionSetInput{{SetID: "S1", Quantity: 2}},
	})
	require.NoError(t, err)
	f.collect("u1", true, TransactionItemInput{InstrumentID: "A", Count: 4})

	f.advance(25 * time.Hour)
	units, err := f.overdue.GetOverdueInstruments(f.ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Len(t, units[0].Instruments, 1)
	assert.Equal(t, string(domain.ItemTypeSet), units[0].Instruments[0].ItemType)
	assert.Equal(t, "Set Minor", units[0].Instruments[0].ItemName)
	assert.Equal(t, 2, units[0].OverdueCount)
}

func TestSweepOverdueNotifiesAndRecordsEvents(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 100)
	f.unit("u1", "Bedah")
	due := f.now.Add(time.Hour)
	f.distribute("u1", &due, TransactionItemInput{InstrumentID: "A", Count: 2})
	f.advance(30 * time.Hour)

	units, err := f.overdue.SweepOverdue(f.ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Len(t, f.notifier.overdue, 1)
	assert.Equal(t, "u1", f.notifier.overdue[0].UnitID)

	events, err := f.store.Outbox().FindByAggregateID(f.ctx, "u1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventOverdueDetected, events[0].EventType)
	assert.Equal(t, kafka.TopicForEvent(domain.EventOverdueDetected), events[0].Topic)
}

func TestOverdueRequiresUnit(t *testing.T) {
	f := newFixture(t)
	_, err := f.overdue.CheckUnitOverdue(f.ctx, "")
	require.Error(t, err)
	_, err = f.overdue.GetOutstanding(f.ctx, "")
	require.Error(t, err)
}
