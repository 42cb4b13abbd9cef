package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditReportsDrift(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 10)
	f.instrument("B", "Pinset", 10)
	f.distribute("u1", nil, TransactionItemInput{InstrumentID: "A", Count: 3})
	f.assertConsistent()

	// A write that bypasses the ledger leaves the books unbalanced.
	require.NoError(t, f.repos.UnitOfWork.Do(f.ctx, func(ctx context.Context) error {
		return f.repos.Ledger.ReleaseSterile(ctx, "A", 2)
	}))

	report, err := f.audit.CheckStock(f.ctx)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, 2, report.Instruments)
	require.Len(t, report.Drifts, 1)
	assert.Equal(t, StockDriftDTO{
		InstrumentID: "A",
		Name:         "Gunting",
		TotalStock:   10,
		HeldAtCSSD:   9,
		AtUnits:      3,
		InPacks:      0,
		Expected:     12,
		Drift:        -2,
	}, report.Drifts[0])
}
