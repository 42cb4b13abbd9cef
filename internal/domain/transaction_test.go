package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func collectParams(items []ItemLine, sets []SetLine) TransactionParams {
	return TransactionParams{
		ID:         "TX-1",
		Type:       TransactionTypeCollect,
		UnitID:     "u1",
		CSSDUnitID: DefaultCSSDUnitID,
		Items:      items,
		SetItems:   sets,
		CreatedBy:  "nurse-1",
		Now:        testNow,
	}
}

func TestNewTransaction(t *testing.T) {
	due := testNow.Add(24 * time.Hour)

	tests := []struct {
		name        string
		params      TransactionParams
		expectError error
	}{
		{
			name: "distribution",
			params: TransactionParams{
				ID: "TX-1", Type: TransactionTypeDistribute, UnitID: "u1", CSSDUnitID: DefaultCSSDUnitID,
				Items: []ItemLine{{InstrumentID: "A", Count: 10}}, ExpectedReturnDate: &due, Now: testNow,
			},
		},
		{
			name:        "empty",
			params:      collectParams(nil, nil),
			expectError: ErrEmptyTransaction,
		},
		{
			name: "unit is cssd",
			params: TransactionParams{
				ID: "TX-1", Type: TransactionTypeDistribute, UnitID: DefaultCSSDUnitID, CSSDUnitID: DefaultCSSDUnitID,
				Items: []ItemLine{{InstrumentID: "A", Count: 1}}, Now: testNow,
			},
			expectError: ErrInvalidUnit,
		},
		{
			name: "unknown type",
			params: TransactionParams{
				ID: "TX-1", Type: "LEND", UnitID: "u1", CSSDUnitID: DefaultCSSDUnitID,
				Items: []ItemLine{{InstrumentID: "A", Count: 1}}, Now: testNow,
			},
			expectError: ErrInvalidType,
		},
		{
			name: "distribution with broken count",
			params: TransactionParams{
				ID: "TX-1", Type: TransactionTypeDistribute, UnitID: "u1", CSSDUnitID: DefaultCSSDUnitID,
				Items: []ItemLine{{InstrumentID: "A", Count: 1, BrokenCount: 1}}, Now: testNow,
			},
			expectError: ErrInvalidQuantity,
		},
		{
			name:        "zero quantity line",
			params:      collectParams([]ItemLine{{InstrumentID: "A"}}, nil),
			expectError: ErrInvalidQuantity,
		},
		{
			name:        "duplicate instrument",
			params:      collectParams([]ItemLine{{InstrumentID: "A", Count: 1}, {InstrumentID: "A", Count: 2}}, nil),
			expectError: ErrDuplicateLine,
		},
		{
			name: "collect with packs",
			params: TransactionParams{
				ID: "TX-1", Type: TransactionTypeCollect, UnitID: "u1", CSSDUnitID: DefaultCSSDUnitID,
				PackIDs: []string{"P-1"}, Now: testNow,
			},
			expectError: ErrInvalidType,
		},
		{
			name:   "collect of only broken items",
			params: collectParams([]ItemLine{{InstrumentID: "A", BrokenCount: 2}}, nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := NewTransaction(tt.params)
			if tt.expectError != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectError), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TransactionStatusPending, tx.Status)
			assert.Equal(t, "u1", tx.UnitID)
		})
	}
}

func TestNewTransactionUnits(t *testing.T) {
	due := testNow.Add(time.Hour)
	tx, err := NewTransaction(TransactionParams{
		ID: "TX-1", Type: TransactionTypeDistribute, UnitID: "u1", CSSDUnitID: "cssd",
		Items: []ItemLine{{InstrumentID: "A", Count: 1}}, ExpectedReturnDate: &due, Now: testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, "cssd", tx.SourceUnitID)
	assert.Equal(t, "u1", tx.DestUnitID)
	require.NotNil(t, tx.ExpectedReturnDate)

	params := collectParams([]ItemLine{{InstrumentID: "A", Count: 1}}, nil)
	params.ExpectedReturnDate = &due
	tx, err = NewTransaction(params)
	require.NoError(t, err)
	assert.Equal(t, "u1", tx.SourceUnitID)
	assert.Equal(t, "cssd", tx.DestUnitID)
	assert.Nil(t, tx.ExpectedReturnDate)
}

func TestApplyVerification(t *testing.T) {
	t.Run("all received is verified", func(t *testing.T) {
		tx, err := NewTransaction(collectParams([]ItemLine{{InstrumentID: "A", Count: 5}}, []SetLine{{SetID: "S", Quantity: 2}}))
		require.NoError(t, err)

		summary, err := tx.ApplyVerification(
			[]ItemVerification{{InstrumentID: "A", Received: 5}},
			nil, "ok", "staff-1", testNow,
		)
		require.NoError(t, err)
		assert.Equal(t, ValidationStatusVerified, summary.Outcome())
		assert.Equal(t, TransactionStatusCompleted, tx.Status)
		assert.Equal(t, ValidationStatusVerified, tx.ValidationStatus)
		require.NotNil(t, tx.SetItems[0].ReceivedQuantity)
		assert.Equal(t, 2, *tx.SetItems[0].ReceivedQuantity)
		assert.Equal(t, 7, summary.TotalExpected)
		assert.Len(t, tx.GetDomainEvents(), 1)
	})

	t.Run("broken and missing is partial", func(t *testing.T) {
		tx, err := NewTransaction(collectParams([]ItemLine{{InstrumentID: "A", Count: 10}}, nil))
		require.NoError(t, err)

		summary, err := tx.ApplyVerification(
			[]ItemVerification{{InstrumentID: "A", Received: 7, Broken: 2, Missing: 1, Notes: "tip bent"}},
			nil, "", "staff-1", testNow,
		)
		require.NoError(t, err)
		assert.Equal(t, ValidationStatusPartial, tx.ValidationStatus)
		assert.Equal(t, 2, summary.TotalBroken)
		assert.Equal(t, 1, summary.TotalMissing)
		assert.Equal(t, 10, tx.Items[0].Expected())
		assert.Equal(t, 7, tx.Items[0].Good())
		assert.Equal(t, "tip bent", tx.Items[0].Notes)
		assert.Len(t, summary.DiscrepantLines(), 1)
	})

	t.Run("mismatch leaves transaction untouched", func(t *testing.T) {
		tx, err := NewTransaction(collectParams([]ItemLine{{InstrumentID: "A", Count: 10}, {InstrumentID: "B", Count: 3}}, nil))
		require.NoError(t, err)
		before := *tx
		before.Items = append([]ItemLine(nil), tx.Items...)

		_, err = tx.ApplyVerification(
			[]ItemVerification{{InstrumentID: "A", Received: 7, Broken: 2}, {InstrumentID: "B", Received: 3}},
			nil, "", "staff-1", testNow,
		)
		var mismatch *VerificationMismatchError
		require.True(t, errors.As(err, &mismatch))
		require.Len(t, mismatch.Lines, 1)
		assert.Equal(t, "A", mismatch.Lines[0].ItemID)
		assert.Equal(t, 10, mismatch.Lines[0].Expected)
		assert.Equal(t, before.Items, tx.Items)
		assert.Equal(t, TransactionStatusPending, tx.Status)
	})

	t.Run("verification for unknown line", func(t *testing.T) {
		tx, err := NewTransaction(collectParams([]ItemLine{{InstrumentID: "A", Count: 1}}, nil))
		require.NoError(t, err)
		_, err = tx.ApplyVerification([]ItemVerification{{InstrumentID: "Z", Received: 1}}, nil, "", "", testNow)
		assert.ErrorIs(t, err, ErrVerificationMismatch)
	})

	t.Run("unverified line keeps declared counts", func(t *testing.T) {
		tx, err := NewTransaction(collectParams(
			[]ItemLine{{InstrumentID: "A", Count: 8, BrokenCount: 2}},
			[]SetLine{{SetID: "S", Quantity: 1, MissingCount: 1}},
		))
		require.NoError(t, err)

		summary, err := tx.ApplyVerification(nil, nil, "", "staff-1", testNow)
		require.NoError(t, err)
		assert.Equal(t, ValidationStatusPartial, tx.ValidationStatus)
		assert.Equal(t, 2, tx.Items[0].BrokenCount)
		assert.Equal(t, 8, tx.Items[0].Good())
		assert.Equal(t, 10, tx.Items[0].Expected())
		assert.Equal(t, 1, tx.SetItems[0].MissingCount)
		assert.Equal(t, 1, tx.SetItems[0].Good())
		assert.Equal(t, 2, summary.TotalBroken)
		assert.Equal(t, 1, summary.TotalMissing)
		assert.Equal(t, 12, summary.TotalExpected)
	})

	t.Run("duplicate verification rows", func(t *testing.T) {
		tx, err := NewTransaction(collectParams([]ItemLine{{InstrumentID: "A", Count: 10}}, []SetLine{{SetID: "S", Quantity: 2}}))
		require.NoError(t, err)

		_, err = tx.ApplyVerification(
			[]ItemVerification{{InstrumentID: "A", Received: 10}, {InstrumentID: "A", Received: 8, Broken: 2}},
			[]SetVerification{{SetID: "S", Received: 2}, {SetID: "S", Received: 2}},
			"", "staff-1", testNow,
		)
		var mismatch *VerificationMismatchError
		require.True(t, errors.As(err, &mismatch))
		require.Len(t, mismatch.Lines, 2)
		assert.True(t, mismatch.Lines[0].Duplicate)
		assert.Equal(t, "A", mismatch.Lines[0].ItemID)
		assert.True(t, mismatch.Lines[1].Duplicate)
		assert.Equal(t, "S", mismatch.Lines[1].ItemID)
		assert.Contains(t, err.Error(), "verified more than once")
		assert.Equal(t, TransactionStatusPending, tx.Status)
		assert.Nil(t, tx.Items[0].ReceivedCount)
	})

	t.Run("already completed", func(t *testing.T) {
		tx, err := NewTransaction(collectParams([]ItemLine{{InstrumentID: "A", Count: 1}}, nil))
		require.NoError(t, err)
		tx.CompleteWithDeclaredCounts("staff-1", testNow)
		_, err = tx.ApplyVerification(nil, nil, "", "", testNow)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestSameRequest(t *testing.T) {
	a, err := NewTransaction(collectParams([]ItemLine{{InstrumentID: "A", Count: 10}, {InstrumentID: "B", Count: 1}}, nil))
	require.NoError(t, err)
	b, err := NewTransaction(collectParams([]ItemLine{{InstrumentID: "B", Count: 1}, {InstrumentID: "A", Count: 10}}, nil))
	require.NoError(t, err)
	c, err := NewTransaction(collectParams([]ItemLine{{InstrumentID: "A", Count: 9}}, nil))
	require.NoError(t, err)

	assert.True(t, a.SameRequest(b))
	assert.False(t, a.SameRequest(c))

	_, err = a.ApplyVerification([]ItemVerification{{InstrumentID: "A", Received: 8, Broken: 2}}, nil, "", "", testNow)
	require.NoError(t, err)
	assert.True(t, a.SameRequest(b), "verified transaction still matches its submission")
}
