package application

import (
	"testing"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWashAndSterilizeCycle(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 10)
	f.washed("A", 6)
	inst := f.stock("A")
	assert.Zero(t, inst.DirtyStock)
	assert.Equal(t, 6, inst.PackingStock)

	res, err := f.lifecycle.SterilizeItems(f.ctx, SterilizeItemsCommand{
		Items:    []ProcessItemInput{{InstrumentID: "A", Quantity: 4}},
		Operator: "op-1",
		Machine:  "Autoclave-2",
		Status:   "SUCCESS",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.BatchStatusSuccess), res.Status)
	require.NotNil(t, res.ExpiryDate)
	assert.True(t, f.now.Add(7*24*time.Hour).Equal(*res.ExpiryDate))

	inst = f.stock("A")
	assert.Equal(t, 8, inst.CSSDStock)
	assert.Equal(t, 2, inst.PackingStock)
	f.assertConsistent()
}

func TestFailedSterilizationReturnsToDirty(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 10)
	f.washed("A", 5)

	res, err := f.lifecycle.SterilizeItems(f.ctx, SterilizeItemsCommand{
		Items:  []ProcessItemInput{{InstrumentID: "A", Quantity: 3}},
		Status: "FAILED",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.BatchStatusFailed), res.Status)
	assert.Nil(t, res.ExpiryDate)

	inst := f.stock("A")
	assert.Equal(t, 3, inst.DirtyStock)
	assert.Equal(t, 2, inst.PackingStock)
	assert.Equal(t, 5, inst.CSSDStock)
	f.assertConsistent()

	batches, err := f.lifecycle.ListBatches(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, string(domain.BatchKindSterilize), batches[0].Kind)
	assert.Equal(t, string(domain.BatchKindWash), batches[1].Kind)
}

func TestLifecycleRejections(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 10)

	_, err := f.lifecycle.WashItems(f.ctx, WashItemsCommand{Items: []ProcessItemInput{{InstrumentID: "A", Quantity: 1}}})
	assertCode(t, err, apperrors.CodeInsufficientStock)

	_, err = f.lifecycle.WashItems(f.ctx, WashItemsCommand{})
	assertCode(t, err, apperrors.CodeValidationError)

	_, err = f.lifecycle.SterilizeItems(f.ctx, SterilizeItemsCommand{Items: []ProcessItemInput{{InstrumentID: "A", Quantity: 1}}})
	assertCode(t, err, apperrors.CodeInsufficientStock)

	_, err = f.lifecycle.SterilizeItems(f.ctx, SterilizeItemsCommand{Items: []ProcessItemInput{{InstrumentID: "A", Quantity: 1}}, Status: "MAYBE"})
	assertCode(t, err, apperrors.CodeValidationError)

	batches, err := f.lifecycle.ListBatches(f.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batches)
	assert.Equal(t, 10, f.stock("A").CSSDStock)
}
