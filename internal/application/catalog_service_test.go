package application

import (
	"testing"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterInstrument(t *testing.T) {
	f := newFixture(t)

	inst, err := f.catalog.RegisterInstrument(f.ctx, RegisterInstrumentCommand{ID: "A", Name: "Gunting", Category: "scissors", InitialStock: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, inst.TotalStock)
	assert.Equal(t, 25, inst.CSSDStock)

	_, err = f.catalog.RegisterInstrument(f.ctx, RegisterInstrumentCommand{ID: "A", Name: "Gunting"})
	assertCode(t, err, apperrors.CodeConflict)

	_, err = f.catalog.RegisterInstrument(f.ctx, RegisterInstrumentCommand{ID: "B", Name: "Pinset", InitialStock: -1})
	assertCode(t, err, apperrors.CodeValidationError)

	list, err := f.catalog.ListInstruments(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.catalog.GetInstrument(f.ctx, "B")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestAssets(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 2)

	asset, err := f.catalog.RegisterAsset(f.ctx, RegisterAssetCommand{ID: "A-1", InstrumentID: "A", SerialNumber: "SN-1"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.AssetStatusReady), asset.Status)
	assert.Equal(t, domain.DefaultCSSDUnitID, asset.Location)

	_, err = f.catalog.RegisterAsset(f.ctx, RegisterAssetCommand{ID: "A-2", InstrumentID: "A", SerialNumber: "SN-1"})
	assertCode(t, err, apperrors.CodeConflict)
	_, err = f.catalog.RegisterAsset(f.ctx, RegisterAssetCommand{InstrumentID: "Z", SerialNumber: "SN-9"})
	assertCode(t, err, apperrors.CodeNotFound)

	lost, err := f.catalog.UpdateAssetStatus(f.ctx, UpdateAssetStatusCommand{AssetID: "A-1", Status: "LOST"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.AssetStatusLost), lost.Status)
	assert.Equal(t, domain.DefaultCSSDUnitID, lost.Location)

	_, err = f.catalog.UpdateAssetStatus(f.ctx, UpdateAssetStatusCommand{AssetID: "A-1", Status: "READY"})
	assertCode(t, err, apperrors.CodeInvalidState)

	assets, err := f.catalog.ListAssets(f.ctx, "A")
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestUnitsAndParLevels(t *testing.T) {
	f := newFixture(t)
	f.instrument("A", "Gunting", 20)
	f.unit("u1", "Bedah")

	_, err := f.catalog.RegisterUnit(f.ctx, RegisterUnitCommand{ID: domain.DefaultCSSDUnitID, Name: "CSSD"})
	assertCode(t, err, apperrors.CodeValidationError)

	units, err := f.catalog.ListUnits(f.ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "Bedah", units[0].Name)

	require.NoError(t, f.catalog.SetParLevel(f.ctx, SetParLevelCommand{UnitID: "u1", InstrumentID: "A", MaxStock: ptr(8)}))
	f.distribute("u1", nil, TransactionItemInput{InstrumentID: "A", Count: 5})

	stock, err := f.catalog.ListUnitStock(f.ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Equal(t, "Gunting", stock[0].InstrumentName)
	assert.Equal(t, 5, stock[0].Quantity)
	require.NotNil(t, stock[0].MaxStock)
	assert.Equal(t, 8, *stock[0].MaxStock)
	assert.True(t, stock[0].BelowPar)

	err = f.catalog.SetParLevel(f.ctx, SetParLevelCommand{UnitID: "u1", InstrumentID: "A", MaxStock: ptr(-1)})
	assertCode(t, err, apperrors.CodeValidationError)
	err = f.catalog.SetParLevel(f.ctx, SetParLevelCommand{UnitID: "u1", InstrumentID: "Z"})
	assertCode(t, err, apperrors.CodeNotFound)
}
