package domain

import (
	"strings"
	"time"
)

// AssetStatus is the condition of one serialized instrument
type AssetStatus string

const (
	AssetStatusReady       AssetStatus = "READY"
	AssetStatusInUse       AssetStatus = "IN_USE"
	AssetStatusDirty       AssetStatus = "DIRTY"
	AssetStatusClean       AssetStatus = "CLEAN"
	AssetStatusMaintenance AssetStatus = "MAINTENANCE"
	AssetStatusBroken      AssetStatus = "BROKEN"
	AssetStatusLost        AssetStatus = "LOST"
)

// IsValid checks if the asset status is valid
func (s AssetStatus) IsValid() bool {
	switch s {
	case AssetStatusReady, AssetStatusInUse, AssetStatusDirty, AssetStatusClean,
		AssetStatusMaintenance, AssetStatusBroken, AssetStatusLost:
		return true
	default:
		return false
	}
}

// InstrumentAsset is a single serialized unit of an instrument
type InstrumentAsset struct {
	ID           string      `bson:"_id" json:"id"`
	InstrumentID string      `bson:"instrumentId" json:"instrumentId"`
	SerialNumber string      `bson:"serialNumber" json:"serialNumber"`
	Status       AssetStatus `bson:"status" json:"status"`
	Location     string      `bson:"location" json:"location"`
	UpdatedAt    time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// NewInstrumentAsset registers a serialized unit as ready at location
func NewInstrumentAsset(id, instrumentID, serial, location string, now time.Time) (*InstrumentAsset, error) {
	if id == "" || instrumentID == "" || strings.TrimSpace(serial) == "" {
		return nil, ErrRequiredField
	}
	return &InstrumentAsset{
		ID:           id,
		InstrumentID: instrumentID,
		SerialNumber: serial,
		Status:       AssetStatusReady,
		Location:     location,
		UpdatedAt:    now,
	}, nil
}

// MoveTo records a new status and location for the asset
func (a *InstrumentAsset) MoveTo(status AssetStatus, location string, now time.Time) error {
	if !status.IsValid() {
		return ErrInvalidType
	}
	if a.Status == AssetStatusLost && status != AssetStatusLost {
		return &InvalidStateError{Resource: "asset", ID: a.ID, Current: string(a.Status), Required: "not LOST"}
	}
	a.Status = status
	a.Location = location
	a.UpdatedAt = now
	return nil
}

// StatusForTransaction returns the status an asset takes when it travels with a transaction
func StatusForTransaction(t TransactionType) AssetStatus {
	if t == TransactionTypeDistribute {
		return AssetStatusInUse
	}
	return AssetStatusDirty
}
