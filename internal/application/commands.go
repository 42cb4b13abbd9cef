package application

import (
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
)

// TransactionItemInput is one instrument line of a new transaction
type TransactionItemInput struct {
	InstrumentID string
	Count        int
	BrokenCount  int
	MissingCount int
	AssetIDs     []string
	Notes        string
}

// TransactionSetInput is one set line of a new transaction, counted in whole sets
type TransactionSetInput struct {
	SetID        string
	Quantity     int
	BrokenCount  int
	MissingCount int
	Notes        string
}

// CreateTransactionCommand represents the command to record a distribution or collection.
// ID is optional; a caller-supplied ID makes resubmission idempotent.
type CreateTransactionCommand struct {
	ID                 string
	Type               string
	UnitID             string
	Items              []TransactionItemInput
	SetItems           []TransactionSetInput
	PackIDs            []string
	ExpectedReturnDate *time.Time
	AutoValidate       bool
	CreatedBy          string
}

// ValidateTransactionCommand represents the physical verification of a pending collection
type ValidateTransactionCommand struct {
	TransactionID     string
	ItemVerifications []domain.ItemVerification
	SetVerifications  []domain.SetVerification
	Notes             string
	ValidatedBy       string
}

// SetAvailabilityQuery asks whether quantity sets can be moved right now
type SetAvailabilityQuery struct {
	SetID    string
	Quantity int
	Type     string
	UnitID   string
}

// ListTransactionsQuery represents the query to page through the ledger
type ListTransactionsQuery struct {
	UnitID   string
	Type     string
	Status   string
	Page     int
	PageSize int
}

// PackItemInput is one line of a new pack
type PackItemInput struct {
	ItemID   string
	ItemType string
	Quantity int
}

// CreatePackCommand represents the command to bundle packing stock into a pack
type CreatePackCommand struct {
	Name         string
	Type         string
	TargetUnitID string
	Items        []PackItemInput
	CreatedBy    string
}

// ListPacksQuery represents the query to list packs
type ListPacksQuery struct {
	Status       string
	TargetUnitID string
}

// ProcessItemInput is a quantity of one instrument put through a cycle
type ProcessItemInput struct {
	InstrumentID string
	Quantity     int
}

// WashItemsCommand represents a washer run
type WashItemsCommand struct {
	Items    []ProcessItemInput
	Operator string
}

// SterilizeItemsCommand represents a sterilizer run
type SterilizeItemsCommand struct {
	Items    []ProcessItemInput
	Operator string
	Machine  string
	Status   string
}

// SetComponentInput is one instrument of a set recipe
type SetComponentInput struct {
	InstrumentID string
	Quantity     int
}

// DefineSetCommand creates or replaces a set recipe
type DefineSetCommand struct {
	ID          string
	Name        string
	Description string
	Items       []SetComponentInput
}

// RegisterInstrumentCommand adds an instrument with its initial sterile stock
type RegisterInstrumentCommand struct {
	ID           string
	Name         string
	Category     string
	InitialStock int
	IsSerialized bool
}

// RegisterAssetCommand adds a serialized unit of an instrument
type RegisterAssetCommand struct {
	ID           string
	InstrumentID string
	SerialNumber string
	Location     string
}

// UpdateAssetStatusCommand flags an asset, typically BROKEN, LOST or MAINTENANCE
type UpdateAssetStatusCommand struct {
	AssetID  string
	Status   string
	Location string
}

// RegisterUnitCommand adds a care unit to the directory
type RegisterUnitCommand struct {
	ID   string
	Name string
}

// SetParLevelCommand sets or clears the par level of an instrument at a unit
type SetParLevelCommand struct {
	UnitID       string
	InstrumentID string
	MaxStock     *int
}
