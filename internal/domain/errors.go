package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrEmptyTransaction         = errors.New("transaction has no items, sets or packs")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrInsufficientPackingStock = errors.New("insufficient packing stock")
	ErrVerificationMismatch     = errors.New("received + broken + missing does not match expected")
	ErrInvalidState             = errors.New("invalid state")
	ErrNotFound                 = errors.New("not found")
	ErrConcurrencyConflict      = errors.New("concurrency conflict")
	ErrInvalidQuantity          = errors.New("invalid quantity")
	ErrInvalidType              = errors.New("invalid type")
	ErrInvalidUnit              = errors.New("invalid unit")
	ErrDuplicateLine            = errors.New("duplicate line")
	ErrAlreadyExists            = errors.New("already exists")
	ErrRequiredField            = errors.New("required field missing")
)

// StockPool names one of the counters a guarded update can fail on
type StockPool string

const (
	PoolCSSD    StockPool = "cssd"
	PoolDirty   StockPool = "dirty"
	PoolPacking StockPool = "packing"
	PoolUnit    StockPool = "unit"
)

// InsufficientStockError reports a guarded decrement that matched nothing
type InsufficientStockError struct {
	InstrumentID string
	Pool         StockPool
	UnitID       string
	Requested    int
}

func (e *InsufficientStockError) Error() string {
	if e.Pool == PoolUnit {
		return fmt.Sprintf("insufficient stock: instrument %s at unit %s cannot supply %d", e.InstrumentID, e.UnitID, e.Requested)
	}
	return fmt.Sprintf("insufficient stock: instrument %s %s stock cannot supply %d", e.InstrumentID, e.Pool, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InsufficientPackingStockError reports a pack that could not reserve its contents
type InsufficientPackingStockError struct {
	InstrumentID string
	Requested    int
}

func (e *InsufficientPackingStockError) Error() string {
	return fmt.Sprintf("insufficient packing stock: instrument %s cannot supply %d", e.InstrumentID, e.Requested)
}

func (e *InsufficientPackingStockError) Unwrap() error { return ErrInsufficientPackingStock }

// NotFoundError reports an unknown id
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError creates a NotFoundError
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// InvalidStateError reports an operation on a record that is not in the required state
type InvalidStateError struct {
	Resource string
	ID       string
	Current  string
	Required string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: %s %s is %s, requires %s", e.Resource, e.ID, e.Current, e.Required)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// LineMismatch describes one verification line whose counts do not add up
type LineMismatch struct {
	ItemType ItemType `json:"itemType"`
	ItemID   string   `json:"itemId"`
	Expected int      `json:"expected"`
	Received int      `json:"received"`
	Broken   int      `json:"broken"`
	Missing  int      `json:"missing"`
	// Duplicate marks a second verification submitted for the same line
	Duplicate bool `json:"duplicate,omitempty"`
}

// VerificationMismatchError lists every line that failed the conservation check
type VerificationMismatchError struct {
	TransactionID string
	Lines         []LineMismatch
}

func (e *VerificationMismatchError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if l.Duplicate {
			parts = append(parts, fmt.Sprintf("%s %s: verified more than once", l.ItemType, l.ItemID))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s: %d+%d+%d != %d", l.ItemType, l.ItemID, l.Received, l.Broken, l.Missing, l.Expected))
	}
	return fmt.Sprintf("verification mismatch on transaction %s: %s", e.TransactionID, strings.Join(parts, "; "))
}

func (e *VerificationMismatchError) Unwrap() error { return ErrVerificationMismatch }

// ConcurrencyConflictError reports a write that lost a race with another writer
type ConcurrencyConflictError struct {
	Resource string
	ID       string
	Err      error
}

func (e *ConcurrencyConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("concurrency conflict on %s %s: %v", e.Resource, e.ID, e.Err)
	}
	return fmt.Sprintf("concurrency conflict on %s %s", e.Resource, e.ID)
}

func (e *ConcurrencyConflictError) Unwrap() error { return ErrConcurrencyConflict }
