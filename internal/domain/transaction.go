package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TransactionType is the direction of a stock movement between CSSD and a unit
type TransactionType string

const (
	TransactionTypeDistribute TransactionType = "DISTRIBUTE"
	TransactionTypeCollect    TransactionType = "COLLECT"
)

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeDistribute || t == TransactionTypeCollect
}

// TransactionStatus is the lifecycle state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// IsValid checks if the transaction status is valid
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusCancelled:
		return true
	default:
		return false
	}
}

// ValidationStatus is the outcome of physical verification
type ValidationStatus string

const (
	ValidationStatusNone     ValidationStatus = ""
	ValidationStatusVerified ValidationStatus = "VERIFIED"
	ValidationStatusPartial  ValidationStatus = "PARTIAL"
)

// ItemLine is a quantity of one instrument moved by a transaction.
// Count is the quantity in good condition; BrokenCount and MissingCount
// are only meaningful on collections.
type ItemLine struct {
	InstrumentID  string   `bson:"instrumentId" json:"instrumentId"`
	Count         int      `bson:"count" json:"count"`
	BrokenCount   int      `bson:"brokenCount" json:"brokenCount"`
	MissingCount  int      `bson:"missingCount" json:"missingCount"`
	ReceivedCount *int     `bson:"receivedCount,omitempty" json:"receivedCount,omitempty"`
	AssetIDs      []string `bson:"assetIds,omitempty" json:"assetIds,omitempty"`
	PackID        string   `bson:"packId,omitempty" json:"packId,omitempty"`
	Notes         string   `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Good returns the verified good quantity when present, else the declared count
func (l ItemLine) Good() int {
	if l.ReceivedCount != nil {
		return *l.ReceivedCount
	}
	return l.Count
}

// Expected is the total quantity the line accounts for
func (l ItemLine) Expected() int {
	return l.Good() + l.BrokenCount + l.MissingCount
}

// SetLine is a quantity of a set recipe moved by a transaction, counted in whole sets
type SetLine struct {
	SetID            string `bson:"setId" json:"setId"`
	Quantity         int    `bson:"quantity" json:"quantity"`
	BrokenCount      int    `bson:"brokenCount" json:"brokenCount"`
	MissingCount     int    `bson:"missingCount" json:"missingCount"`
	ReceivedQuantity *int   `bson:"receivedQuantity,omitempty" json:"receivedQuantity,omitempty"`
	PackID           string `bson:"packId,omitempty" json:"packId,omitempty"`
	Notes            string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Good returns the verified good quantity when present, else the declared quantity
func (l SetLine) Good() int {
	if l.ReceivedQuantity != nil {
		return *l.ReceivedQuantity
	}
	return l.Quantity
}

// Expected is the total number of sets the line accounts for
func (l SetLine) Expected() int {
	return l.Good() + l.BrokenCount + l.MissingCount
}

// Transaction is an append-only ledger entry. It is written once by the
// transaction engine and mutated at most once more by verification.
type Transaction struct {
	ID                 string            `bson:"_id" json:"id"`
	Timestamp          time.Time         `bson:"timestamp" json:"timestamp"`
	Type               TransactionType   `bson:"type" json:"type"`
	Status             TransactionStatus `bson:"status" json:"status"`
	UnitID             string            `bson:"unitId" json:"unitId"`
	SourceUnitID       string            `bson:"sourceUnitId" json:"sourceUnitId"`
	DestUnitID         string            `bson:"destUnitId" json:"destUnitId"`
	Items              []ItemLine        `bson:"items" json:"items"`
	SetItems           []SetLine         `bson:"setItems" json:"setItems"`
	PackIDs            []string          `bson:"packIds,omitempty" json:"packIds,omitempty"`
	ExpectedReturnDate *time.Time        `bson:"expectedReturnDate,omitempty" json:"expectedReturnDate,omitempty"`
	ValidationStatus   ValidationStatus  `bson:"validationStatus,omitempty" json:"validationStatus,omitempty"`
	ValidatedAt        *time.Time        `bson:"validatedAt,omitempty" json:"validatedAt,omitempty"`
	ValidatedBy        string            `bson:"validatedBy,omitempty" json:"validatedBy,omitempty"`
	ValidationNotes    string            `bson:"validationNotes,omitempty" json:"validationNotes,omitempty"`
	CreatedBy          string            `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	DomainEvents       []DomainEvent     `bson:"-" json:"-"`
}

// TransactionParams carries everything needed to open a transaction
type TransactionParams struct {
	ID                 string
	Type               TransactionType
	UnitID             string
	CSSDUnitID         string
	Items              []ItemLine
	SetItems           []SetLine
	PackIDs            []string
	ExpectedReturnDate *time.Time
	CreatedBy          string
	Now                time.Time
}

// NewTransaction validates the request and opens a PENDING transaction
func NewTransaction(p TransactionParams) (*Transaction, error) {
	if p.ID == "" {
		return nil, ErrRequiredField
	}
	if !p.Type.IsValid() {
		return nil, ErrInvalidType
	}
	if p.UnitID == "" || p.UnitID == p.CSSDUnitID {
		return nil, ErrInvalidUnit
	}
	if len(p.Items) == 0 && len(p.SetItems) == 0 && len(p.PackIDs) == 0 {
		return nil, ErrEmptyTransaction
	}
	if p.Type == TransactionTypeCollect && len(p.PackIDs) > 0 {
		return nil, fmt.Errorf("%w: packs can only be distributed", ErrInvalidType)
	}
	if err := validateLines(p.Type, p.Items, p.SetItems, p.PackIDs); err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:        p.ID,
		Timestamp: p.Now,
		Type:      p.Type,
		Status:    TransactionStatusPending,
		UnitID:    p.UnitID,
		Items:     p.Items,
		SetItems:  p.SetItems,
		PackIDs:   p.PackIDs,
		CreatedBy: p.CreatedBy,
	}
	if tx.Items == nil {
		tx.Items = []ItemLine{}
	}
	if tx.SetItems == nil {
		tx.SetItems = []SetLine{}
	}

	if p.Type == TransactionTypeDistribute {
		tx.SourceUnitID, tx.DestUnitID = p.CSSDUnitID, p.UnitID
		tx.ExpectedReturnDate = p.ExpectedReturnDate
	} else {
		tx.SourceUnitID, tx.DestUnitID = p.UnitID, p.CSSDUnitID
	}
	return tx, nil
}

func validateLines(t TransactionType, items []ItemLine, sets []SetLine, packIDs []string) error {
	packs := make(map[string]bool, len(packIDs))
	for _, id := range packIDs {
		if id == "" {
			return ErrRequiredField
		}
		if packs[id] {
			return fmt.Errorf("%w: pack %s", ErrDuplicateLine, id)
		}
		packs[id] = true
	}

	seen := make(map[string]bool)
	check := func(kind, id, packID string, good, broken, missing int) error {
		if id == "" {
			return ErrRequiredField
		}
		if packID != "" && !packs[packID] {
			return fmt.Errorf("%w: line references unknown pack %s", ErrInvalidType, packID)
		}
		if good < 0 || broken < 0 || missing < 0 || good+broken+missing == 0 {
			return fmt.Errorf("%w: %s %s", ErrInvalidQuantity, kind, id)
		}
		if t == TransactionTypeDistribute && (broken > 0 || missing > 0) {
			return fmt.Errorf("%w: distribution cannot carry broken or missing counts", ErrInvalidQuantity)
		}
		key := kind + "|" + id + "|" + packID
		if seen[key] {
			return fmt.Errorf("%w: %s %s", ErrDuplicateLine, kind, id)
		}
		seen[key] = true
		return nil
	}

	for _, l := range items {
		if err := check("instrument", l.InstrumentID, l.PackID, l.Count, l.BrokenCount, l.MissingCount); err != nil {
			return err
		}
	}
	for _, l := range sets {
		if err := check("set", l.SetID, l.PackID, l.Quantity, l.BrokenCount, l.MissingCount); err != nil {
			return err
		}
	}
	return nil
}

// Complete marks a distribution as done. Distributions carry no verification outcome.
func (t *Transaction) Complete() error {
	if t.Status != TransactionStatusPending {
		return &InvalidStateError{Resource: "transaction", ID: t.ID, Current: string(t.Status), Required: string(TransactionStatusPending)}
	}
	t.Status = TransactionStatusCompleted
	t.AddDomainEvent(&TransactionCreatedEvent{
		TransactionID: t.ID,
		Type:          t.Type,
		UnitID:        t.UnitID,
		Status:        t.Status,
		CreatedAt:     t.Timestamp,
	})
	return nil
}

// CompleteWithDeclaredCounts accepts the counts declared at creation as the
// verified counts, for collections that skip physical verification.
func (t *Transaction) CompleteWithDeclaredCounts(by string, now time.Time) *DiscrepancySummary {
	for i := range t.Items {
		received := t.Items[i].Count
		t.Items[i].ReceivedCount = &received
	}
	for i := range t.SetItems {
		received := t.SetItems[i].Quantity
		t.SetItems[i].ReceivedQuantity = &received
	}
	summary := t.Summary()
	t.Status = TransactionStatusCompleted
	t.ValidationStatus = summary.Outcome()
	t.ValidatedAt = &now
	t.ValidatedBy = by
	t.AddDomainEvent(&TransactionCreatedEvent{
		TransactionID: t.ID,
		Type:          t.Type,
		UnitID:        t.UnitID,
		Status:        t.Status,
		CreatedAt:     t.Timestamp,
	})
	return summary
}

// Open records that a transaction was accepted and awaits verification
func (t *Transaction) Open() {
	t.AddDomainEvent(&TransactionCreatedEvent{
		TransactionID: t.ID,
		Type:          t.Type,
		UnitID:        t.UnitID,
		Status:        t.Status,
		CreatedAt:     t.Timestamp,
	})
}

// ItemVerification is the physical count for one instrument line
type ItemVerification struct {
	InstrumentID string `json:"instrumentId"`
	Received     int    `json:"received"`
	Broken       int    `json:"broken"`
	Missing      int    `json:"missing"`
	Notes        string `json:"notes,omitempty"`
}

// SetVerification is the physical count for one set line, in whole sets
type SetVerification struct {
	SetID    string `json:"setId"`
	Received int    `json:"received"`
	Broken   int    `json:"broken"`
	Missing  int    `json:"missing"`
	Notes    string `json:"notes,omitempty"`
}

// ApplyVerification checks every line against its physical count and, only
// when all lines balance, records the counts and completes the transaction.
// Lines without a verification keep the counts declared at creation.
func (t *Transaction) ApplyVerification(items []ItemVerification, sets []SetVerification, notes, by string, now time.Time) (*DiscrepancySummary, error) {
	if t.Status != TransactionStatusPending {
		return nil, &InvalidStateError{Resource: "transaction", ID: t.ID, Current: string(t.Status), Required: string(TransactionStatusPending)}
	}

	var mismatches []LineMismatch
	itemIdx := make(map[string]ItemVerification, len(items))
	for _, v := range items {
		if _, dup := itemIdx[v.InstrumentID]; dup {
			mismatches = append(mismatches, LineMismatch{ItemType: ItemTypeSingle, ItemID: v.InstrumentID, Received: v.Received, Broken: v.Broken, Missing: v.Missing, Duplicate: true})
			continue
		}
		itemIdx[v.InstrumentID] = v
	}
	setIdx := make(map[string]SetVerification, len(sets))
	for _, v := range sets {
		if _, dup := setIdx[v.SetID]; dup {
			mismatches = append(mismatches, LineMismatch{ItemType: ItemTypeSet, ItemID: v.SetID, Received: v.Received, Broken: v.Broken, Missing: v.Missing, Duplicate: true})
			continue
		}
		setIdx[v.SetID] = v
	}

	matched := make(map[string]bool)
	for _, l := range t.Items {
		v, ok := itemIdx[l.InstrumentID]
		if !ok {
			continue
		}
		matched["i|"+l.InstrumentID] = true
		if v.Received < 0 || v.Broken < 0 || v.Missing < 0 || v.Received+v.Broken+v.Missing != l.Expected() {
			mismatches = append(mismatches, LineMismatch{ItemType: ItemTypeSingle, ItemID: l.InstrumentID, Expected: l.Expected(), Received: v.Received, Broken: v.Broken, Missing: v.Missing})
		}
	}
	for _, l := range t.SetItems {
		v, ok := setIdx[l.SetID]
		if !ok {
			continue
		}
		matched["s|"+l.SetID] = true
		if v.Received < 0 || v.Broken < 0 || v.Missing < 0 || v.Received+v.Broken+v.Missing != l.Expected() {
			mismatches = append(mismatches, LineMismatch{ItemType: ItemTypeSet, ItemID: l.SetID, Expected: l.Expected(), Received: v.Received, Broken: v.Broken, Missing: v.Missing})
		}
	}
	for _, v := range items {
		if !matched["i|"+v.InstrumentID] {
			matched["i|"+v.InstrumentID] = true
			mismatches = append(mismatches, LineMismatch{ItemType: ItemTypeSingle, ItemID: v.InstrumentID, Received: v.Received, Broken: v.Broken, Missing: v.Missing})
		}
	}
	for _, v := range sets {
		if !matched["s|"+v.SetID] {
			matched["s|"+v.SetID] = true
			mismatches = append(mismatches, LineMismatch{ItemType: ItemTypeSet, ItemID: v.SetID, Received: v.Received, Broken: v.Broken, Missing: v.Missing})
		}
	}
	if len(mismatches) > 0 {
		return nil, &VerificationMismatchError{TransactionID: t.ID, Lines: mismatches}
	}

	for i := range t.Items {
		l := &t.Items[i]
		received := l.Count
		if v, ok := itemIdx[l.InstrumentID]; ok {
			received = v.Received
			l.BrokenCount, l.MissingCount = v.Broken, v.Missing
			if v.Notes != "" {
				l.Notes = v.Notes
			}
		}
		l.ReceivedCount = &received
	}
	for i := range t.SetItems {
		l := &t.SetItems[i]
		received := l.Quantity
		if v, ok := setIdx[l.SetID]; ok {
			received = v.Received
			l.BrokenCount, l.MissingCount = v.Broken, v.Missing
			if v.Notes != "" {
				l.Notes = v.Notes
			}
		}
		l.ReceivedQuantity = &received
	}

	summary := t.Summary()
	t.Status = TransactionStatusCompleted
	t.ValidationStatus = summary.Outcome()
	t.ValidatedAt = &now
	t.ValidatedBy = by
	t.ValidationNotes = notes

	t.AddDomainEvent(&TransactionValidatedEvent{
		TransactionID:    t.ID,
		UnitID:           t.UnitID,
		ValidationStatus: t.ValidationStatus,
		TotalBroken:      summary.TotalBroken,
		TotalMissing:     summary.TotalMissing,
		ValidatedBy:      by,
		ValidatedAt:      now,
	})
	return summary, nil
}

// Summary totals the line counts of the transaction
func (t *Transaction) Summary() *DiscrepancySummary {
	s := &DiscrepancySummary{Lines: make([]DiscrepancyLine, 0, len(t.Items)+len(t.SetItems))}
	for _, l := range t.Items {
		s.add(DiscrepancyLine{ItemType: ItemTypeSingle, ItemID: l.InstrumentID, Expected: l.Expected(), Received: l.Good(), Broken: l.BrokenCount, Missing: l.MissingCount, Notes: l.Notes})
	}
	for _, l := range t.SetItems {
		s.add(DiscrepancyLine{ItemType: ItemTypeSet, ItemID: l.SetID, Expected: l.Expected(), Received: l.Good(), Broken: l.BrokenCount, Missing: l.MissingCount, Notes: l.Notes})
	}
	return s
}

// SameRequest reports whether other describes the same movement as t.
// Line totals are compared, so a verified transaction still matches its
// original submission.
func (t *Transaction) SameRequest(other *Transaction) bool {
	return t.requestKey() == other.requestKey()
}

func (t *Transaction) requestKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s", t.Type, t.UnitID)

	items := make([]string, 0, len(t.Items))
	for _, l := range t.Items {
		if l.PackID != "" {
			continue
		}
		assets := append([]string(nil), l.AssetIDs...)
		sort.Strings(assets)
		items = append(items, fmt.Sprintf("%s:%d:%s", l.InstrumentID, l.Expected(), strings.Join(assets, ",")))
	}
	sort.Strings(items)

	sets := make([]string, 0, len(t.SetItems))
	for _, l := range t.SetItems {
		if l.PackID != "" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s:%d", l.SetID, l.Expected()))
	}
	sort.Strings(sets)

	packs := append([]string(nil), t.PackIDs...)
	sort.Strings(packs)

	fmt.Fprintf(&b, "|%s|%s|%s", strings.Join(items, ";"), strings.Join(sets, ";"), strings.Join(packs, ";"))
	return b.String()
}

// AddDomainEvent adds a domain event
func (t *Transaction) AddDomainEvent(event DomainEvent) {
	t.DomainEvents = append(t.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (t *Transaction) ClearDomainEvents() {
	t.DomainEvents = nil
}

// GetDomainEvents returns all domain events
func (t *Transaction) GetDomainEvents() []DomainEvent {
	return t.DomainEvents
}
