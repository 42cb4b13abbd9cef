package domain

import (
	"fmt"
	"strings"
	"time"
)

// ItemType distinguishes a loose instrument from a set recipe on packs and ledger lines
type ItemType string

const (
	ItemTypeSingle ItemType = "SINGLE"
	ItemTypeSet    ItemType = "SET"
)

// IsValid checks if the item type is valid
func (t ItemType) IsValid() bool {
	return t == ItemTypeSingle || t == ItemTypeSet
}

// PackType describes what a pack bundles
type PackType string

const (
	PackTypeSingleItems PackType = "SINGLE_ITEMS"
	PackTypeSet         PackType = "SET"
	PackTypeMixed       PackType = "MIXED"
)

// IsValid checks if the pack type is valid
func (t PackType) IsValid() bool {
	switch t {
	case PackTypeSingleItems, PackTypeSet, PackTypeMixed:
		return true
	default:
		return false
	}
}

// PackStatus is the lifecycle state of a pack
type PackStatus string

const (
	PackStatusPacked      PackStatus = "PACKED"
	PackStatusSterilized  PackStatus = "STERILIZED"
	PackStatusDistributed PackStatus = "DISTRIBUTED"
	PackStatusExpired     PackStatus = "EXPIRED"
)

// IsValid checks if the pack status is valid
func (s PackStatus) IsValid() bool {
	switch s {
	case PackStatusPacked, PackStatusSterilized, PackStatusDistributed, PackStatusExpired:
		return true
	default:
		return false
	}
}

// PackItem is one line of a pack
type PackItem struct {
	ItemID   string   `bson:"itemId" json:"itemId"`
	ItemType ItemType `bson:"itemType" json:"itemType"`
	Quantity int      `bson:"quantity" json:"quantity"`
}

// SterilePack is an ad-hoc bundle made from packing stock. It is consumed once.
type SterilePack struct {
	ID            string        `bson:"_id" json:"id"`
	Name          string        `bson:"name" json:"name"`
	Type          PackType      `bson:"type" json:"type"`
	Status        PackStatus    `bson:"status" json:"status"`
	TargetUnitID  string        `bson:"targetUnitId,omitempty" json:"targetUnitId,omitempty"`
	Items         []PackItem    `bson:"items" json:"items"`
	CreatedBy     string        `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt     time.Time     `bson:"createdAt" json:"createdAt"`
	SterilizedAt  *time.Time    `bson:"sterilizedAt,omitempty" json:"sterilizedAt,omitempty"`
	ExpiresAt     *time.Time    `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	DistributedAt *time.Time    `bson:"distributedAt,omitempty" json:"distributedAt,omitempty"`
	TransactionID string        `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	DomainEvents  []DomainEvent `bson:"-" json:"-"`
}

// NewSterilePack creates a PACKED pack. Stock reservation is the caller's job.
func NewSterilePack(id, name string, packType PackType, items []PackItem, targetUnitID, createdBy string, now time.Time) (*SterilePack, error) {
	if id == "" || strings.TrimSpace(name) == "" {
		return nil, ErrRequiredField
	}
	if !packType.IsValid() {
		return nil, ErrInvalidType
	}
	if len(items) == 0 {
		return nil, ErrEmptyTransaction
	}

	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ItemID == "" {
			return nil, ErrRequiredField
		}
		if !it.ItemType.IsValid() {
			return nil, ErrInvalidType
		}
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		key := string(it.ItemType) + "|" + it.ItemID
		if seen[key] {
			return nil, fmt.Errorf("%w: %s %s", ErrDuplicateLine, it.ItemType, it.ItemID)
		}
		seen[key] = true

		if packType == PackTypeSingleItems && it.ItemType != ItemTypeSingle {
			return nil, fmt.Errorf("%w: %s pack cannot hold sets", ErrInvalidType, packType)
		}
		if packType == PackTypeSet && it.ItemType != ItemTypeSet {
			return nil, fmt.Errorf("%w: %s pack can only hold sets", ErrInvalidType, packType)
		}
	}

	p := &SterilePack{
		ID:           id,
		Name:         name,
		Type:         packType,
		Status:       PackStatusPacked,
		TargetUnitID: targetUnitID,
		Items:        items,
		CreatedBy:    createdBy,
		CreatedAt:    now,
	}
	p.AddDomainEvent(&PackCreatedEvent{PackID: id, Name: name, Type: packType, TargetUnitID: targetUnitID, CreatedAt: now})
	return p, nil
}

// Sterilize moves a PACKED pack to STERILIZED and starts its shelf life
func (p *SterilePack) Sterilize(now time.Time, shelfLife time.Duration) error {
	if p.Status != PackStatusPacked {
		return &InvalidStateError{Resource: "pack", ID: p.ID, Current: string(p.Status), Required: string(PackStatusPacked)}
	}
	expires := now.Add(shelfLife)
	p.Status = PackStatusSterilized
	p.SterilizedAt = &now
	p.ExpiresAt = &expires
	p.AddDomainEvent(&PackSterilizedEvent{PackID: p.ID, Name: p.Name, ExpiresAt: expires, SterilizedAt: now})
	return nil
}

// MarkDistributed consumes a sterile pack in a distribution
func (p *SterilePack) MarkDistributed(transactionID string, now time.Time) error {
	if p.Status != PackStatusSterilized {
		return &InvalidStateError{Resource: "pack", ID: p.ID, Current: string(p.Status), Required: string(PackStatusSterilized)}
	}
	if p.IsPastExpiry(now) {
		return &InvalidStateError{Resource: "pack", ID: p.ID, Current: string(PackStatusExpired), Required: string(PackStatusSterilized)}
	}
	p.Status = PackStatusDistributed
	p.DistributedAt = &now
	p.TransactionID = transactionID
	return nil
}

// IsPastExpiry reports whether the sterile shelf life has run out at now
func (p *SterilePack) IsPastExpiry(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// Expire flags a sterile pack whose shelf life has run out. It reports whether anything changed.
func (p *SterilePack) Expire(now time.Time) bool {
	if p.Status != PackStatusSterilized || !p.IsPastExpiry(now) {
		return false
	}
	p.Status = PackStatusExpired
	return true
}

// AddDomainEvent adds a domain event
func (p *SterilePack) AddDomainEvent(event DomainEvent) {
	p.DomainEvents = append(p.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (p *SterilePack) ClearDomainEvents() {
	p.DomainEvents = nil
}

// GetDomainEvents returns all domain events
func (p *SterilePack) GetDomainEvents() []DomainEvent {
	return p.DomainEvents
}
