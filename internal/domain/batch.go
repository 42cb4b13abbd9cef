package domain

import "time"

// BatchKind is the processing step a batch records
type BatchKind string

const (
	BatchKindWash      BatchKind = "WASH"
	BatchKindSterilize BatchKind = "STERILIZE"
)

// BatchStatus is the machine outcome of a cycle
type BatchStatus string

const (
	BatchStatusSuccess BatchStatus = "SUCCESS"
	BatchStatusFailed  BatchStatus = "FAILED"
)

// IsValid checks if the batch status is valid
func (s BatchStatus) IsValid() bool {
	return s == BatchStatusSuccess || s == BatchStatusFailed
}

// SterilizationBatch is the audit record of one wash or sterilize cycle
type SterilizationBatch struct {
	ID         string      `bson:"_id" json:"id"`
	Kind       BatchKind   `bson:"kind" json:"kind"`
	Operator   string      `bson:"operator" json:"operator"`
	Machine    string      `bson:"machine,omitempty" json:"machine,omitempty"`
	Status     BatchStatus `bson:"status" json:"status"`
	Items      []Component `bson:"items" json:"items"`
	CreatedAt  time.Time   `bson:"createdAt" json:"createdAt"`
	ExpiryDate *time.Time  `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
}

// NewWashBatch records a wash cycle
func NewWashBatch(id, operator string, items []Component, now time.Time) (*SterilizationBatch, error) {
	if err := validateBatchItems(items); err != nil {
		return nil, err
	}
	return &SterilizationBatch{
		ID:        id,
		Kind:      BatchKindWash,
		Operator:  operator,
		Status:    BatchStatusSuccess,
		Items:     MergeComponents(items),
		CreatedAt: now,
	}, nil
}

// NewSterilizeBatch records a sterilizer cycle. Only a successful cycle has an expiry date.
func NewSterilizeBatch(id, operator, machine string, status BatchStatus, items []Component, now time.Time, shelfLife time.Duration) (*SterilizationBatch, error) {
	if !status.IsValid() {
		return nil, ErrInvalidType
	}
	if err := validateBatchItems(items); err != nil {
		return nil, err
	}
	b := &SterilizationBatch{
		ID:        id,
		Kind:      BatchKindSterilize,
		Operator:  operator,
		Machine:   machine,
		Status:    status,
		Items:     MergeComponents(items),
		CreatedAt: now,
	}
	if status == BatchStatusSuccess {
		expiry := now.Add(shelfLife)
		b.ExpiryDate = &expiry
	}
	return b, nil
}

func validateBatchItems(items []Component) error {
	if len(items) == 0 {
		return ErrEmptyTransaction
	}
	for _, it := range items {
		if it.InstrumentID == "" {
			return ErrRequiredField
		}
		if it.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}
