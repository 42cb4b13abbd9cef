package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// Event types
const (
	EventTransactionCreated   = "cssd.transaction.created"
	EventTransactionValidated = "cssd.transaction.validated"
	EventDiscrepancyReported  = "cssd.discrepancy.reported"
	EventPackCreated          = "cssd.pack.created"
	EventPackSterilized       = "cssd.pack.sterilized"
	EventPackExpired          = "cssd.pack.expired"
	EventItemsSterilized      = "cssd.items.sterilized"
	EventOverdueDetected      = "cssd.overdue.detected"
)

// TransactionCreatedEvent is published when a distribution or collection is recorded
type TransactionCreatedEvent struct {
	TransactionID string            `json:"transactionId"`
	Type          TransactionType   `json:"type"`
	UnitID        string            `json:"unitId"`
	Status        TransactionStatus `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
}

func (e *TransactionCreatedEvent) EventType() string     { return EventTransactionCreated }
func (e *TransactionCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// TransactionValidatedEvent is published when physical verification completes a transaction
type TransactionValidatedEvent struct {
	TransactionID    string           `json:"transactionId"`
	UnitID           string           `json:"unitId"`
	ValidationStatus ValidationStatus `json:"validationStatus"`
	TotalBroken      int              `json:"totalBroken"`
	TotalMissing     int              `json:"totalMissing"`
	ValidatedBy      string           `json:"validatedBy"`
	ValidatedAt      time.Time        `json:"validatedAt"`
}

func (e *TransactionValidatedEvent) EventType() string     { return EventTransactionValidated }
func (e *TransactionValidatedEvent) OccurredAt() time.Time { return e.ValidatedAt }

// DiscrepancyReportedEvent is sent to CSSD staff when a collection comes back short or damaged
type DiscrepancyReportedEvent struct {
	ReportID      string            `json:"reportId"`
	TransactionID string            `json:"transactionId"`
	UnitID        string            `json:"unitId"`
	TotalBroken   int               `json:"totalBroken"`
	TotalMissing  int               `json:"totalMissing"`
	Lines         []DiscrepancyLine `json:"lines"`
	ReportedBy    string            `json:"reportedBy"`
	ReportedAt    time.Time         `json:"reportedAt"`
}

func (e *DiscrepancyReportedEvent) EventType() string     { return EventDiscrepancyReported }
func (e *DiscrepancyReportedEvent) OccurredAt() time.Time { return e.ReportedAt }

// PackCreatedEvent is published when packing stock is bundled
type PackCreatedEvent struct {
	PackID       string    `json:"packId"`
	Name         string    `json:"name"`
	Type         PackType  `json:"type"`
	TargetUnitID string    `json:"targetUnitId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (e *PackCreatedEvent) EventType() string     { return EventPackCreated }
func (e *PackCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// PackSterilizedEvent is published when a pack leaves the sterilizer
type PackSterilizedEvent struct {
	PackID       string    `json:"packId"`
	Name         string    `json:"name"`
	ExpiresAt    time.Time `json:"expiresAt"`
	SterilizedAt time.Time `json:"sterilizedAt"`
}

func (e *PackSterilizedEvent) EventType() string     { return EventPackSterilized }
func (e *PackSterilizedEvent) OccurredAt() time.Time { return e.SterilizedAt }

// PackExpiredEvent is published when a sterile pack passes its shelf life
type PackExpiredEvent struct {
	PackID    string    `json:"packId"`
	Name      string    `json:"name"`
	ExpiredAt time.Time `json:"expiredAt"`
}

func (e *PackExpiredEvent) EventType() string     { return EventPackExpired }
func (e *PackExpiredEvent) OccurredAt() time.Time { return e.ExpiredAt }

// ItemsSterilizedEvent is published for every sterilizer cycle, successful or not
type ItemsSterilizedEvent struct {
	BatchID    string      `json:"batchId"`
	Status     BatchStatus `json:"status"`
	Machine    string      `json:"machine"`
	Operator   string      `json:"operator"`
	Items      []Component `json:"items"`
	ExpiryDate *time.Time  `json:"expiryDate,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func (e *ItemsSterilizedEvent) EventType() string     { return EventItemsSterilized }
func (e *ItemsSterilizedEvent) OccurredAt() time.Time { return e.CreatedAt }

// OverdueDetectedEvent is published by the overdue sweep for each unit holding overdue loans
type OverdueDetectedEvent struct {
	UnitID       string    `json:"unitId"`
	UnitName     string    `json:"unitName"`
	OverdueCount int       `json:"overdueCount"`
	Lines        int       `json:"lines"`
	DetectedAt   time.Time `json:"detectedAt"`
}

func (e *OverdueDetectedEvent) EventType() string     { return EventOverdueDetected }
func (e *OverdueDetectedEvent) OccurredAt() time.Time { return e.DetectedAt }
