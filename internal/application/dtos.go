package application

import "time"

// ItemLineDTO represents an instrument line of a transaction
type ItemLineDTO struct {
	InstrumentID  string   `json:"instrumentId"`
	Count         int      `json:"count"`
	BrokenCount   int      `json:"brokenCount"`
	MissingCount  int      `json:"missingCount"`
	ReceivedCount *int     `json:"receivedCount,omitempty"`
	AssetIDs      []string `json:"assetIds,omitempty"`
	PackID        string   `json:"packId,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// SetLineDTO represents a set line of a transaction
type SetLineDTO struct {
	SetID            string `json:"setId"`
	Quantity         int    `json:"quantity"`
	BrokenCount      int    `json:"brokenCount"`
	MissingCount     int    `json:"missingCount"`
	ReceivedQuantity *int   `json:"receivedQuantity,omitempty"`
	PackID           string `json:"packId,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// TransactionDTO represents a ledger transaction in responses
type TransactionDTO struct {
	ID                 string        `json:"id"`
	Timestamp          time.Time     `json:"timestamp"`
	Type               string        `json:"type"`
	Status             string        `json:"status"`
	UnitID             string        `json:"unitId"`
	SourceUnitID       string        `json:"sourceUnitId"`
	DestUnitID         string        `json:"destUnitId"`
	Items              []ItemLineDTO `json:"items"`
	SetItems           []SetLineDTO  `json:"setItems"`
	PackIDs            []string      `json:"packIds,omitempty"`
	ExpectedReturnDate *time.Time    `json:"expectedReturnDate,omitempty"`
	ValidationStatus   string        `json:"validationStatus,omitempty"`
	ValidatedAt        *time.Time    `json:"validatedAt,omitempty"`
	ValidatedBy        string        `json:"validatedBy,omitempty"`
	ValidationNotes    string        `json:"validationNotes,omitempty"`
	CreatedBy          string        `json:"createdBy,omitempty"`
}

// TransactionListDTO is one page of transactions
type TransactionListDTO struct {
	Transactions []TransactionDTO `json:"transactions"`
	Total        int64            `json:"total"`
	Page         int              `json:"page"`
	PageSize     int              `json:"pageSize"`
}

// DiscrepancyLineDTO represents the verified condition of one line
type DiscrepancyLineDTO struct {
	ItemType string `json:"itemType"`
	ItemID   string `json:"itemId"`
	Expected int    `json:"expected"`
	Received int    `json:"received"`
	Broken   int    `json:"broken"`
	Missing  int    `json:"missing"`
	Notes    string `json:"notes,omitempty"`
}

// DiscrepancySummaryDTO totals a verification
type DiscrepancySummaryDTO struct {
	TotalExpected int                  `json:"totalExpected"`
	TotalReceived int                  `json:"totalReceived"`
	TotalBroken   int                  `json:"totalBroken"`
	TotalMissing  int                  `json:"totalMissing"`
	Lines         []DiscrepancyLineDTO `json:"lines"`
}

// ValidationResultDTO is the outcome of verifying a transaction
type ValidationResultDTO struct {
	TransactionID      string                `json:"transactionId"`
	ValidationStatus   string                `json:"validationStatus"`
	DiscrepancySummary DiscrepancySummaryDTO `json:"discrepancySummary"`
	ReportID           string                `json:"reportId,omitempty"`
}

// DiscrepancyReportDTO represents a stored discrepancy report
type DiscrepancyReportDTO struct {
	ID            string                `json:"id"`
	TransactionID string                `json:"transactionId"`
	UnitID        string                `json:"unitId"`
	Summary       DiscrepancySummaryDTO `json:"summary"`
	Notes         string                `json:"notes,omitempty"`
	ReportedBy    string                `json:"reportedBy,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
}

// UnavailableItemDTO is one instrument a set cannot be supplied with
type UnavailableItemDTO struct {
	InstrumentID   string `json:"instrumentId"`
	InstrumentName string `json:"instrumentName"`
	Required       int    `json:"required"`
	Available      int    `json:"available"`
}

// SetAvailabilityDTO answers a set availability query
type SetAvailabilityDTO struct {
	SetID       string               `json:"setId"`
	Quantity    int                  `json:"quantity"`
	Available   bool                 `json:"available"`
	Unavailable []UnavailableItemDTO `json:"unavailable"`
}

// OverdueInstrumentDTO is one overdue loan
type OverdueInstrumentDTO struct {
	ItemType           string    `json:"itemType"`
	ItemID             string    `json:"itemId"`
	ItemName           string    `json:"itemName"`
	TransactionID      string    `json:"transactionId"`
	DistributedAt      time.Time `json:"distributedAt"`
	ExpectedReturnDate time.Time `json:"expectedReturnDate"`
	Remaining          int       `json:"remaining"`
	DaysOverdue        int       `json:"daysOverdue"`
}

// UnitOverdueDTO groups the overdue loans of one unit
type UnitOverdueDTO struct {
	UnitID       string                 `json:"unitId"`
	UnitName     string                 `json:"unitName"`
	OverdueCount int                    `json:"overdueCount"`
	Instruments  []OverdueInstrumentDTO `json:"instruments"`
}

// UnitOverdueStatusDTO answers whether a unit holds anything overdue
type UnitOverdueStatusDTO struct {
	UnitID       string `json:"unitId"`
	HasOverdue   bool   `json:"hasOverdue"`
	OverdueCount int    `json:"overdueCount"`
}

// OutstandingLineDTO is a loan with pieces still out, due or not
type OutstandingLineDTO struct {
	ItemType           string     `json:"itemType"`
	ItemID             string     `json:"itemId"`
	TransactionID      string     `json:"transactionId"`
	DistributedAt      time.Time  `json:"distributedAt"`
	ExpectedReturnDate *time.Time `json:"expectedReturnDate,omitempty"`
	Count              int        `json:"count"`
	Remaining          int        `json:"remaining"`
}

// PackItemDTO represents a pack line
type PackItemDTO struct {
	ItemID   string `json:"itemId"`
	ItemType string `json:"itemType"`
	Quantity int    `json:"quantity"`
}

// OlderPackDTO points at an older pack of the same content
type OlderPackDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// FIFOWarningDTO advises using an older pack first
type FIFOWarningDTO struct {
	Message   string       `json:"message"`
	OlderPack OlderPackDTO `json:"olderPack"`
}

// PackDTO represents a pack in responses
type PackDTO struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	TargetUnitID  string          `json:"targetUnitId,omitempty"`
	Items         []PackItemDTO   `json:"items"`
	CreatedBy     string          `json:"createdBy,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	SterilizedAt  *time.Time      `json:"sterilizedAt,omitempty"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
	DistributedAt *time.Time      `json:"distributedAt,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	FIFOWarning   *FIFOWarningDTO `json:"fifoWarning,omitempty"`
}

// ComponentDTO is a quantity of one instrument
type ComponentDTO struct {
	InstrumentID string `json:"instrumentId"`
	Quantity     int    `json:"quantity"`
}

// SetDTO represents a set recipe
type SetDTO struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Items       []ComponentDTO `json:"items"`
	PieceCount  int            `json:"pieceCount"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// BatchDTO represents a wash or sterilize cycle
type BatchDTO struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Operator   string         `json:"operator"`
	Machine    string         `json:"machine,omitempty"`
	Status     string         `json:"status"`
	Items      []ComponentDTO `json:"items"`
	CreatedAt  time.Time      `json:"createdAt"`
	ExpiryDate *time.Time     `json:"expiryDate,omitempty"`
}

// SterilizeResultDTO is the outcome of a sterilizer run
type SterilizeResultDTO struct {
	BatchID    string     `json:"batchId"`
	Status     string     `json:"status"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

// InstrumentDTO represents an instrument and its stock pools
type InstrumentDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	TotalStock   int       `json:"totalStock"`
	CSSDStock    int       `json:"cssdStock"`
	DirtyStock   int       `json:"dirtyStock"`
	PackingStock int       `json:"packingStock"`
	BrokenStock  int       `json:"brokenStock"`
	IsSerialized bool      `json:"isSerialized"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AssetDTO represents a serialized asset
type AssetDTO struct {
	ID           string    `json:"id"`
	InstrumentID string    `json:"instrumentId"`
	SerialNumber string    `json:"serialNumber"`
	Status       string    `json:"status"`
	Location     string    `json:"location"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UnitDTO represents a care unit
type UnitDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// UnitStockDTO is what a unit holds of one instrument
type UnitStockDTO struct {
	InstrumentID   string    `json:"instrumentId"`
	InstrumentName string    `json:"instrumentName"`
	UnitID         string    `json:"unitId"`
	Quantity       int       `json:"quantity"`
	MaxStock       *int      `json:"maxStock,omitempty"`
	BelowPar       bool      `json:"belowPar"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// StockDriftDTO is one instrument whose books do not balance
type StockDriftDTO struct {
	InstrumentID string `json:"instrumentId"`
	Name         string `json:"name"`
	TotalStock   int    `json:"totalStock"`
	HeldAtCSSD   int    `json:"heldAtCssd"`
	AtUnits      int    `json:"atUnits"`
	InPacks      int    `json:"inPacks"`
	Expected     int    `json:"expected"`
	Drift        int    `json:"drift"`
}

// AuditReportDTO is the result of a stock consistency audit
type AuditReportDTO struct {
	CheckedAt   time.Time       `json:"checkedAt"`
	Instruments int             `json:"instruments"`
	Consistent  bool            `json:"consistent"`
	Drifts      []StockDriftDTO `json:"drifts"`
}
