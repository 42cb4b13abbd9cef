package cloudevents

import (
	"time"
)

// EventType constants for CSSD domain events
const (
	// Transaction events
	TransactionCreated   = "cssd.transaction.created"
	TransactionValidated = "cssd.transaction.validated"
	DiscrepancyReported  = "cssd.discrepancy.reported"

	// Pack events
	PackCreated    = "cssd.pack.created"
	PackSterilized = "cssd.pack.sterilized"
	PackExpired    = "cssd.pack.expired"

	// Processing events
	ItemsSterilized = "cssd.items.sterilized"

	// Reconciliation events
	OverdueDetected = "cssd.overdue.detected"
)

// Source constants for event sources
const (
	SourceCSSDService = "/cssd-service"
	SourceCSSDWorker  = "/cssd-worker"
)

// Extension attribute names
const (
	ExtCorrelationID = "cssdcorrelationid"
	ExtWorkflowID    = "cssdworkflowid"
	ExtUnitID        = "cssdunitid"
)

// CSSDCloudEvent represents a CloudEvents v1.0 compliant event for the CSSD ledger
type CSSDCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// CSSD-specific extensions
	CorrelationID string `json:"cssdcorrelationid,omitempty"`
	WorkflowID    string `json:"cssdworkflowid,omitempty"`
	UnitID        string `json:"cssdunitid,omitempty"`
}

// DiscrepancyLineData is one broken or missing line of a discrepancy notification
type DiscrepancyLineData struct {
	ItemType string `json:"itemType"`
	ItemID   string `json:"itemId"`
	Expected int    `json:"expected"`
	Received int    `json:"received"`
	Broken   int    `json:"broken"`
	Missing  int    `json:"missing"`
	Notes    string `json:"notes,omitempty"`
}

// DiscrepancyReportedData represents the data payload for DiscrepancyReported event
type DiscrepancyReportedData struct {
	ReportID      string                `json:"reportId"`
	TransactionID string                `json:"transactionId"`
	UnitID        string                `json:"unitId"`
	TotalBroken   int                   `json:"totalBroken"`
	TotalMissing  int                   `json:"totalMissing"`
	Lines         []DiscrepancyLineData `json:"lines"`
	ReportedBy    string                `json:"reportedBy,omitempty"`
	ReportedAt    time.Time             `json:"reportedAt"`
}

// OverdueDetectedData represents the data payload for OverdueDetected event
type OverdueDetectedData struct {
	UnitID       string    `json:"unitId"`
	UnitName     string    `json:"unitName"`
	OverdueCount int       `json:"overdueCount"`
	Lines        int       `json:"lines"`
	DetectedAt   time.Time `json:"detectedAt"`
}
