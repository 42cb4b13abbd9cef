package domain

import "time"

// DiscrepancyLine is the verified condition of one transaction line
type DiscrepancyLine struct {
	ItemType ItemType `bson:"itemType" json:"itemType"`
	ItemID   string   `bson:"itemId" json:"itemId"`
	Expected int      `bson:"expected" json:"expected"`
	Received int      `bson:"received" json:"received"`
	Broken   int      `bson:"broken" json:"broken"`
	Missing  int      `bson:"missing" json:"missing"`
	Notes    string   `bson:"notes,omitempty" json:"notes,omitempty"`
}

// HasDiscrepancy reports whether anything came back broken or did not come back
func (l DiscrepancyLine) HasDiscrepancy() bool {
	return l.Broken > 0 || l.Missing > 0
}

// DiscrepancySummary totals a verified transaction
type DiscrepancySummary struct {
	TotalExpected int               `bson:"totalExpected" json:"totalExpected"`
	TotalReceived int               `bson:"totalReceived" json:"totalReceived"`
	TotalBroken   int               `bson:"totalBroken" json:"totalBroken"`
	TotalMissing  int               `bson:"totalMissing" json:"totalMissing"`
	Lines         []DiscrepancyLine `bson:"lines" json:"lines"`
}

func (s *DiscrepancySummary) add(l DiscrepancyLine) {
	s.TotalExpected += l.Expected
	s.TotalReceived += l.Received
	s.TotalBroken += l.Broken
	s.TotalMissing += l.Missing
	s.Lines = append(s.Lines, l)
}

// Outcome is VERIFIED when nothing is broken or missing, PARTIAL otherwise
func (s *DiscrepancySummary) Outcome() ValidationStatus {
	if s.TotalBroken > 0 || s.TotalMissing > 0 {
		return ValidationStatusPartial
	}
	return ValidationStatusVerified
}

// DiscrepantLines returns only the lines with broken or missing items
func (s *DiscrepancySummary) DiscrepantLines() []DiscrepancyLine {
	var out []DiscrepancyLine
	for _, l := range s.Lines {
		if l.HasDiscrepancy() {
			out = append(out, l)
		}
	}
	return out
}

// DiscrepancyReport is the record kept for a PARTIAL verification
type DiscrepancyReport struct {
	ID            string             `bson:"_id" json:"id"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	UnitID        string             `bson:"unitId" json:"unitId"`
	Summary       DiscrepancySummary `bson:"summary" json:"summary"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
	ReportedBy    string             `bson:"reportedBy,omitempty" json:"reportedBy,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// NewDiscrepancyReport builds a report for a verified transaction. Only discrepant lines are kept.
func NewDiscrepancyReport(id string, tx *Transaction, summary *DiscrepancySummary, notes, by string, now time.Time) *DiscrepancyReport {
	kept := *summary
	kept.Lines = summary.DiscrepantLines()
	return &DiscrepancyReport{
		ID:            id,
		TransactionID: tx.ID,
		UnitID:        tx.UnitID,
		Summary:       kept,
		Notes:         notes,
		ReportedBy:    by,
		CreatedAt:     now,
	}
}
