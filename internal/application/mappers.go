package application

import "github.com/raveagil-byte/steritrack-app-sub000/internal/domain"

// ToTransactionDTO converts a domain Transaction to TransactionDTO
func ToTransactionDTO(tx *domain.Transaction) *TransactionDTO {
	if tx == nil {
		return nil
	}

	items := make([]ItemLineDTO, 0, len(tx.Items))
	for _, l := range tx.Items {
		items = append(items, ItemLineDTO{
			InstrumentID:  l.InstrumentID,
			Count:         l.Count,
			BrokenCount:   l.BrokenCount,
			MissingCount:  l.MissingCount,
			ReceivedCount: l.ReceivedCount,
			AssetIDs:      l.AssetIDs,
			PackID:        l.PackID,
			Notes:         l.Notes,
		})
	}

	sets := make([]SetLineDTO, 0, len(tx.SetItems))
	for _, l := range tx.SetItems {
		sets = append(sets, SetLineDTO{
			SetID:            l.SetID,
			Quantity:         l.Quantity,
			BrokenCount:      l.BrokenCount,
			MissingCount:     l.MissingCount,
			ReceivedQuantity: l.ReceivedQuantity,
			PackID:           l.PackID,
			Notes:            l.Notes,
		})
	}

	return &TransactionDTO{
		ID:                 tx.ID,
		Timestamp:          tx.Timestamp,
		Type:               string(tx.Type),
		Status:             string(tx.Status),
		UnitID:             tx.UnitID,
		SourceUnitID:       tx.SourceUnitID,
		DestUnitID:         tx.DestUnitID,
		Items:              items,
		SetItems:           sets,
		PackIDs:            tx.PackIDs,
		ExpectedReturnDate: tx.ExpectedReturnDate,
		ValidationStatus:   string(tx.ValidationStatus),
		ValidatedAt:        tx.ValidatedAt,
		ValidatedBy:        tx.ValidatedBy,
		ValidationNotes:    tx.ValidationNotes,
		CreatedBy:          tx.CreatedBy,
	}
}

// ToDiscrepancySummaryDTO converts a summary
func ToDiscrepancySummaryDTO(s *domain.DiscrepancySummary) DiscrepancySummaryDTO {
	if s == nil {
		return DiscrepancySummaryDTO{Lines: []DiscrepancyLineDTO{}}
	}
	lines := make([]DiscrepancyLineDTO, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, DiscrepancyLineDTO{
			ItemType: string(l.ItemType),
			ItemID:   l.ItemID,
			Expected: l.Expected,
			Received: l.Received,
			Broken:   l.Broken,
			Missing:  l.Missing,
			Notes:    l.Notes,
		})
	}
	return DiscrepancySummaryDTO{
		TotalExpected: s.TotalExpected,
		TotalReceived: s.TotalReceived,
		TotalBroken:   s.TotalBroken,
		TotalMissing:  s.TotalMissing,
		Lines:         lines,
	}
}

// ToDiscrepancyReportDTO converts a domain DiscrepancyReport to DiscrepancyReportDTO
func ToDiscrepancyReportDTO(r *domain.DiscrepancyReport) *DiscrepancyReportDTO {
	if r == nil {
		return nil
	}
	return &DiscrepancyReportDTO{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		UnitID:        r.UnitID,
		Summary:       ToDiscrepancySummaryDTO(&r.Summary),
		Notes:         r.Notes,
		ReportedBy:    r.ReportedBy,
		CreatedAt:     r.CreatedAt,
	}
}

// ToPackDTO converts a domain SterilePack to PackDTO
func ToPackDTO(p *domain.SterilePack) *PackDTO {
	if p == nil {
		return nil
	}
	items := make([]PackItemDTO, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, PackItemDTO{ItemID: it.ItemID, ItemType: string(it.ItemType), Quantity: it.Quantity})
	}
	return &PackDTO{
		ID:            p.ID,
		Name:          p.Name,
		Type:          string(p.Type),
		Status:        string(p.Status),
		TargetUnitID:  p.TargetUnitID,
		Items:         items,
		CreatedBy:     p.CreatedBy,
		CreatedAt:     p.CreatedAt,
		SterilizedAt:  p.SterilizedAt,
		ExpiresAt:     p.ExpiresAt,
		DistributedAt: p.DistributedAt,
		TransactionID: p.TransactionID,
	}
}

func toComponentDTOs(items []domain.Component) []ComponentDTO {
	out := make([]ComponentDTO, 0, len(items))
	for _, it := range items {
		out = append(out, ComponentDTO{InstrumentID: it.InstrumentID, Quantity: it.Quantity})
	}
	return out
}

// ToSetDTO converts a domain InstrumentSet to SetDTO
func ToSetDTO(s *domain.InstrumentSet) *SetDTO {
	if s == nil {
		return nil
	}
	return &SetDTO{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Items:       toComponentDTOs(s.Items),
		PieceCount:  s.PieceCount(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// ToBatchDTO converts a domain SterilizationBatch to BatchDTO
func ToBatchDTO(b *domain.SterilizationBatch) *BatchDTO {
	if b == nil {
		return nil
	}
	return &BatchDTO{
		ID:         b.ID,
		Kind:       string(b.Kind),
		Operator:   b.Operator,
		Machine:    b.Machine,
		Status:     string(b.Status),
		Items:      toComponentDTOs(b.Items),
		CreatedAt:  b.CreatedAt,
		ExpiryDate: b.ExpiryDate,
	}
}

// ToInstrumentDTO converts a domain Instrument to InstrumentDTO
func ToInstrumentDTO(i *domain.Instrument) *InstrumentDTO {
	if i == nil {
		return nil
	}
	return &InstrumentDTO{
		ID:           i.ID,
		Name:         i.Name,
		Category:     i.Category,
		TotalStock:   i.TotalStock,
		CSSDStock:    i.CSSDStock,
		DirtyStock:   i.DirtyStock,
		PackingStock: i.PackingStock,
		BrokenStock:  i.BrokenStock,
		IsSerialized: i.IsSerialized,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

// ToAssetDTO converts a domain InstrumentAsset to AssetDTO
func ToAssetDTO(a *domain.InstrumentAsset) *AssetDTO {
	if a == nil {
		return nil
	}
	return &AssetDTO{
		ID:           a.ID,
		InstrumentID: a.InstrumentID,
		SerialNumber: a.SerialNumber,
		Status:       string(a.Status),
		Location:     a.Location,
		UpdatedAt:    a.UpdatedAt,
	}
}

// ToUnitDTO converts a domain Unit to UnitDTO
func ToUnitDTO(u *domain.Unit) *UnitDTO {
	if u == nil {
		return nil
	}
	return &UnitDTO{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt}
}
