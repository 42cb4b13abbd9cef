package domain

import (
	"sort"
	"time"
)

// MillisPerDay is the divisor used to turn an overdue duration into whole days
const MillisPerDay = 86_400_000

// QueueKey identifies one FIFO queue of loans
type QueueKey struct {
	UnitID   string
	ItemType ItemType
	ItemID   string
}

// DistributionLine is one distributed line and how much of it is still out
type DistributionLine struct {
	TransactionID      string
	UnitID             string
	ItemType           ItemType
	ItemID             string
	Timestamp          time.Time
	ExpectedReturnDate *time.Time
	Count              int
	Remaining          int
}

// Key returns the queue the line belongs to
func (d DistributionLine) Key() QueueKey {
	return QueueKey{UnitID: d.UnitID, ItemType: d.ItemType, ItemID: d.ItemID}
}

// IsOverdue reports whether part of the line is still out past its due date
func (d DistributionLine) IsOverdue(now time.Time) bool {
	return d.Remaining > 0 && d.ExpectedReturnDate != nil && d.ExpectedReturnDate.Before(now)
}

// CollectionLine is one collected line
type CollectionLine struct {
	TransactionID string
	UnitID        string
	ItemType      ItemType
	ItemID        string
	Timestamp     time.Time
	Count         int
}

// Key returns the queue the line drains
func (c CollectionLine) Key() QueueKey {
	return QueueKey{UnitID: c.UnitID, ItemType: c.ItemType, ItemID: c.ItemID}
}

// DistributionLines flattens completed distributions into ledger lines.
// Pack contents were recorded on the transaction as ordinary lines.
func DistributionLines(txs []*Transaction) []DistributionLine {
	var out []DistributionLine
	for _, tx := range txs {
		if tx.Type != TransactionTypeDistribute || tx.Status != TransactionStatusCompleted {
			continue
		}
		for _, l := range tx.Items {
			out = append(out, DistributionLine{
				TransactionID: tx.ID, UnitID: tx.UnitID, ItemType: ItemTypeSingle, ItemID: l.InstrumentID,
				Timestamp: tx.Timestamp, ExpectedReturnDate: tx.ExpectedReturnDate, Count: l.Count, Remaining: l.Count,
			})
		}
		for _, l := range tx.SetItems {
			out = append(out, DistributionLine{
				TransactionID: tx.ID, UnitID: tx.UnitID, ItemType: ItemTypeSet, ItemID: l.SetID,
				Timestamp: tx.Timestamp, ExpectedReturnDate: tx.ExpectedReturnDate, Count: l.Quantity, Remaining: l.Quantity,
			})
		}
	}
	return out
}

// CollectionLines flattens completed collections. A line returns everything it
// accounts for: good, broken and missing items all close the loan.
func CollectionLines(txs []*Transaction) []CollectionLine {
	var out []CollectionLine
	for _, tx := range txs {
		if tx.Type != TransactionTypeCollect || tx.Status != TransactionStatusCompleted {
			continue
		}
		for _, l := range tx.Items {
			out = append(out, CollectionLine{TransactionID: tx.ID, UnitID: tx.UnitID, ItemType: ItemTypeSingle, ItemID: l.InstrumentID, Timestamp: tx.Timestamp, Count: l.Expected()})
		}
		for _, l := range tx.SetItems {
			out = append(out, CollectionLine{TransactionID: tx.ID, UnitID: tx.UnitID, ItemType: ItemTypeSet, ItemID: l.SetID, Timestamp: tx.Timestamp, Count: l.Expected()})
		}
	}
	return out
}

// ReconcileFIFO drains every collection from the oldest matching distributions
// first and returns the distributions with their Remaining quantity. Inputs are
// not modified. Collections with no matching queue are ignored.
func ReconcileFIFO(distributions []DistributionLine, collections []CollectionLine) []DistributionLine {
	lines := make([]DistributionLine, len(distributions))
	copy(lines, distributions)
	for i := range lines {
		lines[i].Remaining = lines[i].Count
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Timestamp.Before(lines[j].Timestamp) })

	cols := make([]CollectionLine, len(collections))
	copy(cols, collections)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Timestamp.Before(cols[j].Timestamp) })

	queues := make(map[QueueKey][]int)
	for i, d := range lines {
		queues[d.Key()] = append(queues[d.Key()], i)
	}

	for _, c := range cols {
		queue := queues[c.Key()]
		left := c.Count
		for len(queue) > 0 && left > 0 {
			d := &lines[queue[0]]
			take := min(left, d.Remaining)
			d.Remaining -= take
			left -= take
			if d.Remaining == 0 {
				queue = queue[1:]
			}
		}
		queues[c.Key()] = queue
	}
	return lines
}

// DaysOverdue is the number of whole days between the due date and now
func DaysOverdue(now, expected time.Time) int {
	return int(now.Sub(expected).Milliseconds() / MillisPerDay)
}

// OverdueLines keeps the lines still out past their due date
func OverdueLines(lines []DistributionLine, now time.Time) []DistributionLine {
	var out []DistributionLine
	for _, l := range lines {
		if l.IsOverdue(now) {
			out = append(out, l)
		}
	}
	return out
}

// OutstandingLines keeps the lines with anything still out, due or not
func OutstandingLines(lines []DistributionLine) []DistributionLine {
	var out []DistributionLine
	for _, l := range lines {
		if l.Remaining > 0 {
			out = append(out, l)
		}
	}
	return out
}
