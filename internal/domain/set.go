package domain

import (
	"strings"
	"time"
)

// Component is a quantity of one instrument
type Component struct {
	InstrumentID string `bson:"instrumentId" json:"instrumentId"`
	Quantity     int    `bson:"quantity" json:"quantity"`
}

// InstrumentSet is a named recipe of instruments. It holds no stock;
// every use expands it into its components.
type InstrumentSet struct {
	ID          string      `bson:"_id" json:"id"`
	Name        string      `bson:"name" json:"name"`
	Description string      `bson:"description,omitempty" json:"description,omitempty"`
	Items       []Component `bson:"items" json:"items"`
	CreatedAt   time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// NewInstrumentSet creates a recipe. Duplicate instruments are merged in first-seen order.
func NewInstrumentSet(id, name, description string, items []Component, now time.Time) (*InstrumentSet, error) {
	if id == "" || strings.TrimSpace(name) == "" {
		return nil, ErrRequiredField
	}
	if len(items) == 0 {
		return nil, ErrRequiredField
	}
	for _, it := range items {
		if it.InstrumentID == "" {
			return nil, ErrRequiredField
		}
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	return &InstrumentSet{
		ID:          id,
		Name:        name,
		Description: description,
		Items:       MergeComponents(items),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Expand multiplies the recipe by qty. qty of zero yields nothing.
func (s *InstrumentSet) Expand(qty int) []Component {
	if qty <= 0 {
		return nil
	}
	out := make([]Component, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, Component{InstrumentID: it.InstrumentID, Quantity: it.Quantity * qty})
	}
	return out
}

// PieceCount is the number of instruments in one set
func (s *InstrumentSet) PieceCount() int {
	total := 0
	for _, it := range s.Items {
		total += it.Quantity
	}
	return total
}

// MergeComponents sums quantities per instrument keeping first-seen order
func MergeComponents(items []Component) []Component {
	index := make(map[string]int, len(items))
	out := make([]Component, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.InstrumentID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.InstrumentID] = len(out)
		out = append(out, it)
	}
	return out
}
