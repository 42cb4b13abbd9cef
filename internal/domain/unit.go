package domain

import (
	"strings"
	"time"
)

// DefaultCSSDUnitID is the virtual unit representing the sterile processing department
const DefaultCSSDUnitID = "cssd"

// Unit is a care unit (ward, theatre, clinic) that borrows instruments
type Unit struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// NewUnit creates a unit directory entry
func NewUnit(id, name string, now time.Time) (*Unit, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(name) == "" {
		return nil, ErrRequiredField
	}
	return &Unit{ID: id, Name: name, CreatedAt: now}, nil
}
