package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
)

// DefaultShelfLife is how long a sterilized load stays sterile
const DefaultShelfLife = 30 * 24 * time.Hour

// Config holds the settings shared by the application services
type Config struct {
	CSSDUnitID string
	ShelfLife  time.Duration
	Clock      func() time.Time
	NewID      func() string
}

// DefaultConfig returns a Config using the wall clock and random UUIDs
func DefaultConfig() *Config {
	return &Config{
		CSSDUnitID: domain.DefaultCSSDUnitID,
		ShelfLife:  DefaultShelfLife,
		Clock:      func() time.Time { return time.Now().UTC() },
		NewID:      func() string { return uuid.New().String() },
	}
}

func (c *Config) now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock()
}

func (c *Config) id() string {
	if c.NewID == nil {
		return uuid.New().String()
	}
	return c.NewID()
}

func (c *Config) cssdUnit() string {
	if c.CSSDUnitID == "" {
		return domain.DefaultCSSDUnitID
	}
	return c.CSSDUnitID
}

func (c *Config) shelfLife() time.Duration {
	if c.ShelfLife <= 0 {
		return DefaultShelfLife
	}
	return c.ShelfLife
}
