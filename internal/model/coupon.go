package model

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a time-windowed percentage discount. Nil StartsAt/EndsAt means
// the window is open on that side.
type Coupon struct {
	ID       uuid.UUID  `json:"id" db:"id"`
	Code     string     `json:"codigo" db:"codigo"`
	Percent  float64    `json:"percentual" db:"percentual"`
	StartsAt *time.Time `json:"inicio,omitempty" db:"inicio"`
	EndsAt   *time.Time `json:"fim,omitempty" db:"fim"`
	Active   bool       `json:"ativo" db:"ativo"`
}

// ValidAt reports whether the coupon can be applied at the given instant.
func (c *Coupon) ValidAt(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return false
	}
	return true
}
