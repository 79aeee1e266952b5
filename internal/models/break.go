package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BreakStatus string

const (
	BreakStatusDraft     BreakStatus = "DRAFT"
	BreakStatusUpcoming  BreakStatus = "UPCOMING"
	BreakStatusLive      BreakStatus = "LIVE"
	BreakStatusCompleted BreakStatus = "COMPLETED"
	BreakStatusSoldOut   BreakStatus = "SOLDOUT"
)

// Sellable reports whether spots belonging to a break in this status may
// still be purchased. Once a break goes live its spots are locked in.
func (s BreakStatus) Sellable() bool {
	switch s {
	case BreakStatusLive, BreakStatusCompleted, BreakStatusSoldOut:
		return false
	}
	return true
}

type Break struct {
	bun.BaseModel `bun:"table:breaks"`

	ID        string      `bun:"id,pk" json:"id"`
	EventID   string      `bun:"event_id,nullzero" json:"event_id"`
	Title     string      `bun:"title" json:"title"`
	Status    BreakStatus `bun:"status,notnull" json:"status"`
	CreatedAt time.Time   `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// BreakFollow links a user to a break they purchased into. The composite
// primary key makes duplicate follows a no-op at insert time.
type BreakFollow struct {
	bun.BaseModel `bun:"table:break_follows"`

	UserID    string    `bun:"user_id,pk" json:"user_id"`
	BreakID   string    `bun:"break_id,pk" json:"break_id"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
