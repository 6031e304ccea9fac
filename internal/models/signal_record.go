package models

import (
	"time"

	"gorm.io/gorm"
)

// Signal lifecycle statuses. A record starts pending, becomes open once price
// enters its entry zone, and ends in exactly one of the closed states.
const (
	StatusPending  = "pending"
	StatusOpen     = "open"
	StatusClosedTP = "closed_tp"
	StatusClosedSL = "closed_sl"
)

// Signal directions.
const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"
)

// Signal sources.
const (
	SourceAI        = "ai"
	SourceTechnical = "technical"
)

// SignalRecord is one generated trading signal and its lifecycle state.
// OpenPrice, ClosePrice, Pnl and ClosedAt stay nil until the corresponding
// transition happens; the background worker is the only writer after creation.
type SignalRecord struct {
	gorm.Model
	UserID         uint       `gorm:"index;not null" json:"user_id"`
	Symbol         string     `gorm:"index;not null" json:"symbol"`
	Timeframe      string     `gorm:"not null" json:"timeframe"`
	Source         string     `gorm:"not null" json:"source"`    // "ai" or "technical"
	Direction      string     `gorm:"not null" json:"direction"` // "BUY" or "SELL"
	Summary        string     `json:"summary"`                   // display string, e.g. "STRONG BUY"
	EntryZoneStart float64    `json:"entry_zone_start"`
	EntryZoneEnd   float64    `json:"entry_zone_end"`
	TakeProfit     float64    `json:"take_profit"`
	StopLoss       float64    `json:"stop_loss"`
	OpenPrice      *float64   `json:"open_price"`
	ClosePrice     *float64   `json:"close_price"`
	Pnl            *float64   `json:"pnl"`
	Status         string     `gorm:"index;default:pending" json:"status"`
	ClosedAt       *time.Time `json:"closed_at"`
}

// Active reports whether the record still needs monitoring.
func (s *SignalRecord) Active() bool {
	return s.Status == StatusPending || s.Status == StatusOpen
}
