package models

import "gorm.io/gorm"

// TicketReply is a single message in a support ticket thread.
// UserID may belong to the ticket owner or to an admin.
type TicketReply struct {
	gorm.Model
	TicketID uint   `gorm:"index;not null" json:"ticket_id"`
	UserID   uint   `gorm:"not null" json:"user_id"`
	Message  string `gorm:"not null" json:"message"`
}
