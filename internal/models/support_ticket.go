package models

import "gorm.io/gorm"

// Support ticket statuses.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketClosed     = "closed"
)

// SupportTicket is a user-submitted support request.
type SupportTicket struct {
	gorm.Model
	UserID  uint   `gorm:"index;not null" json:"user_id"`
	Subject string `gorm:"not null" json:"subject"`
	Message string `gorm:"not null" json:"message"`
	Status  string `gorm:"default:open" json:"status"`
}
