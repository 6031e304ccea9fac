package repository

import (
	"errors"
	"fmt"
	"time"

	"forex-signal-go/internal/models"

	"gorm.io/gorm"
)

// TicketView is a ticket joined with its author's username.
type TicketView struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ReplyView is a reply joined with its author's username and role.
type ReplyView struct {
	ID        uint      `json:"id"`
	TicketID  uint      `json:"ticket_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketRepository is the persistence boundary for support tickets.
type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ticket *models.SupportTicket) error {
	if err := r.db.Create(ticket).Error; err != nil {
		return fmt.Errorf("failed to create support ticket: %w", err)
	}
	return nil
}

// ListForUser returns a user's tickets, newest first.
func (r *TicketRepository) ListForUser(userID uint) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// ListAll returns every ticket with its author, newest first.
func (r *TicketRepository) ListAll() ([]TicketView, error) {
	var tickets []TicketView
	err := r.db.Model(&models.SupportTicket{}).
		Select("support_tickets.id, support_tickets.user_id, users.username, support_tickets.subject, support_tickets.message, support_tickets.status, support_tickets.created_at").
		Joins("JOIN users ON users.id = support_tickets.user_id").
		Order("support_tickets.created_at DESC").
		Scan(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list all tickets: %w", err)
	}
	return tickets, nil
}

// Get returns one ticket with its author. ownerID restricts the lookup to
// that owner; pass 0 for the admin view.
func (r *TicketRepository) Get(id, ownerID uint) (*TicketView, error) {
	query := r.db.Model(&models.SupportTicket{}).
		Select("support_tickets.id, support_tickets.user_id, users.username, support_tickets.subject, support_tickets.message, support_tickets.status, support_tickets.created_at").
		Joins("JOIN users ON users.id = support_tickets.user_id").
		Where("support_tickets.id = ?", id)
	if ownerID != 0 {
		query = query.Where("support_tickets.user_id = ?", ownerID)
	}

	var ticket TicketView
	err := query.First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch ticket %d: %w", id, err)
	}
	return &ticket, nil
}

// Replies returns a ticket's replies in conversation order.
func (r *TicketRepository) Replies(ticketID uint) ([]ReplyView, error) {
	var replies []ReplyView
	err := r.db.Model(&models.TicketReply{}).
		Select("ticket_replies.id, ticket_replies.ticket_id, ticket_replies.user_id, users.username, users.is_admin, ticket_replies.message, ticket_replies.created_at").
		Joins("JOIN users ON users.id = ticket_replies.user_id").
		Where("ticket_replies.ticket_id = ?", ticketID).
		Order("ticket_replies.created_at ASC").
		Scan(&replies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch replies for ticket %d: %w", ticketID, err)
	}
	return replies, nil
}

func (r *TicketRepository) AddReply(reply *models.TicketReply) error {
	if err := r.db.Create(reply).Error; err != nil {
		return fmt.Errorf("failed to add reply: %w", err)
	}
	return nil
}

// UpdateStatus sets a ticket's status unconditionally.
func (r *TicketRepository) UpdateStatus(id uint, status string) error {
	if status != models.TicketOpen && status != models.TicketInProgress && status != models.TicketClosed {
		return fmt.Errorf("invalid ticket status %q", status)
	}
	if err := r.db.Model(&models.SupportTicket{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}
	return nil
}

// TransitionStatus moves a ticket to a new status only when it currently has
// the expected one. A user reply reopens closed tickets; an admin reply
// marks open tickets in progress.
func (r *TicketRepository) TransitionStatus(id uint, from, to string) error {
	err := r.db.Model(&models.SupportTicket{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to).Error
	if err != nil {
		return fmt.Errorf("failed to transition ticket status: %w", err)
	}
	return nil
}
