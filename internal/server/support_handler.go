package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"forex-signal-go/internal/mailer"
	"forex-signal-go/internal/models"
	"forex-signal-go/internal/repository"
	"forex-signal-go/internal/ws"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type supportHandler struct {
	logger  *zap.Logger
	tickets *repository.TicketRepository
	users   *repository.UserRepository
	mailer  mailer.MailerInterface
	hub     *ws.Hub
}

func newSupportHandler(deps Deps) *supportHandler {
	return &supportHandler{
		logger:  deps.Logger,
		tickets: deps.Tickets,
		users:   deps.Users,
		mailer:  deps.Mailer,
		hub:     deps.Hub,
	}
}

func (h *supportHandler) register(e *echo.Echo, authMW echo.MiddlewareFunc) {
	g := e.Group("/api/support", authMW)
	g.POST("/tickets", h.createTicket)
	g.GET("/tickets", h.listTickets)
	g.GET("/tickets/:id", h.getTicket)
	g.POST("/tickets/:id/reply", h.replyToTicket)
}

type createTicketRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (h *supportHandler) createTicket(c echo.Context) error {
	var req createTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Subject and message are required.")
	}
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if req.Subject == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Subject and message are required.")
	}

	claims := currentClaims(c)
	ticket := &models.SupportTicket{
		UserID:  claims.UserID,
		Subject: req.Subject,
		Message: req.Message,
		Status:  models.TicketOpen,
	}
	if err := h.tickets.Create(ticket); err != nil {
		return err
	}

	h.notifyAdmins(ticket.ID, ticket.Subject, claims.Username)
	return c.JSON(http.StatusCreated, map[string]any{
		"message":  "Support ticket created successfully.",
		"ticketId": ticket.ID,
	})
}

func (h *supportHandler) listTickets(c echo.Context) error {
	tickets, err := h.tickets.ListForUser(currentClaims(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tickets)
}

func (h *supportHandler) getTicket(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid ticket ID.")
	}

	ticket, err := h.tickets.Get(uint(id), currentClaims(c).UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Ticket not found or you do not have permission to view it.")
		}
		return err
	}
	replies, err := h.tickets.Replies(ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"ticket":  ticket,
		"replies": replies,
	})
}

type replyRequest struct {
	Message string `json:"message"`
}

func (h *supportHandler) replyToTicket(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid ticket ID.")
	}

	var req replyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Reply message cannot be empty.")
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Reply message cannot be empty.")
	}

	claims := currentClaims(c)
	ticket, err := h.tickets.Get(uint(id), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Ticket not found or you do not have permission to view it.")
		}
		return err
	}

	reply := &models.TicketReply{
		TicketID: ticket.ID,
		UserID:   claims.UserID,
		Message:  req.Message,
	}
	if err := h.tickets.AddReply(reply); err != nil {
		return err
	}
	// A reply on a closed ticket reopens the conversation.
	if err := h.tickets.TransitionStatus(ticket.ID, models.TicketClosed, models.TicketInProgress); err != nil {
		h.logger.Error("Failed to update ticket status after reply", zap.Error(err))
	}

	h.notifyAdmins(ticket.ID, ticket.Subject, claims.Username)
	return c.JSON(http.StatusCreated, map[string]string{"message": "Reply sent successfully."})
}

// notifyAdmins emails every admin and pushes a live NEW_REPLY event to
// any connected admin sessions. Failures are logged, never surfaced.
func (h *supportHandler) notifyAdmins(ticketID uint, subject, username string) {
	emails, err := h.users.AdminEmails()
	if err != nil {
		h.logger.Error("Failed to load admin emails", zap.Error(err))
	} else if err := h.mailer.SendTicketNotification(emails, ticketID, subject, username); err != nil {
		h.logger.Error("Failed to send ticket notification", zap.Error(err))
	}

	if h.hub == nil {
		return
	}
	adminIDs, err := h.users.AdminIDs()
	if err != nil {
		h.logger.Error("Failed to load admin IDs", zap.Error(err))
		return
	}
	h.hub.NotifyUsers(adminIDs, map[string]any{
		"type": "NEW_REPLY",
		"data": map[string]any{"ticketId": ticketID},
	})
}
