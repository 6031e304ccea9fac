package server

import (
	"errors"
	"fmt"
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

type adminHandler struct {
	logger  *zap.Logger
	users   *repository.UserRepository
	tickets *repository.TicketRepository
	mailer  mailer.MailerInterface
	hub     *ws.Hub
}

func newAdminHandler(deps Deps) *adminHandler {
	return &adminHandler{
		logger:  deps.Logger,
		users:   deps.Users,
		tickets: deps.Tickets,
		mailer:  deps.Mailer,
		hub:     deps.Hub,
	}
}

func (h *adminHandler) register(e *echo.Echo, authMW, adminMW echo.MiddlewareFunc) {
	g := e.Group("/api/admin", authMW, adminMW)
	g.GET("/users", h.listUsers)
	g.PUT("/users/:id/role", h.updateUserRole)
	g.DELETE("/users/:id", h.deleteUser)
	g.GET("/tickets", h.listTickets)
	g.GET("/tickets/:id", h.getTicket)
	g.POST("/tickets/:id/reply", h.replyToTicket)
	g.PUT("/tickets/:id/status", h.updateTicketStatus)
}

func (h *adminHandler) listUsers(c echo.Context) error {
	users, err := h.users.List()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

type updateRoleRequest struct {
	IsAdmin bool `json:"isAdmin"`
}

func (h *adminHandler) updateUserRole(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID.")
	}
	if uint(id) == currentClaims(c).UserID {
		return echo.NewHTTPError(http.StatusBadRequest, "Admins cannot change their own role.")
	}

	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "isAdmin flag is required.")
	}

	if err := h.users.SetAdmin(uint(id), req.IsAdmin); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found.")
		}
		return err
	}
	h.logger.Info("User role updated",
		zap.Uint("user_id", uint(id)),
		zap.Bool("is_admin", req.IsAdmin),
		zap.Uint("changed_by", currentClaims(c).UserID),
	)
	return c.JSON(http.StatusOK, map[string]string{"message": "User role updated successfully."})
}

func (h *adminHandler) deleteUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID.")
	}
	if uint(id) == currentClaims(c).UserID {
		return echo.NewHTTPError(http.StatusBadRequest, "Admins cannot delete their own account.")
	}

	if err := h.users.DeleteCascade(uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found.")
		}
		return err
	}
	h.logger.Info("User deleted",
		zap.Uint("user_id", uint(id)),
		zap.Uint("deleted_by", currentClaims(c).UserID),
	)
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("User with ID %d and all associated data has been deleted.", id),
	})
}

func (h *adminHandler) listTickets(c echo.Context) error {
	tickets, err := h.tickets.ListAll()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tickets)
}

func (h *adminHandler) getTicket(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid ticket ID.")
	}

	ticket, err := h.tickets.Get(uint(id), 0)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Ticket not found.")
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

type adminReplyRequest struct {
	Message string `json:"message"`
}

func (h *adminHandler) replyToTicket(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid ticket ID.")
	}

	var req adminReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Reply message cannot be empty.")
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Reply message cannot be empty.")
	}

	ticket, err := h.tickets.Get(uint(id), 0)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Ticket not found.")
		}
		return err
	}

	claims := currentClaims(c)
	reply := &models.TicketReply{
		TicketID: ticket.ID,
		UserID:   claims.UserID,
		Message:  req.Message,
	}
	if err := h.tickets.AddReply(reply); err != nil {
		return err
	}
	// An admin response takes a fresh ticket into in_progress.
	if err := h.tickets.TransitionStatus(ticket.ID, models.TicketOpen, models.TicketInProgress); err != nil {
		h.logger.Error("Failed to update ticket status after admin reply", zap.Error(err))
	}

	h.notifyOwner(ticket, claims.Username)
	return c.JSON(http.StatusCreated, map[string]string{"message": "Reply sent successfully."})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *adminHandler) updateTicketStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid ticket ID.")
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Status is required.")
	}
	if req.Status != models.TicketOpen && req.Status != models.TicketInProgress && req.Status != models.TicketClosed {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid status value.")
	}

	if _, err := h.tickets.Get(uint(id), 0); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Ticket not found.")
		}
		return err
	}
	if err := h.tickets.UpdateStatus(uint(id), req.Status); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Ticket #%d status updated to %s.", id, req.Status),
	})
}

// notifyOwner emails the ticket owner about the admin reply and pushes a
// live NEW_REPLY event if they are connected.
func (h *adminHandler) notifyOwner(ticket *repository.TicketView, replierName string) {
	owner, err := h.users.FindByID(ticket.UserID)
	if err != nil {
		h.logger.Error("Failed to load ticket owner", zap.Error(err))
		return
	}
	if err := h.mailer.SendReplyNotification(owner.Email, ticket.ID, replierName); err != nil {
		h.logger.Error("Failed to send reply notification", zap.Error(err))
	}
	if h.hub != nil {
		h.hub.NotifyUsers([]uint{owner.ID}, map[string]any{
			"type": "NEW_REPLY",
			"data": map[string]any{"ticketId": ticket.ID},
		})
	}
}
