package mailer

import (
	"fmt"

	"forex-signal-go/internal/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// MailerInterface sends the transactional notifications of the platform.
// All methods are best-effort; callers never fail a request over email.
type MailerInterface interface {
	SendTicketNotification(recipients []string, ticketID uint, subject, username string) error
	SendReplyNotification(recipient string, ticketID uint, replierName string) error
	SendPasswordReset(recipient, resetURL string) error
}

// Mailer delivers over SMTP. With no host configured it degrades to a
// no-op that only logs, so development setups work without a mail account.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

var _ MailerInterface = (*Mailer)(nil)

func New(cfg config.Mail, logger *zap.Logger) *Mailer {
	m := &Mailer{from: cfg.From, logger: logger}
	if cfg.Host != "" {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	} else {
		logger.Warn("SMTP host not configured, email notifications are disabled")
	}
	return m
}

func (m *Mailer) send(to []string, subject, body string) error {
	if m.dialer == nil {
		m.logger.Info("Email delivery skipped (SMTP disabled)",
			zap.Strings("to", to),
			zap.String("subject", subject),
		)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendTicketNotification alerts the admins to a new ticket or user reply.
func (m *Mailer) SendTicketNotification(recipients []string, ticketID uint, subject, username string) error {
	if len(recipients) == 0 {
		m.logger.Debug("No admin emails to notify", zap.Uint("ticket_id", ticketID))
		return nil
	}
	body := fmt.Sprintf(
		"<p>A new ticket or reply has been submitted by user: <strong>%s</strong>.</p>"+
			"<p><strong>Ticket ID:</strong> %d</p>"+
			"<p><strong>Subject:</strong> %s</p>"+
			"<p>Please log in to the admin dashboard to respond.</p>",
		username, ticketID, subject,
	)
	return m.send(recipients, fmt.Sprintf("[New/Updated Ticket #%d] %s", ticketID, subject), body)
}

// SendReplyNotification tells the ticket owner an admin replied.
func (m *Mailer) SendReplyNotification(recipient string, ticketID uint, replierName string) error {
	if recipient == "" {
		m.logger.Debug("No recipient email for reply notification", zap.Uint("ticket_id", ticketID))
		return nil
	}
	body := fmt.Sprintf(
		"<p>Hello,</p><p><strong>%s</strong> has replied to your support ticket #%d.</p>"+
			"<p>Please log in to view the reply.</p>",
		replierName, ticketID,
	)
	return m.send([]string{recipient}, fmt.Sprintf("Re: Your Support Ticket #%d has a new reply", ticketID), body)
}

// SendPasswordReset mails the reset link.
func (m *Mailer) SendPasswordReset(recipient, resetURL string) error {
	if recipient == "" {
		return nil
	}
	body := fmt.Sprintf(
		"<p>You requested a password reset. Click the link below to reset your password:</p>"+
			"<p><a href=%q>%s</a></p>"+
			"<p>If you did not request this, please ignore this email.</p>",
		resetURL, resetURL,
	)
	return m.send([]string{recipient}, "Your Password Reset Request", body)
}
