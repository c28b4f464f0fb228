// Package mailer delivers account-verification email, either
// synchronously over SMTP or through the mq queue consumed by the
// worker command.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/contactsbook/apiserver/config"
	"github.com/jordan-wright/email"
)

// VerificationMail is the payload carried on the mail queue.
type VerificationMail struct {
	To       string `json:"to"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// SMTPSender delivers verification mail over SMTP.
type SMTPSender struct {
	cfg     config.SMTPConfig
	baseURL string
	logger  *slog.Logger
}

// NewSMTPSender constructs a sender. The base URL is used to build the
// confirmation link embedded in the message body.
func NewSMTPSender(cfg config.SMTPConfig, baseURL string, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{
		cfg:     cfg,
		baseURL: baseURL,
		logger:  logger,
	}
}

// SendVerification delivers the confirmation link for the given token.
func (s *SMTPSender) SendVerification(ctx context.Context, to, username, token string) error {
	return s.Deliver(ctx, VerificationMail{To: to, Username: username, Token: token})
}

// Deliver sends a single verification message.
func (s *SMTPSender) Deliver(_ context.Context, mail VerificationMail) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{mail.To}
	e.Subject = "Confirm your email"

	link := fmt.Sprintf("%s/api/auth/confirmed_email/%s", s.baseURL, mail.Token)
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Please confirm your email address by following the link below:\n\n"+
			"%s\n\n"+
			"If you did not sign up, you can ignore this message.\n",
		mail.Username, link,
	)
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := e.Send(addr, auth); err != nil {
		s.logger.Error("failed to send verification mail", "to", mail.To, "error", err)
		return fmt.Errorf("send verification mail: %w", err)
	}

	s.logger.Info("verification mail sent", "to", mail.To)
	return nil
}
