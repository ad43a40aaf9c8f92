package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

// SMTPConfig holds the outbound mail server settings
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends invitation emails through an SMTP relay
type SMTPNotifier struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
	logger   *slog.Logger
}

func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.Port == "" || cfg.From == "" {
		return nil, errors.New("missing SMTP configuration")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPNotifier{cfg: cfg, sendMail: smtp.SendMail, logger: logger}, nil
}

func (n *SMTPNotifier) Name() string { return "smtp" }

func (n *SMTPNotifier) SendInvitation(ctx context.Context, msg domain.InvitationMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := renderInvitation(msg)
	if err != nil {
		return err
	}

	raw := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"utf-8\"\r\n"+
			"\r\n%s\r\n",
		n.cfg.From, msg.To, subject, body,
	))

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, n.cfg.Port)
	if err := n.sendMail(addr, auth, n.cfg.From, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}

	n.logger.Debug("invitation email sent",
		slog.String("employee_id", msg.EmployeeID),
		slog.String("relay", addr),
	)
	return nil
}
