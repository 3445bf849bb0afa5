package dispatch

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"log/slog"

	"github.com/dikshakatiyar/alerting-system/internal/config"
	"github.com/dikshakatiyar/alerting-system/internal/template"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

const (
	smtpSecurityNone     = "none"
	smtpSecurityStartTLS = "starttls"
	smtpSecurityTLS      = "tls"
)

// emailTemplateVars lists the placeholders usable in the subject and body
// templates.
var emailTemplateVars = []string{
	"alert_id",
	"alert_title",
	"alert_message",
	"severity",
	"kind",
	"user_name",
	"user_email",
}

// EmailChannel delivers notifications over SMTP using the configured
// subject and body templates.
type EmailChannel struct {
	cfg      config.EmailChannelConfig
	security string
	log      *slog.Logger
}

// NewEmailChannel constructs the SMTP channel. It rejects templates that
// reference unknown placeholders so misconfiguration surfaces at startup
// rather than on the first delivery.
func NewEmailChannel(cfg config.EmailChannelConfig, logger *slog.Logger) (*EmailChannel, error) {
	if err := template.Validate(cfg.SubjectTemplate, emailTemplateVars); err != nil {
		return nil, fmt.Errorf("invalid email subject template: %w", err)
	}
	if err := template.Validate(cfg.BodyTemplate, emailTemplateVars); err != nil {
		return nil, fmt.Errorf("invalid email body template: %w", err)
	}
	security := strings.ToLower(strings.TrimSpace(cfg.Security))
	switch security {
	case smtpSecurityNone, smtpSecurityStartTLS, smtpSecurityTLS:
	default:
		security = smtpSecurityStartTLS
	}
	return &EmailChannel{
		cfg:      cfg,
		security: security,
		log:      logger.With("channel", string(models.ChannelEmail)),
	}, nil
}

// Name implements Channel.
func (c *EmailChannel) Name() models.ChannelName {
	return models.ChannelEmail
}

// Deliver implements Channel by rendering the templates and sending a
// single message to the user's address.
func (c *EmailChannel) Deliver(ctx context.Context, alert *models.Alert, user *models.User, kind models.NotificationKind) error {
	if c.cfg.Host == "" || c.cfg.Port == 0 || c.cfg.From == "" {
		return fmt.Errorf("smtp is not configured")
	}
	recipient := strings.TrimSpace(user.Email)
	if recipient == "" {
		return fmt.Errorf("user %d has no email address", user.ID)
	}

	vars := map[string]string{
		"alert_id":      strconv.FormatInt(int64(alert.ID), 10),
		"alert_title":   alert.Title,
		"alert_message": alert.Message,
		"severity":      string(alert.Severity),
		"kind":          string(kind),
		"user_name":     user.FullName,
		"user_email":    user.Email,
	}
	subject, err := template.Render(c.cfg.SubjectTemplate, vars)
	if err != nil {
		return fmt.Errorf("failed to render email subject: %w", err)
	}
	body, err := template.Render(c.cfg.BodyTemplate, vars)
	if err != nil {
		return fmt.Errorf("failed to render email body: %w", err)
	}

	return c.send(ctx, recipient, c.buildMessage(recipient, subject, body))
}

func (c *EmailChannel) buildMessage(recipient, subject, body string) []byte {
	headers := []string{
		fmt.Sprintf("From: %s", c.cfg.From),
		fmt.Sprintf("To: %s", recipient),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}
	if c.cfg.ReplyTo != "" {
		headers = append(headers, fmt.Sprintf("Reply-To: %s", c.cfg.ReplyTo))
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)
}

func (c *EmailChannel) send(ctx context.Context, recipient string, message []byte) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(c.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(recipient); err != nil {
		return err
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write(message); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (c *EmailChannel) connect(ctx context.Context) (*smtp.Client, error) {
	address := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	dialer := &net.Dialer{}
	var (
		conn net.Conn
		err  error
	)
	if c.security == smtpSecurityTLS {
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config:    &tls.Config{ServerName: c.cfg.Host},
		}
		conn, err = tlsDialer.DialContext(ctx, "tcp", address)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, err
	}
	// The dispatcher sets the attempt deadline on ctx; mirror it on the
	// connection so SMTP reads cannot outlive the attempt.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if c.security == smtpSecurityStartTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			_ = client.Close()
			return nil, fmt.Errorf("smtp server does not support STARTTLS")
		}
		if err := client.StartTLS(&tls.Config{ServerName: c.cfg.Host}); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	if c.cfg.Username != "" {
		auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
		if err := client.Auth(auth); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}
