package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// MailMessage is a single outbound email
type MailMessage struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers one email. Implementations: SendGridMailer, SMTPMailer, LogMailer.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

const mailFromName = "Course Marketplace"

// SendGridMailer sends through the SendGrid v3 API
type SendGridMailer struct {
	client *sendgrid.Client
	from   string
}

func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey), from: from}
}

func (m *SendGridMailer) Send(ctx context.Context, msg MailMessage) error {
	email := mail.NewSingleEmail(
		mail.NewEmail(mailFromName, m.from),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		msg.HTML,
	)
	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid http %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

// SMTPMailer sends over SMTP with STARTTLS
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

// IsConfigured checks if SMTP is properly configured
func (m *SMTPMailer) IsConfigured() bool {
	return m.username != "" && m.password != ""
}

func (m *SMTPMailer) Send(ctx context.Context, msg MailMessage) error {
	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", mailFromName, m.from),
		"To":           msg.To,
		"Subject":      msg.Subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var message strings.Builder
	for _, k := range keys {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, headers[k]))
	}
	message.WriteString("\r\n")
	message.WriteString(msg.HTML)

	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := smtp.Dial(fmt.Sprintf("%s:%d", m.host, m.port))
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if err := conn.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := conn.Mail(m.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := conn.Rcpt(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return conn.Quit()
}

// LogMailer only logs. Used when no mail provider is configured.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log.With("service", "LogMailer")}
}

func (m *LogMailer) Send(_ context.Context, msg MailMessage) error {
	m.log.Info("mail provider not configured, dropping email", "subject", msg.Subject, "body", msg.Text)
	return nil
}
