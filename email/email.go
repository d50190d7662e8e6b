package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/CharlesToronto/brotherstudio/config"
	"github.com/CharlesToronto/brotherstudio/model"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNotConfigured is returned when contact delivery is switched off
	ErrNotConfigured = errors.New("contact form is not configured")
)

// Mailer delivers contact form submissions to the studio inbox
type Mailer interface {
	SendContact(ctx context.Context, msg model.ContactMessage) error
}

// sendFunc matches smtp.SendMail
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService handles sending emails
type EmailService struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	ToEmail      string
	Enabled      bool

	send sendFunc
}

// NewEmailService creates a new email service from config
func NewEmailService(cfg config.EmailConfig) *EmailService {
	return &EmailService{
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
		FromEmail:    cfg.FromEmail,
		FromName:     cfg.FromName,
		ToEmail:      cfg.ToEmail,
		Enabled:      cfg.Enabled,
		send:         smtp.SendMail,
	}
}

// SendContact emails a contact submission to the studio with the visitor
// as Reply-To.
func (es *EmailService) SendContact(ctx context.Context, msg model.ContactMessage) error {
	if !es.Enabled || es.SMTPHost == "" || es.ToEmail == "" {
		log.Warn().
			Str("name", msg.Name).
			Str("email", msg.Email).
			Msg("Email service disabled - contact request not delivered")
		return ErrNotConfigured
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("New website contact - %s", msg.Name)
	body, contentType, err := buildContactBody(msg)
	if err != nil {
		return fmt.Errorf("build contact email: %w", err)
	}

	return es.sendEmail(es.ToEmail, msg.Email, subject, contentType, body)
}

// contactText renders the plain-text part
func contactText(msg model.ContactMessage) string {
	phone := msg.Phone
	if phone == "" {
		phone = "-"
	}

	lines := []string{
		"Name: " + msg.Name,
		"Email: " + msg.Email,
		"Phone: " + phone,
		"Submitted: " + msg.SubmittedAt.UTC().Format(time.RFC3339),
		"",
		"Message:",
		msg.Message,
	}
	return strings.Join(lines, "\n")
}

// contactHTML renders the HTML part. Every visitor-supplied value is
// escaped.
func contactHTML(msg model.ContactMessage) string {
	phone := msg.Phone
	if phone == "" {
		phone = "-"
	}

	return fmt.Sprintf(`
<div style="font-family:Arial,Helvetica,sans-serif;font-size:14px;line-height:1.5;color:#111">
  <p><strong>New contact request</strong></p>
  <p>
    <strong>Name:</strong> %s<br />
    <strong>Email:</strong> %s<br />
    <strong>Phone:</strong> %s<br />
    <strong>Submitted:</strong> %s
  </p>
  <p><strong>Message:</strong></p>
  <p style="white-space:pre-wrap">%s</p>
</div>
`,
		html.EscapeString(msg.Name),
		html.EscapeString(msg.Email),
		html.EscapeString(phone),
		html.EscapeString(msg.SubmittedAt.UTC().Format(time.RFC3339)),
		html.EscapeString(msg.Message),
	)
}

// buildContactBody assembles a multipart/alternative body with text and
// HTML parts
func buildContactBody(msg model.ContactMessage) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", contactText(msg)},
		{"text/html; charset=UTF-8", contactHTML(msg)},
	}

	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), "multipart/alternative; boundary=" + mw.Boundary(), nil
}

// headerValue strips line breaks so visitor input cannot add headers
func headerValue(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

// sendEmail sends an email using SMTP
func (es *EmailService) sendEmail(to, replyTo, subject, contentType string, body []byte) error {
	from := fmt.Sprintf("%s <%s>", es.FromName, es.FromEmail)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	if replyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", headerValue(replyTo))
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(subject)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: %s\r\n", contentType)
	msg.WriteString("\r\n")
	msg.Write(body)

	var auth smtp.Auth
	if es.SMTPUsername != "" {
		auth = smtp.PlainAuth("", es.SMTPUsername, es.SMTPPassword, es.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%s", es.SMTPHost, es.SMTPPort)

	if err := es.send(addr, auth, es.FromEmail, []string{to}, msg.Bytes()); err != nil {
		log.Error().Err(err).Str("to", to).Msg("Failed to send email")
		return err
	}

	log.Info().Str("to", to).Str("subject", subject).Msg("Email sent successfully")
	return nil
}
