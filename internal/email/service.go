// Package email mirrors urgent inbox notifications to SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"

	"tenderhub/internal/inbox"
)

// Config holds SMTP configuration.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Service provides email sending.
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new email service.
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendEmail sends a plain text email.
func (s *Service) SendEmail(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		from,
		subject,
		body,
	))

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
}

// SendHTMLEmail sends an HTML email with a plain text fallback part.
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-tenderhub"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

var notificationTemplate = template.Must(template.New("notification").Parse(`
<div style="font-family: sans-serif; max-width: 560px;">
  <h2 style="color: #14532d;">{{.Title}}</h2>
  <p>{{.Body}}</p>
  {{range .Actions}}<p><a href="{{.URL}}">{{.Label}}</a></p>{{end}}
  <hr>
  <p style="color: #666; font-size: 12px;">You received this because of your TenderHub notification settings.</p>
</div>`))

// MirrorMessage renders an inbox message as HTML email and sends it to the
// recipient.
func (s *Service) MirrorMessage(recipient string, msg inbox.Message) error {
	var body bytes.Buffer
	err := notificationTemplate.Execute(&body, struct {
		Title   string
		Body    string
		Actions []inbox.Action
	}{
		Title:   msg.Title,
		Body:    msg.Message,
		Actions: msg.Actions,
	})
	if err != nil {
		return fmt.Errorf("render notification email: %w", err)
	}
	return s.SendHTMLEmail([]string{recipient}, "[TenderHub] "+msg.Title, body.String())
}

// AttachTo subscribes the mirror to an inbox service: urgent messages are
// forwarded by email as they are created. Delivery failures are logged,
// never propagated; the inbox write already succeeded.
func (s *Service) AttachTo(messages *inbox.Service) func() {
	return messages.OnEvent(func(event inbox.Event) {
		if event.Type != inbox.EventMessageAdded {
			return
		}
		if event.Message.Category != inbox.CategoryUrgent {
			return
		}
		if !s.IsConfigured() {
			return
		}
		go func() {
			if err := s.MirrorMessage(event.Recipient, event.Message); err != nil {
				log.Printf("email: mirror %s to %s: %v", event.Message.ID, event.Recipient, err)
			}
		}()
	})
}
