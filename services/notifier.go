package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/smtp"
	"sync"
	"time"

	"github.com/stickerhub/sticker-shop-api/config"
)

// Mailer delivers a single email
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// EmailData is rendered into the HTML body of every notification
type EmailData struct {
	Subject string
	Message string
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif;">
    <h2>{{.Subject}}</h2>
    <p>{{.Message}}</p>
    <p>Sticker Shop</p>
  </body>
</html>`))

// RenderEmail renders the notification template
func RenderEmail(data EmailData) (string, error) {
	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return body.String(), nil
}

// SMTPMailer sends email through an SMTP relay
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	timeout  time.Duration
}

// NewSMTPMailer creates a mailer from the SMTP settings in cfg
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
		timeout:  10 * time.Second,
	}
}

// Send delivers one HTML email
func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	addr := net.JoinHostPort(m.host, m.port)
	conn, err := net.DialTimeout("tcp", addr, m.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(m.timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set SMTP deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	if m.username != "" {
		if err := client.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	message := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
		m.from, to, subject, htmlBody,
	)

	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if _, err := w.Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to write email: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return client.Quit()
}

// LogMailer writes emails to the log. Used when no SMTP host is configured.
type LogMailer struct{}

// Send logs the recipient and subject
func (LogMailer) Send(to, subject, _ string) error {
	log.Printf("Email to %s: %s (SMTP not configured, not sent)", to, subject)
	return nil
}

// Notifier sends user notifications in the background.
// Delivery failures are logged and never reported to the caller.
type Notifier struct {
	mailer Mailer
	wg     sync.WaitGroup
}

var notifierInstance *Notifier

// NewNotifier creates a notifier delivering through mailer
func NewNotifier(mailer Mailer) *Notifier {
	return &Notifier{mailer: mailer}
}

// InitNotifier creates the shared notifier, using SMTP when a host is configured
func InitNotifier(cfg *config.Config) *Notifier {
	var mailer Mailer = LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = NewSMTPMailer(cfg)
	}
	notifierInstance = NewNotifier(mailer)
	return notifierInstance
}

// GetNotifier returns the shared notifier
func GetNotifier() *Notifier {
	return notifierInstance
}

// SetNotifier sets the shared notifier (primarily for testing)
func SetNotifier(n *Notifier) {
	notifierInstance = n
}

// Notify renders and sends an email on a separate goroutine.
// It only returns an error when the email cannot be rendered.
func (n *Notifier) Notify(to, subject, message string) error {
	if n == nil || to == "" {
		return nil
	}

	body, err := RenderEmail(EmailData{Subject: subject, Message: message})
	if err != nil {
		return err
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.mailer.Send(to, subject, body); err != nil {
			log.Printf("Failed to send email to %s: %v", to, err)
		}
	}()
	return nil
}

// Wait blocks until all pending emails have been attempted
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
