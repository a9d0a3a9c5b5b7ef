// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package delivery mails the rendered digest over SMTP.
package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-digest/pkg/types"
)

const defaultAttempts = 3

// SendBaseDelay is the wait before the first resend; it doubles per attempt.
// Tests shrink it.
var SendBaseDelay = 2 * time.Second

// ErrNoPassword is returned when no SMTP password was configured.
var ErrNoPassword = errors.New("smtp password is required (SMTP_PASSWORD, .env, or .secrets/smtp-password)")

// Message is one digest mail.
type Message struct {
	Subject     string
	FromName    string
	FromAddress string
	To          []string
	Text        string
	HTML        string
}

// Sender delivers messages to one SMTP server.
type Sender struct {
	Host     string
	Port     int
	UseTLS   bool
	Username string
	Password string
	Attempts int
	Logger   *slog.Logger

	// deliver sends a built message; replaced in tests.
	deliver func(ctx context.Context, from string, to []string, msg []byte) error
}

// NewSender builds a Sender from the email section. The sender address doubles
// as the login name.
func NewSender(cfg types.EmailConfig, password string, logger *slog.Logger) (*Sender, error) {
	if password == "" {
		return nil, ErrNoPassword
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sender{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		UseTLS:   cfg.UseTLS,
		Username: cfg.FromAddress,
		Password: password,
		Attempts: defaultAttempts,
		Logger:   logger,
	}
	s.deliver = s.smtpSend
	return s, nil
}

// MessageFor assembles the digest message from the email section.
func MessageFor(cfg types.EmailConfig, subject, text, html string) Message {
	return Message{
		Subject:     subject,
		FromName:    cfg.FromName,
		FromAddress: cfg.FromAddress,
		To:          cfg.ToAddresses,
		Text:        text,
		HTML:        html,
	}
}

// Send builds m and delivers it, retrying with exponential backoff.
func (s *Sender) Send(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return fmt.Errorf("no recipients")
	}
	msg, err := BuildMessage(m, uuid.NewString())
	if err != nil {
		return err
	}

	attempts := s.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	delay := SendBaseDelay
	var lastErr error
	for i := range attempts {
		if i > 0 {
			s.Logger.Warn("retrying email send", "attempt", i+1, "wait", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		lastErr = s.deliver(ctx, m.FromAddress, m.To, msg)
		if lastErr == nil {
			s.Logger.Info("email sent", "recipients", len(m.To))
			return nil
		}
	}
	return fmt.Errorf("sending email after %d attempts: %w", attempts, lastErr)
}

// smtpSend opens a connection (STARTTLS when UseTLS, implicit TLS otherwise),
// logs in, and sends msg.
func (s *Sender) smtpSend(ctx context.Context, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	tlsConfig := &tls.Config{ServerName: s.Host}

	var conn net.Conn
	var err error
	if s.UseTLS {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		d := tls.Dialer{Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake with %s: %w", addr, err)
	}
	defer c.Close()

	if s.UseTLS {
		if err := c.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	return s.session(c, from, to, msg)
}

// session runs AUTH, MAIL, RCPT, and DATA on an established client.
func (s *Sender) session(c *smtp.Client, from string, to []string, msg []byte) error {
	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
			return fmt.Errorf("smtp login: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing message: %w", err)
	}
	return c.Quit()
}

// BuildMessage renders m as a multipart/alternative RFC 5322 message with a
// plain-text part followed by an HTML part.
func BuildMessage(m Message, boundary string) ([]byte, error) {
	var buf bytes.Buffer
	from := mail.Address{Name: m.FromName, Address: m.FromAddress}

	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from.String())
	header("To", strings.Join(m.To, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", time.Now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
	buf.WriteString("\r\n")

	for _, part := range []struct{ typ, body string }{
		{"text/plain", m.Text},
		{"text/html", m.HTML},
	} {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		header("Content-Type", part.typ+"; charset=utf-8")
		header("Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")

		qp := quotedprintable.NewWriter(&buf)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("encoding %s part: %w", part.typ, err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("encoding %s part: %w", part.typ, err)
		}
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}
