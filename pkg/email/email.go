// Package email sends HTML mail over SMTP.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Message is one HTML mail.
type Message struct {
	From     string
	To       []string
	Subject  string
	HTMLBody string
}

// Sender delivers a message. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// sendFunc has the signature of smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends through a relay, one message per call.
type SMTPSender struct {
	host string
	addr string
	auth smtp.Auth
	now  func() time.Time
	send sendFunc
}

// Option configures an SMTPSender.
type Option func(*SMTPSender)

// WithPlainAuth enables PLAIN authentication. Without it the relay is used
// unauthenticated, as internal relays on port 25 usually are.
func WithPlainAuth(username, password string) Option {
	return func(s *SMTPSender) {
		if username != "" {
			s.auth = smtp.PlainAuth("", username, password, s.host)
		}
	}
}

// NewSMTPSender creates a sender for host:port.
func NewSMTPSender(host string, port int, opts ...Option) *SMTPSender {
	s := &SMTPSender{
		host: host,
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		now:  time.Now,
		send: smtp.SendMail,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return errors.New("email: no recipients")
	}
	raw, err := Build(msg, s.now())
	if err != nil {
		return err
	}
	if err := s.send(s.addr, s.auth, msg.From, msg.To, raw); err != nil {
		return fmt.Errorf("send mail via %s: %w", s.addr, err)
	}
	return nil
}

// Build renders msg as an RFC 5322 message with a quoted-printable UTF-8
// HTML body.
func Build(msg Message, date time.Time) ([]byte, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return nil, fmt.Errorf("email: invalid sender %q: %w", msg.From, err)
	}
	to := make([]string, len(msg.To))
	for i, addr := range msg.To {
		a, err := mail.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("email: invalid recipient %q: %w", addr, err)
		}
		to[i] = a.String()
	}

	var buf bytes.Buffer
	header := func(k, v string) {
		buf.WriteString(k + ": " + v + "\r\n")
	}
	header("From", from.String())
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(msg.HTMLBody)); err != nil {
		return nil, fmt.Errorf("email: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("email: encode body: %w", err)
	}
	return buf.Bytes(), nil
}

// ValidAddress reports whether s is a single bare mail address.
func ValidAddress(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == strings.TrimSpace(s)
}
