package email

import (
	"fmt"
	"net/smtp"
)

// Sender delivers notification emails. Implementations must treat delivery as
// best-effort; callers never fail their own work on a send error.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends plain-text mail through a single SMTP host.
type SMTPSender struct {
	host string
	port string
	from string
}

func NewSMTPSender(host, port, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, from: from}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}

// NopSender drops mail. Used when no SMTP host is configured.
type NopSender struct{}

func (NopSender) Send(to, subject, body string) error { return nil }
