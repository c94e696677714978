package alert

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/dwsmith1983/guardian/internal/report"
	"github.com/dwsmith1983/guardian/pkg/types"
)

const defaultSMTPPort = 587

// MailFunc has the signature of smtp.SendMail.
type MailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSink mails each owner an HTML compliance report.
type EmailSink struct {
	cfg      types.SMTPConfig
	addr     string
	sendMail MailFunc
}

// EmailSinkOption configures an EmailSink.
type EmailSinkOption func(*EmailSink)

// WithSendMail replaces smtp.SendMail (useful for testing).
func WithSendMail(fn MailFunc) EmailSinkOption {
	return func(s *EmailSink) { s.sendMail = fn }
}

// NewEmailSink creates a new SMTP alert sink.
func NewEmailSink(cfg types.SMTPConfig, opts ...EmailSinkOption) (*EmailSink, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address required")
	}
	port := cfg.Port
	if port == 0 {
		port = defaultSMTPPort
	}
	s := &EmailSink{
		cfg:      cfg,
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		sendMail: smtp.SendMail,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Name returns the sink identifier.
func (s *EmailSink) Name() string { return "email" }

// Send renders the owner report and mails it to the alert recipient, or the
// configured fallback address when the owner has no email.
func (s *EmailSink) Send(ctx context.Context, alert types.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := alert.Recipient
	if to == "" {
		to = s.cfg.Fallback
	}
	if to == "" {
		return fmt.Errorf("no recipient for owner %s", alert.OwnerKey)
	}

	msg, err := s.compose(alert, to)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	rcpts := append([]string{to}, s.cfg.CC...)
	if err := s.sendMail(s.addr, auth, s.cfg.From, rcpts, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

func (s *EmailSink) compose(alert types.Alert, to string) ([]byte, error) {
	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	var body bytes.Buffer
	err := report.RenderOwnerHTML(&body, report.OwnerReport{
		RunID:       alert.RunID,
		GeneratedAt: ts,
		Group: types.OwnerGroup{
			Key:          alert.OwnerKey,
			Name:         alert.OwnerName,
			Email:        alert.Recipient,
			TicketCount:  alert.TicketCount,
			NonCompliant: len(alert.NonCompliant),
			Results:      alert.NonCompliant,
		},
		AtRisk: alert.AtRisk,
	})
	if err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	if len(s.cfg.CC) > 0 {
		fmt.Fprintf(&msg, "Cc: %s\r\n", strings.Join(s.cfg.CC, ", "))
	}
	subj := fmt.Sprintf("ITSM Compliance Report - %s", ts.Format("02 January 2006"))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subj))
	fmt.Fprintf(&msg, "Date: %s\r\n", ts.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
