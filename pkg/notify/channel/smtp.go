// Package channel provides email and push delivery channels for the
// notification dispatcher.
package channel

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/txn2/helix/pkg/notify"
)

// SMTPConfig configures the SMTP email channel.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// TLS selects implicit TLS. When false the connection is upgraded
	// with STARTTLS if the server offers it.
	TLS bool

	DialTimeout time.Duration
}

// DefaultDialTimeout bounds the SMTP connection attempt.
const DefaultDialTimeout = 30 * time.Second

// sendFunc delivers a composed message to a single recipient.
type sendFunc func(ctx context.Context, cfg SMTPConfig, to string, msg []byte) error

// SMTPSender implements notify.EmailSender over SMTP.
type SMTPSender struct {
	cfg       SMTPConfig
	directory notify.Directory
	now       func() time.Time
	send      sendFunc
}

// NewSMTPSender creates an SMTP email channel. Recipient addresses are
// resolved through dir.
func NewSMTPSender(cfg SMTPConfig, dir notify.Directory) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if dir == nil {
		return nil, errors.New("smtp sender requires a directory")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	return &SMTPSender{cfg: cfg, directory: dir, now: time.Now, send: deliver}, nil
}

// SendEmail resolves the recipient's address and delivers msg.
func (s *SMTPSender) SendEmail(ctx context.Context, recipientID string, msg notify.Rendered) error {
	to, err := s.directory.EmailAddress(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("resolving address for %s: %w", recipientID, err)
	}

	body, err := composeMessage(s.cfg.From, to, msg, s.now())
	if err != nil {
		return err
	}

	if err := s.send(ctx, s.cfg, to, body); err != nil {
		return fmt.Errorf("sending email to %s: %w", recipientID, err)
	}
	return nil
}

// composeMessage builds a multipart/alternative message carrying the
// plain text and HTML renderings.
func composeMessage(from, to string, msg notify.Rendered, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating mail writer: %w", err)
	}

	alt, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("creating inline writer: %w", err)
	}
	if err := writePart(alt, "text/plain", msg.Text); err != nil {
		return nil, err
	}
	if msg.HTML != "" {
		if err := writePart(alt, "text/html", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := alt.Close(); err != nil {
		return nil, fmt.Errorf("closing inline writer: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing mail writer: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(alt *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := alt.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("writing %s part: %w", contentType, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %s part: %w", contentType, err)
	}
	return nil
}

// deliver opens an SMTP session and sends one message.
func deliver(ctx context.Context, cfg SMTPConfig, to string, msg []byte) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}

	var conn net.Conn
	var err error
	if cfg.TLS {
		td := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if !cfg.TLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
				return fmt.Errorf("SMTP STARTTLS: %w", err)
			}
		}
	}

	if cfg.Username != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}
	return client.Quit()
}

// Verify interface compliance.
var _ notify.EmailSender = (*SMTPSender)(nil)
