package smtpsource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// Source accepts billing notification emails pushed over SMTP, for setups
// where the mail system relays a billing alias to the triage daemon instead
// of the daemon polling a mailbox. Accepted messages sit in a bounded queue
// until the next Fetch drains them.
type Source struct {
	listenAddr string
	server     *smtp.Server
	queue      chan *core.RawEmail
	logger     *zap.Logger
}

// NewSource creates an SMTP source listening on the given address with a
// bounded in-memory queue.
func NewSource(listenAddr string, maxQueue int, logger *zap.Logger) *Source {
	if maxQueue <= 0 {
		maxQueue = 128
	}
	return &Source{
		listenAddr: listenAddr,
		queue:      make(chan *core.RawEmail, maxQueue),
		logger:     logger,
	}
}

// Start starts the SMTP listener.
func (s *Source) Start() error {
	s.server = smtp.NewServer(&smtpBackend{source: s})
	s.server.Addr = s.listenAddr
	s.server.Domain = "localhost"
	s.server.ReadTimeout = 30 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.MaxMessageBytes = 10 * 1024 * 1024
	s.server.MaxRecipients = 10
	s.server.AllowInsecureAuth = true

	s.logger.Info("SMTP source starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				s.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP listener.
func (s *Source) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Fetch drains up to limit queued messages without blocking.
func (s *Source) Fetch(ctx context.Context, limit int) ([]*core.RawEmail, error) {
	var emails []*core.RawEmail
	for limit <= 0 || len(emails) < limit {
		select {
		case <-ctx.Done():
			return emails, ctx.Err()
		case email := <-s.queue:
			emails = append(emails, email)
		default:
			return emails, nil
		}
	}
	return emails, nil
}

// MarkProcessed is a no-op: pushed messages leave the queue when fetched.
func (s *Source) MarkProcessed(_ context.Context, _ string) error {
	return nil
}

// enqueue adds a parsed message to the queue, rejecting when full so the
// upstream mail system retries later.
func (s *Source) enqueue(email *core.RawEmail) error {
	select {
	case s.queue <- email:
		return nil
	default:
		s.logger.Warn("SMTP queue full, deferring message",
			zap.String("email_id", email.ID))
		return &smtp.SMTPError{
			Code:    451,
			Message: "Queue full, try again later",
		}
	}
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	source *Source
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{source: b.source}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	source *Source
	sender string
}

func (s *smtpSession) Reset() {
	s.sender = ""
}

// AuthPlain handles PLAIN authentication (not needed for this source)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt accepts any recipient; routing happened upstream
func (s *smtpSession) Rcpt(_ string, _ *smtp.RcptOptions) error {
	return nil
}

// Data parses the message and queues it for the pipeline
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.source.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.source.logger.Error("Failed to parse email message", zap.Error(err))
		return fmt.Errorf("552 Malformed message: %w", err)
	}

	bodies, err := ExtractBodies(msg)
	if err != nil {
		s.source.logger.Error("Failed to extract message bodies", zap.Error(err))
		return fmt.Errorf("552 Unreadable message body: %w", err)
	}

	email := &core.RawEmail{
		ID:         messageID(msg),
		Subject:    msg.Header.Get("Subject"),
		From:       s.sender,
		TextBody:   bodies.Text,
		HTMLBody:   bodies.HTML,
		ReceivedAt: time.Now().UTC(),
	}

	if addr, err := mail.ParseAddress(msg.Header.Get("From")); err == nil {
		email.From = addr.Address
		email.FromName = addr.Name
	}

	s.source.logger.Debug("Queued pushed email",
		zap.String("email_id", email.ID),
		zap.String("from", email.From),
		zap.String("subject", email.Subject))

	return s.source.enqueue(email)
}

func (s *smtpSession) Logout() error {
	return nil
}

// messageID uses the Message-ID header when present, otherwise generates one.
func messageID(msg *mail.Message) string {
	if id := strings.Trim(msg.Header.Get("Message-ID"), "<> "); id != "" {
		return id
	}
	return uuid.NewString()
}
