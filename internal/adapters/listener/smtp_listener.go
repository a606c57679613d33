package listener

import (
	"bytes"
	"context"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/llm-smish-guard/internal/core"
	"github.com/mikey/llm-smish-guard/internal/utils"
	"go.uber.org/zap"
)

// Enqueuer accepts inbound messages for background processing
type Enqueuer interface {
	Enqueue(msg *core.Message)
}

// SMTPListener receives inbound SMS traffic delivered over a carrier
// email-to-SMS bridge. Each delivery becomes a PENDING message handed to the
// store and the processing queue. The queue reference is injected rather than
// registered through a process-wide callback slot so the wiring stays testable.
type SMTPListener struct {
	queue         Enqueuer
	store         core.MessageStore
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	listenAddr    string
	server        *smtp.Server
}

// NewSMTPListener creates a new gateway listener
func NewSMTPListener(
	queue Enqueuer,
	store core.MessageStore,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	listenAddr string,
) *SMTPListener {
	return &SMTPListener{
		queue:         queue,
		store:         store,
		textProcessor: textProcessor,
		logger:        logger,
		listenAddr:    listenAddr,
	}
}

// Start starts the gateway listener
func (l *SMTPListener) Start() error {
	l.server = smtp.NewServer(&smtpBackend{listener: l})

	l.server.Addr = l.listenAddr
	l.server.Domain = "localhost"
	l.server.ReadTimeout = 30 * time.Second
	l.server.WriteTimeout = 30 * time.Second
	l.server.MaxMessageBytes = 1024 * 1024
	l.server.MaxRecipients = 5
	l.server.AllowInsecureAuth = true

	l.logger.Info("Gateway listener starting", zap.String("address", l.listenAddr))

	go func() {
		if err := l.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				l.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the gateway listener
func (l *SMTPListener) Stop() error {
	if l.server != nil {
		return l.server.Close()
	}
	return nil
}

// accept builds a PENDING message from a gateway delivery and hands it to the
// store and the queue. The sender address keeps only the local part, which
// carries the originating phone number on carrier bridges.
func (l *SMTPListener) accept(sender, body string, received time.Time) {
	if at := strings.Index(sender, "@"); at > 0 {
		sender = sender[:at]
	}
	if sender == "" {
		sender = "Unknown"
	}

	msg := &core.Message{
		ID:             uuid.New().String(),
		Sender:         sender,
		Body:           l.textProcessor.ProcessIncoming(body),
		Timestamp:      received,
		Classification: core.ClassificationPending,
		Processed:      false,
	}

	if err := l.store.Add(context.Background(), msg); err != nil {
		l.logger.Error("Failed to store inbound message",
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}

	l.logger.Info("Inbound message accepted",
		zap.String("message_id", msg.ID),
		zap.String("sender", msg.Sender),
		zap.Int("body_length", len(msg.Body)))

	l.queue.Enqueue(msg)
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	listener *SMTPListener
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{listener: b.listener}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	listener *SMTPListener
	sender   string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
}

// Logout ends the session
func (s *smtpSession) Logout() error {
	return nil
}

// AuthPlain handles PLAIN authentication (not needed for the gateway)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt accepts any recipient; the bridge addresses a single device
func (s *smtpSession) Rcpt(_ string, _ *smtp.RcptOptions) error {
	return nil
}

// Data handles a gateway delivery
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.listener.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	body := string(rawData)
	received := time.Now()

	// Gateway deliveries are usually plain RFC 5322 messages; fall back to
	// the raw payload when parsing fails rather than rejecting the SMS.
	if msg, parseErr := mail.ReadMessage(bytes.NewReader(rawData)); parseErr == nil {
		if bodyBytes, readErr := io.ReadAll(msg.Body); readErr == nil {
			body = string(bodyBytes)
		}
		if date, dateErr := msg.Header.Date(); dateErr == nil {
			received = date
		}
	}

	s.listener.accept(s.sender, strings.TrimSpace(body), received)
	return nil
}
