// Package mailer sends rendered invoices over authenticated SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/diewo77/invoicer/internal/apperror"
	"github.com/diewo77/invoicer/internal/config"
	"github.com/diewo77/invoicer/validation"
)

// ErrDisabled is returned by Send when no SMTP server is configured.
var ErrDisabled = fmt.Errorf("%w: email delivery is not configured", apperror.ErrUnavailable)

// Attachment is a file carried by a message.
type Attachment struct {
	Name string
	Data []byte
}

// Message is one outgoing email.
type Message struct {
	// SMTP_FROM overrides From; an empty From falls back to SMTP_USER.
	From       string
	To         string
	Subject    string
	Body       string
	Attachment *Attachment
}

// Mailer delivers messages through the configured SMTP relay.
type Mailer struct {
	cfg  config.SMTPConfig
	log  *zap.Logger
	send func(ctx context.Context, msg *mail.Msg) error
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithTransport replaces the SMTP dial with fn.
func WithTransport(fn func(ctx context.Context, msg *mail.Msg) error) Option {
	return func(m *Mailer) { m.send = fn }
}

func New(cfg config.SMTPConfig, log *zap.Logger, opts ...Option) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Mailer{cfg: cfg, log: log}
	m.send = m.dialAndSend
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enabled reports whether Send can deliver anything.
func (m *Mailer) Enabled() bool { return m.cfg.Enabled() }

// Send delivers msg once. Transport failures are reported as delivery errors
// and never retried.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	mm, err := m.build(msg)
	if err != nil {
		return err
	}
	if err := m.send(ctx, mm); err != nil {
		m.log.Warn("email delivery failed", zap.String("to", msg.To), zap.Error(err))
		return apperror.Delivery("send email", err)
	}
	m.log.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (m *Mailer) build(msg Message) (*mail.Msg, error) {
	from := m.cfg.From
	if from == "" {
		from = msg.From
	}
	if from == "" {
		from = m.cfg.User
	}
	v := make(validation.Violations)
	validation.Required("from", from, v)
	validation.Required("to", msg.To, v)
	if !v.Empty() {
		return nil, v
	}

	mm := mail.NewMsg()
	if err := mm.From(from); err != nil {
		v["from"] = "invalid_email"
	}
	if err := mm.To(msg.To); err != nil {
		v["to"] = "invalid_email"
	}
	if !v.Empty() {
		return nil, v
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)
	if a := msg.Attachment; a != nil {
		mm.AttachReadSeeker(a.Name, bytes.NewReader(a.Data))
	}
	return mm, nil
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{mail.WithTLSPolicy(mail.TLSMandatory)}
	if m.cfg.Port > 0 {
		opts = append(opts, mail.WithPort(m.cfg.Port))
	}
	if m.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.cfg.Timeout))
	}
	if m.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.User),
			mail.WithPassword(m.cfg.Password),
		)
	}
	c, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return c.DialAndSendWithContext(ctx, msg)
}
