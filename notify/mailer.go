package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/mail.v2"
)

// ErrInvalidMailer indicates incomplete SMTP settings.
var ErrInvalidMailer = errors.New("invalid mailer settings")

// SMTP holds the settings of a [Mailer].
type SMTP struct {
	Host     string   `json:"host"               yaml:"host"`
	Username string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty"`
	From     string   `json:"from"               yaml:"from"`
	To       []string `json:"to"                 yaml:"to"`
	Port     int      `json:"port,omitempty"     yaml:"port,omitempty"`
	// SSL dials with implicit TLS. When false, STARTTLS is used if the server
	// offers it.
	SSL bool `json:"ssl,omitempty" yaml:"ssl,omitempty"`
	// Timeout bounds dialing and each SMTP command. Defaults to 10 seconds.
	Timeout time.Duration `json:"-" yaml:"-"`
}

// Validate returns an error if s cannot be used to send mail.
func (s SMTP) Validate() error {
	switch {
	case s.Host == "":
		return fmt.Errorf("%w: host is required", ErrInvalidMailer)
	case s.From == "":
		return fmt.Errorf("%w: from is required", ErrInvalidMailer)
	case len(s.To) == 0:
		return fmt.Errorf("%w: at least one recipient is required", ErrInvalidMailer)
	case s.Port < 0 || s.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidMailer, s.Port)
	}

	return nil
}

// Mailer is a [Sender] that delivers each alert as a plain-text email.
//
// Create instances with [NewMailer].
type Mailer struct {
	dialer *mail.Dialer
	logger *slog.Logger
	from   string
	to     []string
}

// MailerOption configures a [Mailer].
type MailerOption func(*Mailer)

// WithLogger sets the logger that [Mailer.Run] reports delivery failures to.
// It must not feed back into the handler raising the alerts. The default
// discards everything.
func WithLogger(l *slog.Logger) MailerOption {
	return func(m *Mailer) {
		m.logger = l
	}
}

// NewMailer creates a [Mailer] from s. The port defaults to 25, or 465 when
// SSL is set.
func NewMailer(s SMTP, opts ...MailerOption) (*Mailer, error) {
	err := s.Validate()
	if err != nil {
		return nil, err
	}

	port := s.Port
	if port == 0 {
		port = 25
		if s.SSL {
			port = 465
		}
	}

	d := mail.NewDialer(s.Host, port, s.Username, s.Password)
	d.SSL = s.SSL
	d.RetryFailure = false

	if s.Timeout > 0 {
		d.Timeout = s.Timeout
	}

	m := &Mailer{
		dialer: d,
		logger: slog.New(slog.DiscardHandler),
		from:   s.From,
		to:     s.To,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Send delivers a over a new SMTP connection.
func (m *Mailer) Send(ctx context.Context, a Alert) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to...)
	msg.SetHeader("Subject", a.Subject)

	if !a.Time.IsZero() {
		msg.SetDateHeader("Date", a.Time)
	}

	msg.SetBody("text/plain", a.Body)

	err = m.dialer.DialAndSend(msg)
	if err != nil {
		return fmt.Errorf("sending mail via %s:%d: %w", m.dialer.Host, m.dialer.Port, err)
	}

	return nil
}

// Run sends every alert received on sub until ctx is cancelled or the
// subscription channel is closed. On cancellation the alerts already queued
// on sub are still sent, each bounded by the dialer timeout. Failed
// deliveries are logged and skipped. Run closes sub before returning, and
// always returns nil.
func (m *Mailer) Run(ctx context.Context, sub *Subscription) error {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			m.flush(context.WithoutCancel(ctx), sub)

			return nil

		case a, ok := <-sub.C():
			if !ok {
				return nil
			}

			m.deliver(ctx, a)
		}
	}
}

// flush sends the alerts queued on sub without waiting for new ones.
func (m *Mailer) flush(ctx context.Context, sub *Subscription) {
	for {
		select {
		case a, ok := <-sub.C():
			if !ok {
				return
			}

			m.deliver(ctx, a)

		default:
			return
		}
	}
}

func (m *Mailer) deliver(ctx context.Context, a Alert) {
	err := m.Send(ctx, a)
	if err != nil {
		m.logger.WarnContext(ctx, "alert not delivered",
			slog.String("subject", a.Subject),
			slog.Any("error", err),
		)
	}
}
