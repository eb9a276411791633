// Package mailer delivers transactional email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"minimart/internal/logging"

	"gopkg.in/gomail.v2"
)

var (
	ErrMailerDisabled = errors.New("mail transport is not configured")
	ErrSendTimeout    = errors.New("mail delivery timed out")
)

// Config configures the SMTP transport.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Invitation is the data rendered into an invitation mail.
type Invitation struct {
	To        string
	Name      string
	Role      string
	AcceptURL string
}

// Sender sends invitation mails.
type Sender interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}

// SMTPMailer sends mail through a gomail dialer.
type SMTPMailer struct {
	from    string
	timeout time.Duration
	send    func(m *gomail.Message) error
	log     logging.Logger
}

// New returns an SMTP mailer. With an empty host it returns a Sender that
// always fails with ErrMailerDisabled.
func New(cfg Config, log logging.Logger) Sender {
	if cfg.Host == "" {
		return disabled{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPMailer{
		from:    cfg.From,
		timeout: cfg.Timeout,
		send:    func(m *gomail.Message) error { return d.DialAndSend(m) },
		log:     log.With("component", "mailer"),
	}
}

// SendInvitation renders and delivers an invitation. The dial and send run
// under the mailer timeout and ctx; if either expires first the call returns
// without waiting for the SMTP exchange to finish.
func (m *SMTPMailer) SendInvitation(ctx context.Context, inv Invitation) error {
	subject, text, html, err := renderInvitation(inv)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", inv.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	msg.AddAlternative("text/html", html)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.send(msg) }()

	select {
	case err := <-done:
		if err != nil {
			m.log.Error(ctx, "invitation mail failed", "to", inv.To, "error", err)
			return fmt.Errorf("send invitation to %s: %w", inv.To, err)
		}
		m.log.Info(ctx, "invitation mail sent", "to", inv.To)
		return nil
	case <-ctx.Done():
		m.log.Error(ctx, "invitation mail timed out", "to", inv.To)
		return ErrSendTimeout
	}
}

type disabled struct{}

func (disabled) SendInvitation(context.Context, Invitation) error {
	return ErrMailerDisabled
}

const invitationSubject = "You're invited to the Minimart portal"

var invitationText = texttemplate.Must(texttemplate.New("text").Parse(
	`Hello {{.Name}},

An administrator has created a {{.Role}} account for you on the Minimart portal.
Set your password to finish signing up:

{{.AcceptURL}}

If you were not expecting this email you can ignore it.
`))

var invitationHTML = htmltemplate.Must(htmltemplate.New("html").Parse(
	`<p>Hello {{.Name}},</p>
<p>An administrator has created a <strong>{{.Role}}</strong> account for you on the Minimart portal.</p>
<p><a href="{{.AcceptURL}}">Set your password</a> to finish signing up.</p>
<p>If you were not expecting this email you can ignore it.</p>
`))

func renderInvitation(inv Invitation) (subject, text, html string, err error) {
	var tb, hb bytes.Buffer
	if err := invitationText.Execute(&tb, inv); err != nil {
		return "", "", "", fmt.Errorf("render invitation text: %w", err)
	}
	if err := invitationHTML.Execute(&hb, inv); err != nil {
		return "", "", "", fmt.Errorf("render invitation html: %w", err)
	}
	return invitationSubject, tb.String(), hb.String(), nil
}
