// Package mail delivers transactional email. Delivery is fire-and-forget:
// messages are queued to a background worker and failures are logged, never
// propagated to the request that triggered them.
package mail

import (
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"bonusdesk/internal/model"
)

// Notifier is the contract the core depends on for state-transition and
// account emails.
type Notifier interface {
	BonusApproved(to string, bonus *model.Bonus)
	BonusRejected(to string, bonus *model.Bonus)
	AccountVerification(to, link string)
	PasswordResetCode(to, code string)
}

type message struct {
	to      string
	subject string
	html    string
}

// Mailer sends email over SMTP via a buffered queue. When no SMTP host is
// configured it only logs the would-be deliveries, which keeps local
// development free of mail infrastructure.
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	enabled bool
	queue   chan message
	log     zerolog.Logger
}

var _ Notifier = (*Mailer)(nil)

// New creates a Mailer and starts its delivery worker.
func New(host string, port int, user, pass, from string, log zerolog.Logger) *Mailer {
	m := &Mailer{
		from:    from,
		enabled: host != "",
		queue:   make(chan message, 100),
		log:     log.With().Str("component", "mailer").Logger(),
	}
	if m.enabled {
		m.dialer = gomail.NewDialer(host, port, user, pass)
	}

	go m.worker()

	return m
}

func (m *Mailer) worker() {
	for msg := range m.queue {
		if !m.enabled {
			m.log.Debug().Str("to", msg.to).Str("subject", msg.subject).Msg("mail disabled, skipping delivery")
			continue
		}
		gm := gomail.NewMessage()
		gm.SetHeader("From", m.from)
		gm.SetHeader("To", msg.to)
		gm.SetHeader("Subject", msg.subject)
		gm.SetBody("text/html", msg.html)
		if err := m.dialer.DialAndSend(gm); err != nil {
			m.log.Error().Err(err).Str("to", msg.to).Str("subject", msg.subject).Msg("mail delivery failed")
		}
	}
}

// enqueue hands a message to the worker without blocking the caller. A full
// queue drops the message; a lost email must not fail or stall a request.
func (m *Mailer) enqueue(msg message) {
	select {
	case m.queue <- msg:
	default:
		m.log.Warn().Str("to", msg.to).Str("subject", msg.subject).Msg("mail queue full, dropping message")
	}
}

// Close stops the delivery worker after draining the queue.
func (m *Mailer) Close() {
	close(m.queue)
}

// BonusApproved notifies the proposing manager of an approval.
func (m *Mailer) BonusApproved(to string, bonus *model.Bonus) {
	m.enqueue(message{
		to:      to,
		subject: "Bonus request approved",
		html: fmt.Sprintf(
			`<div style="font-family: Arial, sans-serif; padding: 20px;"><h2>Bonus Request Approved</h2><p>Your bonus %q (%s) has been approved.</p></div>`,
			bonus.Title, bonus.Amount.StringFixed(2)),
	})
}

// BonusRejected notifies the proposing manager of a rejection.
func (m *Mailer) BonusRejected(to string, bonus *model.Bonus) {
	m.enqueue(message{
		to:      to,
		subject: "Bonus request rejected",
		html: fmt.Sprintf(
			`<div style="font-family: Arial, sans-serif; padding: 20px;"><h2>Bonus Request Rejected</h2><p>Your bonus %q (%s) has been rejected.</p></div>`,
			bonus.Title, bonus.Amount.StringFixed(2)),
	})
}

// AccountVerification sends the activation link after signup.
func (m *Mailer) AccountVerification(to, link string) {
	m.enqueue(message{
		to:      to,
		subject: "Verify your account",
		html:    fmt.Sprintf(`<p>Welcome! Please verify your account: <a href=%q>%s</a></p>`, link, link),
	})
}

// PasswordResetCode sends the one-time password reset code.
func (m *Mailer) PasswordResetCode(to, code string) {
	m.enqueue(message{
		to:      to,
		subject: "Password reset code",
		html:    fmt.Sprintf(`<p>You requested a password reset. Your code is <b>%s</b>. If you did not request this, please ignore this email.</p>`, code),
	})
}
