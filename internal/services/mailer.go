package services

import (
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Mailer sends transactional mail over SMTP. Delivery is best effort: errors
// are returned to the caller, never swallowed.
type Mailer struct {
	dialer      *gomail.Dialer
	from        string
	frontendURL string
	log         zerolog.Logger
}

func NewMailer(host string, port int, user, password, from, frontendURL string, log zerolog.Logger) *Mailer {
	if from == "" {
		from = user
	}
	return &Mailer{
		dialer:      gomail.NewDialer(host, port, user, password),
		from:        from,
		frontendURL: frontendURL,
		log:         log,
	}
}

func (m *Mailer) Send(to, subject, text, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	if html != "" {
		msg.AddAlternative("text/html", html)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("failed to send email")
		return err
	}
	m.log.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

// SendPasswordReset mails the reset link for a raw (unhashed) reset token.
func (m *Mailer) SendPasswordReset(to, name, resetToken string) error {
	resetURL := fmt.Sprintf("%s/reset-password/%s", m.frontendURL, resetToken)

	text := fmt.Sprintf(
		"Hello %s,\n\nYou requested a password reset. Open the link below to choose a new password. The link expires in 10 minutes.\n\n%s\n\nIf you did not request this, you can ignore this email.",
		name, resetURL,
	)
	html := fmt.Sprintf(
		`<p>Hello %s,</p><p>You requested a password reset. Click the button below to choose a new password. The link expires in 10 minutes.</p><p><a href="%s" style="display:inline-block;padding:12px 30px;background:#667eea;color:#fff;text-decoration:none;border-radius:4px;">Reset Password</a></p><p>If you did not request this, you can ignore this email.</p>`,
		name, resetURL,
	)

	return m.Send(to, "Password Reset Request", text, html)
}
