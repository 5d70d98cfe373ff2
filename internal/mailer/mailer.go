package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/frahmantamala/identity-service/internal"
)

// Mailer delivers recovery codes. Split out as an interface so the OTP
// service can be tested without an SMTP server.
type Mailer interface {
	SendOTP(to, name, code string) error
}

// SMTPMailer sends mail through a plain SMTP relay via gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg *internal.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) SendOTP(to, name, code string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your password reset code")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nYour password reset code is %s. It expires in 3 minutes.\n\nIf you did not request a reset, ignore this message.\n",
		name, code,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}
