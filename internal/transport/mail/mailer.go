package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// Mailer sends auth notification mail over SMTP. It implements
// service.NotificationSender.
type Mailer struct {
	dialer          *gomail.Dialer
	from            string
	frontendBaseURL string
}

func NewMailer(host string, port int, username, password, from, frontendBaseURL string) *Mailer {
	return &Mailer{
		dialer:          gomail.NewDialer(strings.TrimSpace(host), port, username, password),
		from:            strings.TrimSpace(from),
		frontendBaseURL: strings.TrimRight(strings.TrimSpace(frontendBaseURL), "/"),
	}
}

func (m *Mailer) SendVerificationCode(ctx context.Context, email, code string) error {
	body := fmt.Sprintf("Your VersaChat verification code is: %s\n\nIt expires in 10 minutes. If you did not sign up, ignore this email.", code)
	return m.send(ctx, email, "Your VersaChat verification code", body)
}

func (m *Mailer) SendWelcome(ctx context.Context, email, name string) error {
	body := fmt.Sprintf("Hi %s,\n\nYour VersaChat account is ready. Jump back in and start a conversation.\n\nThe VersaChat team", name)
	return m.send(ctx, email, "Welcome to VersaChat", body)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, email, resetToken string) error {
	link := resetToken
	if m.frontendBaseURL != "" {
		link = fmt.Sprintf("%s/reset-password?token=%s", m.frontendBaseURL, resetToken)
	}
	body := fmt.Sprintf("We received a request to reset your VersaChat password.\n\nUse this link within the next hour:\n%s\n\nIf you did not request a reset, your account is untouched.", link)
	return m.send(ctx, email, "Reset your VersaChat password", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if m == nil {
		return errors.New("mailer not configured")
	}
	if m.dialer.Host == "" || m.from == "" {
		return errors.New("mailer missing configuration")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}
