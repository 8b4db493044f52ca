package services

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/rampwallet/internal/auth"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailService delivers one-time codes by email.
type EmailService struct {
	cfg EmailConfig
	// showCodes logs codes at debug level when SMTP is not configured.
	showCodes bool
	sendMail  func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailService creates an EmailService. With an empty host nothing is
// sent; in development the code is written to the debug log instead.
func NewEmailService(cfg EmailConfig, development bool) *EmailService {
	return &EmailService{
		cfg:       cfg,
		showCodes: development,
		sendMail:  smtp.SendMail,
	}
}

// SendCode implements auth.CodeSender.
func (s *EmailService) SendCode(ctx context.Context, email string, purpose auth.CodePurpose, code string) error {
	if s.cfg.Host == "" {
		if s.showCodes {
			log.Debug().Str("email", email).Str("purpose", string(purpose)).Str("code", code).Msg("smtp not configured, code not sent")
		} else {
			log.Warn().Str("purpose", string(purpose)).Msg("smtp not configured, code not sent")
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body := formatCodeMessage(purpose, code)
	msg := buildMessage(s.cfg.From, email, subject, body)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var smtpAuth smtp.Auth
	if s.cfg.Username != "" {
		smtpAuth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.sendMail(addr, smtpAuth, s.cfg.From, []string{email}, msg); err != nil {
		return fmt.Errorf("send %s email: %w", purpose, err)
	}
	return nil
}

func formatCodeMessage(purpose auth.CodePurpose, code string) (string, string) {
	switch purpose {
	case auth.PurposePasswordReset:
		return "Your password reset code",
			fmt.Sprintf("Use this code to reset your password: %s\r\n\r\nIf you did not ask for a reset, ignore this email.", code)
	default:
		return "Verify your email",
			fmt.Sprintf("Your verification code is: %s", code)
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

var _ auth.CodeSender = (*EmailService)(nil)
