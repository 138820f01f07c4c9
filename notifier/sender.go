package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"time"
)

// SendResult reports a successful delivery attempt.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// EmailSender delivers a single email. Implementations offer no delivery
// guarantee beyond the returned error.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (SendResult, error)
}

type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host not set")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("SMTP credentials not set")
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
	}, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) (SendResult, error) {
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	msg := []byte(
		"From: " + s.from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			body,
	)

	// smtp.SendMail has no context support; run it in a goroutine so the
	// caller's deadline still bounds the attempt.
	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(addr, auth, s.from, []string{to}, msg)
	}()

	select {
	case <-ctx.Done():
		return SendResult{}, ctx.Err()
	case err := <-errCh:
		if err != nil {
			return SendResult{}, fmt.Errorf("smtp send failed: %w", err)
		}
	}

	return SendResult{
		MessageID: fmt.Sprintf("smtp-%d", time.Now().UnixNano()),
		SentAt:    time.Now(),
	}, nil
}
