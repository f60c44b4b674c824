package services

import (
	"smartacademy/internal/config"
	"strconv"

	"gopkg.in/gomail.v2"
)

// EmailService — отправка писем через SMTP.
type EmailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(cfg *config.Config) *EmailService {
	port, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		port = 587
	}
	from := cfg.MailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &EmailService{
		dialer: gomail.NewDialer(cfg.SMTPHost, port, cfg.SMTPUser, cfg.SMTPPassword),
		from:   from,
	}
}

func (s *EmailService) Send(to []string, subject, body string) error {
	return s.send(to, subject, "text/plain", body)
}

func (s *EmailService) SendHTML(to []string, subject, body string) error {
	return s.send(to, subject, "text/html", body)
}

func (s *EmailService) send(to []string, subject, contentType, body string) error {
	if s.dialer.Host == "" {
		return ErrSMTPDisabled
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody(contentType, body)
	return s.dialer.DialAndSend(m)
}
