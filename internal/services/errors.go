package services

import "errors"

var (
	// ErrInvalidToken — единая причина для несуществующего, истёкшего и
	// использованного токена. Подробности остаются только в логах.
	ErrInvalidToken = errors.New("invalid or expired token")

	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
	ErrPasswordWeak     = errors.New("password must contain letters and digits")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrOldPasswordInvalid = errors.New("old password incorrect")

	ErrMailQueueFull = errors.New("email queue is full")
	ErrMailerClosed  = errors.New("mailer is closed")
	ErrSMTPDisabled  = errors.New("smtp is not configured")
)
