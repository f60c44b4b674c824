package repository

import "errors"

var (
	ErrNotFound     = errors.New("record not found")
	ErrTokenUsed    = errors.New("reset token already used")
	ErrTokenExpired = errors.New("reset token expired")
)
