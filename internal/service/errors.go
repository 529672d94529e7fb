package service

import "errors"

// Credential gate errors.
var (
	ErrMissingFields = errors.New("missing fields")
	ErrUserExists    = errors.New("user already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("incorrect password")
)

// Ledger errors.
var (
	ErrInvalidRequest      = errors.New("invalid balance update request")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStore               = errors.New("store error")
)
