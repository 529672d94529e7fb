package repo

import "errors"

var (
	// ErrNotFound is returned when no account exists for the username.
	ErrNotFound = errors.New("account not found")
	// ErrAlreadyExists is returned by Create when the username is taken.
	ErrAlreadyExists = errors.New("account already exists")
	// ErrInsufficientBalance is returned by ApplyDelta when the delta would
	// drive the balance below zero. The stored balance is left unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrBalanceOutOfRange is returned by ApplyDelta when the new balance
	// would not be a finite number. The stored balance is left unchanged.
	ErrBalanceOutOfRange = errors.New("balance out of range")
)
