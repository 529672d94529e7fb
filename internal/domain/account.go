package domain

import "time"

// DefaultBalance is the balance every account opens with.
const DefaultBalance = 1000.0

// Account is the domain entity for a ledger account.
// PasswordHash is a bcrypt hash and never leaves the service layer.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Balance      float64
	CreatedAt    time.Time
}
