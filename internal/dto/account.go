package dto

import (
	"bytes"
	"encoding/json"

	"Ledger/internal/utils"
)

// Fields are kept raw so the handlers can tell a missing field from one of
// the wrong JSON type.

// CredentialsRequest is the JSON body for POST /register and POST /login.
type CredentialsRequest struct {
	Username json.RawMessage `json:"username" swaggertype:"string"`
	Password json.RawMessage `json:"password" swaggertype:"string"`
}

// BalanceRequest is the JSON body for POST /balance.
type BalanceRequest struct {
	Username json.RawMessage `json:"username" swaggertype:"string"`
}

// UpdateBalanceRequest is the JSON body for POST /updateBalance.
type UpdateBalanceRequest struct {
	Username json.RawMessage `json:"username" swaggertype:"string"`
	Amount   json.RawMessage `json:"amount" swaggertype:"number"`
}

// StatusResponse is returned by /register and /login, and by /updateBalance on failure.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// BalanceResponse is returned by /balance, and by /updateBalance on success.
type BalanceResponse struct {
	Success bool    `json:"success"`
	Balance float64 `json:"balance"`
}

// String returns the non-empty JSON string held in raw.
func String(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// Number returns the finite JSON number held in raw.
func Number(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || !utils.IsFinite(v) {
		return 0, false
	}
	return v, true
}
