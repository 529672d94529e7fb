package handlers

import (
	"errors"
	"net/http"

	"Ledger/internal/dto"
	"Ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// Reply messages. Clients match on these strings.
const (
	msgMissingFields       = "Missing fields"
	msgUserExists          = "User already exists"
	msgUserNotFound        = "User not found"
	msgIncorrectPassword   = "Incorrect password"
	msgInvalidUpdate       = "Invalid balance update request"
	msgInsufficientBalance = "Insufficient balance"
	msgDatabaseError       = "Database error"
)

// AccountHandler serves registration, login and balance endpoints.
// Every reply is HTTP 200; the outcome is in the success field.
type AccountHandler struct {
	users  *service.UserService
	ledger *service.LedgerService
}

// NewAccountHandler returns a new AccountHandler.
func NewAccountHandler(users *service.UserService, ledger *service.LedgerService) *AccountHandler {
	return &AccountHandler{users: users, ledger: ledger}
}

// Register godoc
// @Summary      Register
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CredentialsRequest  true  "Credentials"
// @Success      200   {object}  dto.StatusResponse
// @Router       /register [post]
func (h *AccountHandler) Register(c *gin.Context) {
	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, msgMissingFields)
		return
	}
	username, okUser := dto.String(req.Username)
	password, okPass := dto.String(req.Password)
	if !okUser || !okPass {
		fail(c, msgMissingFields)
		return
	}

	err := h.users.Register(c.Request.Context(), username, password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.StatusResponse{Success: true})
	case errors.Is(err, service.ErrMissingFields):
		fail(c, msgMissingFields)
	default:
		// Insert failures of any kind are reported as a taken username.
		_ = c.Error(err)
		fail(c, msgUserExists)
	}
}

// Login godoc
// @Summary      Login
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CredentialsRequest  true  "Credentials"
// @Success      200   {object}  dto.StatusResponse
// @Router       /login [post]
func (h *AccountHandler) Login(c *gin.Context) {
	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, msgUserNotFound)
		return
	}
	username, _ := dto.String(req.Username)
	password, _ := dto.String(req.Password)

	err := h.users.Login(c.Request.Context(), username, password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.StatusResponse{Success: true})
	case errors.Is(err, service.ErrWrongPassword):
		fail(c, msgIncorrectPassword)
	default:
		if !errors.Is(err, service.ErrUserNotFound) {
			_ = c.Error(err)
		}
		fail(c, msgUserNotFound)
	}
}

// Balance godoc
// @Summary      Get balance
// @Tags         balance
// @Accept       json
// @Produce      json
// @Param        body  body      dto.BalanceRequest  true  "Account"
// @Success      200   {object}  dto.BalanceResponse
// @Router       /balance [post]
func (h *AccountHandler) Balance(c *gin.Context) {
	var req dto.BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, dto.BalanceResponse{})
		return
	}
	username, ok := dto.String(req.Username)
	if !ok {
		c.JSON(http.StatusOK, dto.BalanceResponse{})
		return
	}
	res := h.ledger.Lookup(c.Request.Context(), username)
	c.JSON(http.StatusOK, dto.BalanceResponse{Success: res.Found, Balance: res.Balance})
}

// UpdateBalance godoc
// @Summary      Apply a win (positive) or loss (negative) to the balance
// @Tags         balance
// @Accept       json
// @Produce      json
// @Param        body  body      dto.UpdateBalanceRequest  true  "Delta"
// @Success      200   {object}  dto.BalanceResponse
// @Router       /updateBalance [post]
func (h *AccountHandler) UpdateBalance(c *gin.Context) {
	var req dto.UpdateBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, msgInvalidUpdate)
		return
	}
	username, okUser := dto.String(req.Username)
	amount, okAmount := dto.Number(req.Amount)
	if !okUser || !okAmount {
		fail(c, msgInvalidUpdate)
		return
	}

	balance, err := h.ledger.ApplyDelta(c.Request.Context(), username, amount)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.BalanceResponse{Success: true, Balance: balance})
	case errors.Is(err, service.ErrInvalidRequest):
		fail(c, msgInvalidUpdate)
	case errors.Is(err, service.ErrUserNotFound):
		fail(c, msgUserNotFound)
	case errors.Is(err, service.ErrInsufficientBalance):
		fail(c, msgInsufficientBalance)
	default:
		_ = c.Error(err)
		fail(c, msgDatabaseError)
	}
}

func fail(c *gin.Context, message string) {
	c.JSON(http.StatusOK, dto.StatusResponse{Success: false, Message: message})
}
