package service

import (
	"context"
	"errors"
	"fmt"

	"Ledger/internal/repo"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserService registers accounts and checks login credentials.
type UserService struct {
	repo repo.AccountRepo
	cost int
	log  logrus.FieldLogger
}

// NewUserService returns a new UserService. A cost of 0 means bcrypt.DefaultCost.
func NewUserService(repo repo.AccountRepo, cost int, log logrus.FieldLogger) *UserService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, cost: cost, log: log.WithField("component", "users")}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrMissingFields
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return ErrMissingFields
		}
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.repo.Create(ctx, username, string(hash)); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return ErrUserExists
		}
		s.log.WithError(err).WithField("username", username).Error("create account failed")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	s.log.WithField("username", username).Info("account registered")
	return nil
}

// Login verifies password against the stored hash.
// The two failure kinds tell callers whether the username exists.
func (s *UserService) Login(ctx context.Context, username, password string) error {
	if username == "" {
		return ErrUserNotFound
	}
	hash, err := s.repo.GetCredential(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		s.log.WithError(err).WithField("username", username).Error("read credential failed")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}
