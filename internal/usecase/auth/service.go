// Package auth is the credential-checking collaborator. Accounts live in an
// in-process registry with mock credentials; the only thing the rest of the
// system consumes is the secret-free User identity a successful check yields.
package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"ticketdesk/internal/domain/user"
	apperrors "ticketdesk/pkg/errors"
	"ticketdesk/pkg/latency"
)

// account pairs an identity with its mock password. The password never leaves
// this package.
type account struct {
	user     user.User
	password string
}

// SignupRequest represents the payload for registering a new account.
type SignupRequest struct {
	Name     string `validate:"required,min=3,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

// Service implements the auth collaborator contract.
type Service struct {
	log      *zap.Logger
	delay    latency.Strategy
	validate *validator.Validate

	mu       sync.Mutex
	accounts []account
}

// New creates an auth service with an empty registry.
func New(log *zap.Logger, delay latency.Strategy) *Service {
	return &Service{log: log, delay: delay, validate: validator.New()}
}

// Seed registers an account without validation or delay, used for the
// built-in demo user. Returns the issued identity.
func (s *Service) Seed(name, email, password string) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user.User{
		ID:    strconv.Itoa(len(s.accounts) + 1),
		Name:  name,
		Email: email,
	}
	s.accounts = append(s.accounts, account{user: u, password: password})
	return u
}

// Login checks the email/password pair and returns the matching identity,
// stripped of any secret. No match yields ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*user.User, error) {
	s.delay.Wait(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.Email == email && acc.password == password {
			copied := acc.user
			s.log.Info("login succeeded", zap.String("user_id", copied.ID), zap.String("email", email))
			return &copied, nil
		}
	}

	s.log.Warn("login failed", zap.String("email", email))
	return nil, apperrors.ErrInvalidCredentials
}

// Signup registers a new account and returns its identity. A registered email
// yields ErrEmailExists.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*user.User, error) {
	s.delay.Wait(ctx)

	in := SignupRequest{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := s.validate.Struct(in); err != nil {
		s.log.Warn("signup validation failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.Email == in.Email {
			s.log.Warn("signup rejected, email taken", zap.String("email", in.Email))
			return nil, apperrors.ErrEmailExists
		}
	}

	u := user.User{
		ID:    strconv.Itoa(len(s.accounts) + 1),
		Name:  in.Name,
		Email: in.Email,
	}
	s.accounts = append(s.accounts, account{user: u, password: password})

	s.log.Info("account created", zap.String("user_id", u.ID), zap.String("email", u.Email))
	copied := u
	return &copied, nil
}

// formatValidationError converts validator.ValidationErrors into the typed
// field-message mapping the callers expect.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	ve := apperrors.NewValidationError()
	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			ve.Add(field, fmt.Sprintf("%s is required", field))
		case "email":
			ve.Add(field, fmt.Sprintf("%s must be a valid email", field))
		case "min":
			ve.Add(field, fmt.Sprintf("%s must be at least %s characters", field, e.Param()))
		case "max":
			ve.Add(field, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		default:
			ve.Add(field, fmt.Sprintf("%s is invalid", field))
		}
	}
	return ve
}
