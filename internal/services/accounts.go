package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/models"
)

// UserStore is the slice of the user repository the account service needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// AccountService handles registration and credential checks.
type AccountService struct {
	users UserStore
}

// NewAccountService creates a new account service
func NewAccountService(users UserStore) *AccountService {
	return &AccountService{users: users}
}

// Register creates a customer account. Emails are stored lowercased so the
// uniqueness check is case-insensitive.
func (s *AccountService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, faults.Validation("a valid email address is required")
	}
	if len(password) < 8 {
		return nil, faults.Validation("password must be at least 8 characters")
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, faults.Unavailable("order store", err)
	}
	if exists {
		return nil, faults.Validation("email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, faults.Unavailable("order store", err)
	}

	return user, nil
}

// Authenticate checks a credential pair and returns the matching user. Bad
// credentials come back as a single validation error so the response does not
// reveal whether the email is registered.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, faults.Validation("invalid email or password")
		}
		return nil, faults.Unavailable("order store", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, faults.Validation("invalid email or password")
	}

	return user, nil
}
