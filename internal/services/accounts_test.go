package services

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/models"
)

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 7
	}
	return args.Error(0)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func TestRegisterHashesPasswordAndLowercasesEmail(t *testing.T) {
	mockUsers := new(MockUsers)
	mockUsers.On("EmailExists", mock.Anything, "user@example.com").Return(false, nil)
	mockUsers.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)

	service := NewAccountService(mockUsers)

	user, err := service.Register(context.Background(), " User@Example.COM ", "hunter2hunter2")

	require.NoError(t, err)
	require.Equal(t, "user@example.com", user.Email)
	require.Equal(t, models.RoleCustomer, user.Role)
	require.NotEqual(t, "hunter2hunter2", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter2hunter2")))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	mockUsers := new(MockUsers)
	mockUsers.On("EmailExists", mock.Anything, "user@example.com").Return(true, nil)

	service := NewAccountService(mockUsers)

	_, err := service.Register(context.Background(), "user@example.com", "hunter2hunter2")

	require.Error(t, err)
	require.True(t, faults.IsValidation(err))
	require.Contains(t, err.Error(), "email already exists")
	mockUsers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	service := NewAccountService(new(MockUsers))

	_, err := service.Register(context.Background(), "not-an-email", "hunter2hunter2")
	require.True(t, faults.IsValidation(err))

	_, err = service.Register(context.Background(), "user@example.com", "short")
	require.True(t, faults.IsValidation(err))
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	mockUsers := new(MockUsers)
	mockUsers.On("GetByEmail", mock.Anything, "user@example.com").Return(&models.User{
		ID:           7,
		Email:        "user@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
	}, nil)

	service := NewAccountService(mockUsers)

	user, err := service.Authenticate(context.Background(), "User@Example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, uint(7), user.ID)

	_, err = service.Authenticate(context.Background(), "user@example.com", "wrong")
	require.True(t, faults.IsValidation(err))
}

func TestAuthenticateUnknownEmailIsValidationError(t *testing.T) {
	mockUsers := new(MockUsers)
	mockUsers.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(nil, errors.Wrap(gorm.ErrRecordNotFound, "failed to get user by email"))

	service := NewAccountService(mockUsers)

	_, err := service.Authenticate(context.Background(), "nobody@example.com", "whatever")

	// Same error as a bad password so the response doesn't leak registration
	require.True(t, faults.IsValidation(err))
	require.Contains(t, err.Error(), "invalid email or password")
}
