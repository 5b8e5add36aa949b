package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/handcrafthq/marketplace/internal/auth"
	"github.com/handcrafthq/marketplace/internal/domain"
	apperrors "github.com/handcrafthq/marketplace/pkg/errors"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// --- Test Helpers ---

func newTestUserService(repo *mockUserRepository) *UserService {
	jwtManager := auth.NewJWTManager("test-secret", 15*time.Minute, 24*time.Hour)
	return NewUserService(repo, jwtManager, newTestLogger())
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// --- Register Tests ---

func TestRegister_DefaultsToCustomer(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	user, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Maya",
		Email:    "maya@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))
	repo.AssertExpectations(t)
}

func TestRegister_SellerRole(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	user, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Ade",
		Email:    "ade@example.com",
		Password: "secret1",
		Role:     domain.RoleSeller,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, user.Role)
}

func TestRegister_AdminNotSelfAssignable(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	_, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Eve",
		Email:    "eve@example.com",
		Password: "secret1",
		Role:     domain.RoleAdmin,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Create")
}

func TestRegister_ShortPassword(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	_, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Maya",
		Email:    "maya@example.com",
		Password: "12345",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRegister_UnknownRole(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	_, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Maya",
		Email:    "maya@example.com",
		Password: "secret1",
		Role:     "superuser",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	repo.On("Create", mock.Anything, mock.Anything).Return(apperrors.ErrAlreadyExists)

	_, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Maya",
		Email:    "maya@example.com",
		Password: "secret1",
	})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	repo.On("GetByEmail", mock.Anything, "maya@example.com").Return(&domain.User{
		ID:           "user-1",
		Email:        "maya@example.com",
		PasswordHash: hashOf(t, "secret1"),
		Role:         domain.RoleUser,
	}, nil)

	user, pair, err := svc.Login(context.Background(), "maya@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	repo.On("GetByEmail", mock.Anything, "maya@example.com").Return(&domain.User{
		ID:           "user-1",
		PasswordHash: hashOf(t, "secret1"),
	}, nil)

	_, _, err := svc.Login(context.Background(), "maya@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLogin_UnknownEmail(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	repo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	_, _, err := svc.Login(context.Background(), "ghost@example.com", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "unknown email is indistinguishable from a bad password")
}

// --- Refresh Tests ---

func TestRefresh_Success(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	repo.On("GetByEmail", mock.Anything, "maya@example.com").Return(&domain.User{
		ID:           "user-1",
		Email:        "maya@example.com",
		PasswordHash: hashOf(t, "secret1"),
		Role:         domain.RoleUser,
	}, nil)
	repo.On("GetByID", mock.Anything, "user-1").Return(&domain.User{
		ID:    "user-1",
		Email: "maya@example.com",
		Role:  domain.RoleSeller, // role changed since login
	}, nil)

	_, pair, err := svc.Login(context.Background(), "maya@example.com", "secret1")
	require.NoError(t, err)

	newPair, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, newPair.AccessToken)
}

func TestRefresh_InvalidToken(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	_, err := svc.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_DeletedUser(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestUserService(repo)

	repo.On("GetByEmail", mock.Anything, "maya@example.com").Return(&domain.User{
		ID:           "user-1",
		PasswordHash: hashOf(t, "secret1"),
	}, nil)
	repo.On("GetByID", mock.Anything, "user-1").Return(nil, apperrors.ErrNotFound)

	_, pair, err := svc.Login(context.Background(), "maya@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
