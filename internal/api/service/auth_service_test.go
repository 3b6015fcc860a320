package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"grimoire/internal/api/models"
	"grimoire/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MockUserRepository mocks the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret",
		JWTExpiry: 24 * time.Hour,
	}
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)

		svc := NewAuthService(repo, testConfig())
		user, err := svc.Signup(ctx, "reader@example.com", "correct-horse")
		require.NoError(t, err)

		assert.Equal(t, "reader@example.com", user.Email)
		// stored value is a bcrypt hash of the submitted password, never the plaintext
		assert.NotEqual(t, "correct-horse", user.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("correct-horse")))
		repo.AssertExpectations(t)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testConfig())

		for _, email := range []string{"", "not-an-email", "a@", "Reader <reader@example.com>"} {
			_, err := svc.Signup(ctx, email, "correct-horse")
			assert.ErrorIs(t, err, ErrInvalidEmail, "email %q", email)
		}
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(gorm.ErrDuplicatedKey)

		svc := NewAuthService(repo, testConfig())
		_, err := svc.Signup(ctx, "reader@example.com", "correct-horse")
		assert.ErrorIs(t, err, ErrEmailInUse)
	})

	t.Run("StorageFailure", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(errors.New("connection reset"))

		svc := NewAuthService(repo, testConfig())
		_, err := svc.Signup(ctx, "reader@example.com", "correct-horse")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrEmailInUse)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: "2f5c9d1e-0000-0000-0000-000000000001", Email: "reader@example.com", Password: string(hash)}

	t.Run("Success", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByEmail", ctx, "reader@example.com").Return(user, nil)

		svc := NewAuthService(repo, testConfig())
		token, got, err := svc.Login(ctx, "reader@example.com", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("WrongPasswordAndUnknownEmailAreIndistinguishable", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByEmail", ctx, "reader@example.com").Return(user, nil)
		repo.On("FindByEmail", ctx, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound)

		svc := NewAuthService(repo, testConfig())

		_, _, wrongPass := svc.Login(ctx, "reader@example.com", "wrong")
		_, _, unknownEmail := svc.Login(ctx, "ghost@example.com", "wrong")

		assert.ErrorIs(t, wrongPass, ErrInvalidCredentials)
		assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
		assert.Equal(t, wrongPass.Error(), unknownEmail.Error())
	})
}

func TestValidateToken(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: "2f5c9d1e-0000-0000-0000-000000000002", Email: "reader@example.com", Password: string(hash)}

	t.Run("Garbage", func(t *testing.T) {
		svc := NewAuthService(new(MockUserRepository), testConfig())
		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByEmail", ctx, user.Email).Return(user, nil)

		cfg := testConfig()
		cfg.JWTExpiry = -time.Minute
		svc := NewAuthService(repo, cfg)

		token, _, err := svc.Login(ctx, user.Email, "pw")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByEmail", ctx, user.Email).Return(user, nil)

		svc := NewAuthService(repo, testConfig())
		token, _, err := svc.Login(ctx, user.Email, "pw")
		require.NoError(t, err)

		other := NewAuthService(new(MockUserRepository), &config.Config{JWTSecret: "different", JWTExpiry: time.Hour})
		_, err = other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
