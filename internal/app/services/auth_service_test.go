package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/pkg/apperrors"
	"github.com/yigit/assignhub/internal/pkg/auth"
)

func newAuthFixture() (*mockUserRepo, *mockTokenRepo, *fakeTx, *auth.JWTService, AuthService) {
	users := &mockUserRepo{}
	tokens := &mockTokenRepo{}
	tx := &fakeTx{}
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "assignhub-test",
	})
	return users, tokens, tx, jwtService, NewAuthService(users, tokens, tx, jwtService, zerolog.Nop())
}

func TestRegister(t *testing.T) {
	users, tokens, _, jwtService, svc := newAuthFixture()

	users.On("EmailExists", mock.Anything, "alice@student.edu").Return(false, nil)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "alice@student.edu" && u.Status == models.UserStatusActive &&
			auth.CheckPassword(u.Password, "password123")
	})).Return(nil)
	tokens.On("CreateToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     " Alice ",
		Email:    " Alice@Student.edu ",
		Password: "password123",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Alice", resp.User.Name)

	claims, err := jwtService.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users, _, _, _, svc := newAuthFixture()
	users.On("EmailExists", mock.Anything, "alice@student.edu").Return(true, nil)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Alice", Email: "alice@student.edu", Password: "password123", Role: models.RoleStudent,
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
	assert.Equal(t, "User with this email alice@student.edu already exists", apperrors.Message(err))
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	active := student("alice")
	active.Password = hash
	blocked := student("bob")
	blocked.Password = hash
	blocked.Status = models.UserStatusBlocked

	users, tokens, _, _, svc := newAuthFixture()
	users.On("GetByEmail", mock.Anything, active.Email).Return(active, nil)
	users.On("GetByEmail", mock.Anything, blocked.Email).Return(blocked, nil)
	users.On("GetByEmail", mock.Anything, "ghost@student.edu").Return(nil, apperrors.ErrUserNotFound)
	tokens.On("CreateToken", mock.Anything, mock.Anything, active.ID, mock.Anything).Return(nil)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: active.Email, Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, active.ID, resp.User.ID)

	_, err = svc.Login(context.Background(), &dto.LoginRequest{Email: active.Email, Password: "wrong-password"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &dto.LoginRequest{Email: "ghost@student.edu", Password: "password123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.Equal(t, "Invalid email or password", apperrors.Message(err))

	_, err = svc.Login(context.Background(), &dto.LoginRequest{Email: blocked.Email, Password: "password123"})
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestRefreshToken_Rotates(t *testing.T) {
	users, tokens, tx, _, svc := newAuthFixture()
	u := student("alice")

	tokens.On("GetToken", mock.Anything, "old-token").Return(&models.RefreshToken{
		Token: "old-token", UserID: u.ID, ExpiryDate: time.Now().Add(time.Hour),
	}, nil)
	users.On("GetByID", mock.Anything, u.ID).Return(u, nil)
	tokens.On("RevokeToken", mock.Anything, "old-token").Return(nil)
	tokens.On("CreateToken", mock.Anything, mock.Anything, u.ID, mock.Anything).Return(nil)

	resp, err := svc.RefreshToken(context.Background(), "old-token")
	require.NoError(t, err)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.Equal(t, 1, tx.calls)
	tokens.AssertCalled(t, "RevokeToken", mock.Anything, "old-token")
}

func TestRefreshToken_Rejections(t *testing.T) {
	users, tokens, _, _, svc := newAuthFixture()
	blocked := student("bob")
	blocked.Status = models.UserStatusBlocked

	tokens.On("GetToken", mock.Anything, "revoked").Return(nil, apperrors.ErrTokenRevoked)
	tokens.On("GetToken", mock.Anything, "blocked").Return(&models.RefreshToken{Token: "blocked", UserID: blocked.ID}, nil)
	users.On("GetByID", mock.Anything, blocked.ID).Return(blocked, nil)

	_, err := svc.RefreshToken(context.Background(), " ")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	_, err = svc.RefreshToken(context.Background(), "revoked")
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	_, err = svc.RefreshToken(context.Background(), "blocked")
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestLogout(t *testing.T) {
	_, tokens, _, _, svc := newAuthFixture()
	owner := uuid.New()
	tokens.On("GetToken", mock.Anything, "t1").Return(&models.RefreshToken{Token: "t1", UserID: owner}, nil)
	tokens.On("RevokeToken", mock.Anything, "t1").Return(nil)

	err := svc.Logout(context.Background(), dto.Caller{UserID: uuid.New(), Role: models.RoleStudent}, "t1")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	tokens.AssertNotCalled(t, "RevokeToken", mock.Anything, "t1")

	require.NoError(t, svc.Logout(context.Background(), dto.Caller{UserID: owner, Role: models.RoleStudent}, "t1"))
	tokens.AssertCalled(t, "RevokeToken", mock.Anything, "t1")
}
