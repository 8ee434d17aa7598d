package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/bike-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func newTestService(t *testing.T) *Service {
	t.Helper()
	service, err := NewService(testSecret)
	require.NoError(t, err)
	return service
}

func TestNewService(t *testing.T) {
	service, err := NewService(testSecret)
	assert.NoError(t, err)
	assert.NotNil(t, service)
	assert.NotEmpty(t, service.jwtSecret)
	assert.Equal(t, 24*time.Hour, service.tokenExp)

	_, err = NewService("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestService_HashPassword(t *testing.T) {
	service := newTestService(t)

	password := "testpassword123"
	hash, err := service.HashPassword(password)

	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	// Salted: two hashes of the same password differ.
	again, err := service.HashPassword(password)
	assert.NoError(t, err)
	assert.NotEqual(t, hash, again)
}

func TestService_CheckPassword(t *testing.T) {
	service := newTestService(t)

	password := "testpassword123"
	hash, _ := service.HashPassword(password)

	assert.True(t, service.CheckPassword(password, hash))
	assert.False(t, service.CheckPassword("wrongpassword", hash))
	assert.False(t, service.CheckPassword(password, "not-a-bcrypt-hash"))
}

func TestService_ValidatePassword(t *testing.T) {
	service := newTestService(t)

	assert.NoError(t, service.ValidatePassword("validpassword123"))

	err := service.ValidatePassword("short")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least 8 characters")
}

func TestService_ValidateToken(t *testing.T) {
	service := newTestService(t)

	user := &models.User{
		ID:   primitive.NewObjectID(),
		Role: models.RoleMechanic,
	}

	token, err := service.GenerateToken(user)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, user.Role, claims.Role)

	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)

	_, err = service.ValidateToken("")
	assert.Equal(t, ErrMissingToken, err)

	// The scheme is stripped by ExtractTokenFromHeader, not here.
	_, err = service.ValidateToken("Bearer " + token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_WrongSecret(t *testing.T) {
	service := newTestService(t)
	other, err := NewService("another-secret")
	require.NoError(t, err)

	token, err := other.GenerateToken(&models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_RejectsUnknownRole(t *testing.T) {
	service := newTestService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": primitive.NewObjectID().Hex(),
		"role":    "superuser",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = service.ValidateToken(signed)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_TokenExpiration(t *testing.T) {
	service := newTestService(t)

	user := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	token, _ := service.GenerateToken(user)

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)

	now := time.Now().Unix()
	assert.Greater(t, claims.Exp, now)
	assert.LessOrEqual(t, claims.Exp, now+int64(TokenValidity.Seconds())+1)

	// Jump past the validity window.
	service.now = func() time.Time { return time.Now().Add(TokenValidity + time.Minute) }
	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_Resolve(t *testing.T) {
	service := newTestService(t)

	user := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	token, _ := service.GenerateToken(user)

	id, err := service.Resolve(token)
	assert.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: user.ID.Hex(), Role: models.RoleAdmin}, id)

	_, err = service.Resolve("nope")
	assert.Error(t, err)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service := newTestService(t)

	extracted, err := service.ExtractTokenFromHeader("Bearer valid-token")
	assert.NoError(t, err)
	assert.Equal(t, "valid-token", extracted)

	_, err = service.ExtractTokenFromHeader("")
	assert.Equal(t, ErrMissingToken, err)

	_, err = service.ExtractTokenFromHeader("InvalidFormat")
	assert.Equal(t, ErrInvalidToken, err)

	_, err = service.ExtractTokenFromHeader("Bearer ")
	assert.Equal(t, ErrInvalidToken, err)

	_, err = service.ExtractTokenFromHeader("Token valid-token")
	assert.Equal(t, ErrInvalidToken, err)

	_, err = service.ExtractTokenFromHeader("bearer valid-token")
	assert.Equal(t, ErrInvalidToken, err)
}
