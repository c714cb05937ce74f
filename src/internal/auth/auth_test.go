package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
)

func testUser() model.User {
	return model.User{
		UserID:    "u1",
		FirstName: "Ada",
		LastName:  "Nkosi",
		Email:     "ada@example.com",
		Role:      model.RoleManager,
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	svc := NewService("secret", time.Hour)

	hash, err := svc.HashPassword("correct-horse-battery")
	assert.NoError(t, err)
	assert.NotEqual(t, "correct-horse-battery", hash)

	assert.True(t, svc.CheckPassword("correct-horse-battery", hash))
	assert.False(t, svc.CheckPassword("wrong-password", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("secret", time.Hour)

	token, err := svc.GenerateToken(testUser())
	assert.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada Nkosi", claims.Name)
	assert.Equal(t, model.RoleManager, claims.Role)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewService("secret", -time.Minute)

	token, err := svc.GenerateToken(testUser())
	assert.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := NewService("secret-a", time.Hour)
	verifier := NewService("secret-b", time.Hour)

	token, err := issuer.GenerateToken(testUser())
	assert.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewService("secret", time.Hour)

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	svc := NewService("secret", time.Hour)

	token, err := svc.ExtractTokenFromHeader("Bearer abc123")
	assert.NoError(t, err)
	assert.Equal(t, "abc123", token)

	_, err = svc.ExtractTokenFromHeader("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ExtractTokenFromHeader("Basic abc123")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ExtractTokenFromHeader("Bearer")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidatePassword(t *testing.T) {
	svc := NewService("secret", time.Hour)

	assert.Error(t, svc.ValidatePassword("short"))
	assert.NoError(t, svc.ValidatePassword("long-enough"))
}
