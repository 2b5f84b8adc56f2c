package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senyabanana/surplus-market/internal/models"
)

func companyID(id int64) *int64 { return &id }

func TestSignAndVerify(t *testing.T) {
	svc := NewJWTService("test-jwt-secret-at-least-32-characters-long", time.Hour)
	id := models.Identity{UserID: uuid.New(), CompanyID: companyID(12), Role: models.RoleMember}

	token, err := svc.SignAccessToken(id)
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.UserID, claims.UserID)
	require.NotNil(t, claims.CompanyID)
	assert.Equal(t, int64(12), *claims.CompanyID)
	assert.Equal(t, id, claims.Identity())
}

func TestVerify_wrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", time.Hour).SignAccessToken(models.Identity{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", time.Hour).VerifyToken(token)
	assert.Error(t, err)
}

func TestVerify_expired(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.SignAccessToken(models.Identity{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = NewJWTService("secret", time.Minute).VerifyToken(token)
	assert.Error(t, err)
}

func TestReadClaims(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	id := models.Identity{UserID: uuid.New(), Role: models.RoleAdmin}
	token, err := svc.SignAccessToken(id)
	require.NoError(t, err)

	claims, err := ReadClaims(token, time.Now())
	require.NoError(t, err)
	assert.True(t, claims.Identity().IsAdmin())

	_, err = ReadClaims(token, time.Now().Add(2*time.Hour))
	assert.True(t, errors.Is(err, ErrTokenExpired))

	_, err = ReadClaims("not-a-token", time.Now())
	assert.Error(t, err)
}

func TestIdentity_defaultsToMember(t *testing.T) {
	c := &Claims{UserID: uuid.New()}
	assert.Equal(t, models.RoleMember, c.Identity().Role)
}
