package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senyabanana/surplus-market/internal/auth"
	"github.com/senyabanana/surplus-market/internal/models"
)

func signed(t *testing.T, ttl time.Duration, companyID *int64) string {
	t.Helper()
	token, err := auth.NewJWTService("session-secret", ttl).SignAccessToken(models.Identity{UserID: uuid.New(), CompanyID: companyID, Role: models.RoleMember})
	require.NoError(t, err)
	return token
}

func TestSession_loginRestoreLogout(t *testing.T) {
	store := FileStore{Path: filepath.Join(t.TempDir(), "creds", "token")}
	companyID := int64(3)
	token := signed(t, time.Hour, &companyID)

	s := New(store)
	assert.False(t, s.Authenticated())
	require.NoError(t, s.Login(token))
	assert.True(t, s.Authenticated())

	restored := New(store)
	require.NoError(t, restored.Restore())
	assert.True(t, restored.Authenticated())
	id, ok := restored.Identity()
	require.True(t, ok)
	assert.True(t, id.Owns(companyID))
	assert.Equal(t, token, restored.Token())

	require.NoError(t, restored.Logout())
	assert.False(t, restored.Authenticated())
	assert.Empty(t, restored.Token())

	again := New(store)
	require.NoError(t, again.Restore())
	assert.False(t, again.Authenticated())
}

func TestSession_restoreDropsExpiredToken(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, store.Save(signed(t, time.Hour, nil)))

	s := New(store)
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, s.Restore())
	assert.False(t, s.Authenticated())

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestSession_loginRejectsGarbage(t *testing.T) {
	s := New(&MemoryStore{})
	assert.Error(t, s.Login("not-a-token"))
	assert.False(t, s.Authenticated())
}

func TestSession_expiresWhileHeld(t *testing.T) {
	companyID := int64(5)
	s := New(&MemoryStore{})
	require.NoError(t, s.Login(signed(t, time.Hour, &companyID)))
	assert.True(t, s.Authenticated())

	s.now = func() time.Time { return time.Now().Add(61 * time.Minute) }
	assert.False(t, s.Authenticated())
	_, ok := s.Identity()
	assert.False(t, ok)
}
