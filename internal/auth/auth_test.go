package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrounds/rounds-cli/internal/model"
)

func testUser() *model.User {
	return &model.User{ID: "u-1", Username: "resident1", Role: model.RoleResident}
}

func TestIssueAndVerify(t *testing.T) {
	tk := NewTokens("test-secret", time.Hour)

	signed, err := tk.Issue(testUser())
	require.NoError(t, err)

	claims, err := tk.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "resident1", claims.Username)
	assert.Equal(t, model.RoleResident, claims.Role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret-a", time.Hour).Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokens("secret-b", time.Hour).Verify(signed)
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	tk := NewTokens("test-secret", time.Minute)
	tk.now = func() time.Time { return time.Date(2024, 6, 14, 8, 0, 0, 0, time.UTC) }

	signed, err := tk.Issue(testUser())
	require.NoError(t, err)

	tk.now = func() time.Time { return time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC) }
	_, err = tk.Verify(signed)
	assert.Error(t, err)
}

func TestRefreshExtendsExpiry(t *testing.T) {
	tk := NewTokens("test-secret", time.Hour)
	tk.now = func() time.Time { return time.Date(2024, 6, 14, 8, 0, 0, 0, time.UTC) }

	signed, err := tk.Issue(testUser())
	require.NoError(t, err)
	claims, err := tk.Verify(signed)
	require.NoError(t, err)

	tk.now = func() time.Time { return time.Date(2024, 6, 14, 8, 45, 0, 0, time.UTC) }
	refreshed, err := tk.Refresh(claims)
	require.NoError(t, err)

	tk.now = func() time.Time { return time.Date(2024, 6, 14, 9, 30, 0, 0, time.UTC) }
	got, err := tk.Verify(refreshed)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.Subject)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
