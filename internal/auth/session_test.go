package auth

import (
	"testing"
	"time"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	issuer := NewSessionIssuer("secret", time.Hour)
	academic := domain.AdminAcademic

	token, expiration, err := issuer.Issue(&domain.Identity{ID: "a-1", Name: "Admin", Email: "admin@x.test", Role: domain.RoleAdmin, AdminSubRole: &academic})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiration, 5*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "a-1", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	require.NotNil(t, claims.AdminSubRole)
	assert.Equal(t, domain.AdminAcademic, *claims.AdminSubRole)
	assert.Nil(t, claims.FacultySubRole)
}

func TestSessionRejectsOtherSecret(t *testing.T) {
	token, _, err := NewSessionIssuer("secret", time.Hour).Issue(&domain.Identity{ID: "a-1", Role: domain.RoleStudent})
	require.NoError(t, err)

	_, err = NewSessionIssuer("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionRejectsExpired(t *testing.T) {
	issuer := NewSessionIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := issuer.Issue(&domain.Identity{ID: "a-1", Role: domain.RoleStudent})
	require.NoError(t, err)

	_, err = NewSessionIssuer("secret", time.Minute).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionRejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		Role:             domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "a-1"},
	})
	ss, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewSessionIssuer("secret", time.Hour).Parse(ss)
	assert.ErrorIs(t, err, ErrInvalidSession)
}
