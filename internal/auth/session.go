package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const SessionCookieName = "__collexus_erp_token"

var ErrInvalidSession = errors.New("invalid session token")

type SessionClaims struct {
	Name           string                 `json:"name"`
	Email          string                 `json:"email"`
	Role           domain.Role            `json:"role"`
	AdminSubRole   *domain.AdminSubRole   `json:"adminSubRole,omitempty"`
	FacultySubRole *domain.FacultySubRole `json:"facultySubRole,omitempty"`
	jwt.RegisteredClaims
}

// SessionIssuer signs and verifies HS256 session tokens for resolved identities.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns the signed token and its expiry.
func (s *SessionIssuer) Issue(identity *domain.Identity) (string, time.Time, error) {
	now := s.now()
	expiration := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Name:           identity.Name,
		Email:          identity.Email,
		Role:           identity.Role,
		AdminSubRole:   identity.AdminSubRole,
		FacultySubRole: identity.FacultySubRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   identity.ID,
		},
	})

	ss, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return ss, expiration, nil
}

func (s *SessionIssuer) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
