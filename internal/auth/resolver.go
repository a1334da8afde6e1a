package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/collexus/erp/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// AccountLookup is the only capability the resolver needs from an account store.
type AccountLookup interface {
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type Credentials struct {
	Email    string
	Password string
	Role     string
	SubRole  string
}

// Resolver decides whether a set of credentials identifies exactly one account.
// When the primary lookup fails for any reason other than a miss and a fallback is
// configured, the same checks are run against the fallback.
type Resolver struct {
	primary  AccountLookup
	fallback AccountLookup
	logger   *slog.Logger
}

func NewResolver(primary AccountLookup, fallback AccountLookup, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// dummyHash is compared against when the email is unknown so that a miss costs the same
// bcrypt work as a wrong password.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("collexus-unknown-account"), bcrypt.DefaultCost)
	return hash
})

type claim struct {
	role           domain.Role
	adminSubRole   domain.AdminSubRole
	facultySubRole domain.FacultySubRole
}

func parseClaim(c Credentials) (*claim, error) {
	if strings.TrimSpace(c.Email) == "" {
		return nil, domain.NewValidationError("email", "email is required")
	}
	if c.Password == "" {
		return nil, domain.NewValidationError("password", "password is required")
	}
	if c.Role == "" {
		return nil, domain.NewValidationError("role", "role is required")
	}

	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return nil, err
	}

	cl := &claim{role: role}
	switch role {
	case domain.RoleAdmin:
		if strings.TrimSpace(c.SubRole) == "" {
			return nil, domain.NewValidationError("adminSubRole", "admin sub-role is required")
		}
		if cl.adminSubRole, err = domain.ParseAdminSubRole(c.SubRole); err != nil {
			return nil, err
		}
	case domain.RoleFaculty:
		if strings.TrimSpace(c.SubRole) == "" {
			return nil, domain.NewValidationError("facultySubRole", "faculty sub-role is required")
		}
		if cl.facultySubRole, err = domain.NormalizeFacultySubRole(c.SubRole); err != nil {
			return nil, err
		}
	}
	return cl, nil
}

// Authenticate returns the sanitized identity for valid credentials. Every check failure
// yields domain.ErrInvalidCredentials; malformed input yields a *domain.ValidationError.
func (r *Resolver) Authenticate(ctx context.Context, c Credentials) (*domain.Identity, error) {
	cl, err := parseClaim(c)
	if err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(c.Email)

	identity, err := r.resolve(ctx, r.primary, email, c.Password, cl)
	if err == nil || !errors.Is(err, domain.ErrDependencyUnavailable) {
		return identity, err
	}

	if r.fallback == nil {
		return nil, err
	}

	r.logger.Warn("account store unavailable, using demo accounts", "error", err)
	return r.resolve(ctx, r.fallback, email, c.Password, cl)
}

func (r *Resolver) resolve(ctx context.Context, lookup AccountLookup, email, password string, cl *claim) (*domain.Identity, error) {
	account, err := lookup.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return nil, r.reject("unknown_email", email)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrDependencyUnavailable, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			r.logger.Error("stored password hash is unusable", "account", account.ID, "error", err)
		}
		return nil, r.reject("password_mismatch", email)
	}

	if account.Role != cl.role {
		return nil, r.reject("role_mismatch", email)
	}

	switch cl.role {
	case domain.RoleAdmin:
		if account.AdminSubRole == nil || *account.AdminSubRole != cl.adminSubRole {
			return nil, r.reject("sub_role_mismatch", email)
		}
	case domain.RoleFaculty:
		if account.FacultySubRole == nil || *account.FacultySubRole != cl.facultySubRole {
			return nil, r.reject("sub_role_mismatch", email)
		}
	}

	return account.Identity(), nil
}

func (r *Resolver) reject(reason, email string) error {
	r.logger.Info("authentication rejected", "reason", reason, "email", email)
	return domain.ErrInvalidCredentials
}
