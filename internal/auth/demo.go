package auth

import (
	"fmt"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/collexus/erp/backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type DemoAccount struct {
	ID             string
	Name           string
	Email          string
	Password       string
	Role           domain.Role
	AdminSubRole   domain.AdminSubRole
	FacultySubRole domain.FacultySubRole
}

// DemoAccountList is the fixed set of accounts served when the account store is unreachable.
// cmd/seed can also insert them into a real store.
var DemoAccountList = []DemoAccount{
	{ID: "demo-student", Name: "Demo Student", Email: "student@demo.com", Password: "student123", Role: domain.RoleStudent},
	{ID: "demo-faculty", Name: "Demo Faculty", Email: "faculty@demo.com", Password: "faculty123", Role: domain.RoleFaculty, FacultySubRole: domain.FacultyHOD},
	{ID: "demo-admin", Name: "Demo Admin", Email: "admin@demo.com", Password: "admin123", Role: domain.RoleAdmin, AdminSubRole: domain.AdminFinancial},
	{ID: "demo-parent", Name: "Demo Parent", Email: "parent@demo.com", Password: "parent123", Role: domain.RoleParent},
}

// Account hashes the password with the given bcrypt cost and returns a storable account.
func (d DemoAccount) Account(cost int) (*domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(d.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password for %s: %w", d.Email, err)
	}

	account := &domain.Account{
		ID:           d.ID,
		Name:         d.Name,
		Email:        domain.NormalizeEmail(d.Email),
		PasswordHash: string(hash),
		Role:         d.Role,
	}
	if d.AdminSubRole != "" {
		sub := d.AdminSubRole
		account.AdminSubRole = &sub
	}
	if d.FacultySubRole != "" {
		sub := d.FacultySubRole
		account.FacultySubRole = &sub
	}
	return account, nil
}

// DemoAccounts builds the read-only fallback store. Hashing happens once, at start-up.
func DemoAccounts(cost int) (*repository.MemoryStore, error) {
	accounts := make([]*domain.Account, 0, len(DemoAccountList))
	for _, d := range DemoAccountList {
		account, err := d.Account(cost)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return repository.NewReadOnlyMemoryStore(accounts...), nil
}
