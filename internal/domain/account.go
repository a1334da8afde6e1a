package domain

import (
	"slices"
	"strings"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
	RoleParent  Role = "parent"
)

var Roles = []Role{RoleStudent, RoleFaculty, RoleAdmin, RoleParent}

type AdminSubRole string

const (
	AdminFinancial AdminSubRole = "financial"
	AdminAcademic  AdminSubRole = "academic"
	AdminHostel    AdminSubRole = "hostel"
	AdminLibrary   AdminSubRole = "library"
)

var AdminSubRoles = []AdminSubRole{AdminFinancial, AdminAcademic, AdminHostel, AdminLibrary}

type FacultySubRole string

const (
	FacultyHOD          FacultySubRole = "hod"
	FacultyAssistantHOD FacultySubRole = "assistant_hod"
	FacultyProfessor    FacultySubRole = "professor"
)

var FacultySubRoles = []FacultySubRole{FacultyHOD, FacultyAssistantHOD, FacultyProfessor}

type Account struct {
	ID             string          `json:"id" bson:"id"`
	Name           string          `json:"name" bson:"name"`
	Email          string          `json:"email" bson:"email"`
	PasswordHash   string          `json:"-" bson:"password_hash"`
	Role           Role            `json:"role" bson:"role"`
	AdminSubRole   *AdminSubRole   `json:"adminSubRole,omitempty" bson:"admin_sub_role,omitempty"`
	FacultySubRole *FacultySubRole `json:"facultySubRole,omitempty" bson:"faculty_sub_role,omitempty"`
	Avatar         *string         `json:"avatar,omitempty" bson:"avatar,omitempty"`
	CreatedAt      time.Time       `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" bson:"updated_at"`
	Version        int32           `json:"-" bson:"version"`
}

// Identity is the secret-free projection of an Account handed to sessions and clients.
type Identity struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Role           Role            `json:"role"`
	AdminSubRole   *AdminSubRole   `json:"adminSubRole,omitempty"`
	FacultySubRole *FacultySubRole `json:"facultySubRole,omitempty"`
	Avatar         *string         `json:"avatar,omitempty"`
}

func (a *Account) Identity() *Identity {
	id := &Identity{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
		Role:  a.Role,
	}
	if a.AdminSubRole != nil {
		s := *a.AdminSubRole
		id.AdminSubRole = &s
	}
	if a.FacultySubRole != nil {
		s := *a.FacultySubRole
		id.FacultySubRole = &s
	}
	if a.Avatar != nil {
		s := *a.Avatar
		id.Avatar = &s
	}
	return id
}

// Validate checks the role/sub-role invariants of an account before it is persisted.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if a.Email == "" {
		return NewValidationError("email", "email is required")
	}
	if a.PasswordHash == "" {
		return NewValidationError("password", "password is required")
	}
	if _, err := ParseRole(string(a.Role)); err != nil {
		return err
	}

	switch a.Role {
	case RoleAdmin:
		if a.AdminSubRole == nil {
			return NewValidationError("adminSubRole", "admin sub-role is required for admin accounts")
		}
		if _, err := ParseAdminSubRole(string(*a.AdminSubRole)); err != nil {
			return err
		}
	default:
		if a.AdminSubRole != nil {
			return NewValidationError("adminSubRole", "admin sub-role is only allowed for admin accounts")
		}
	}

	switch a.Role {
	case RoleFaculty:
		if a.FacultySubRole == nil {
			return NewValidationError("facultySubRole", "faculty sub-role is required for faculty accounts")
		}
		// stored values are canonical; spellings are only accepted at input
		if !slices.Contains(FacultySubRoles, *a.FacultySubRole) {
			return NewValidationError("facultySubRole", "faculty sub-role must be one of hod, assistant_hod, professor")
		}
	default:
		if a.FacultySubRole != nil {
			return NewValidationError("facultySubRole", "faculty sub-role is only allowed for faculty accounts")
		}
	}

	return nil
}

// NormalizeEmail is applied to every email before it reaches an account store; stores compare exactly.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
