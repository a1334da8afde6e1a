package domain

import (
	"slices"
	"strings"
	"unicode"
)

// facultySubRoleSpellings maps folded input spellings to canonical faculty sub-roles.
var facultySubRoleSpellings = map[string]FacultySubRole{
	"hod":                FacultyHOD,
	"head_of_department": FacultyHOD,
	"assistant_hod":      FacultyAssistantHOD,
	"asst_hod":           FacultyAssistantHOD,
	"assistanthod":       FacultyAssistantHOD,
	"professor":          FacultyProfessor,
	"prof":               FacultyProfessor,
	"teacher":            FacultyProfessor,
}

func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !slices.Contains(Roles, role) {
		return "", NewValidationError("role", "role must be one of student, faculty, admin, parent")
	}
	return role, nil
}

// ParseAdminSubRole matches exactly; admin sub-roles come from a fixed list in the client.
func ParseAdminSubRole(raw string) (AdminSubRole, error) {
	sub := AdminSubRole(raw)
	if !slices.Contains(AdminSubRoles, sub) {
		return "", NewValidationError("adminSubRole", "admin sub-role must be one of financial, academic, hostel, library")
	}
	return sub, nil
}

// NormalizeFacultySubRole folds case, whitespace, hyphens and underscores, then resolves the
// result through facultySubRoleSpellings. "Assistant HOD", "assistant-hod" and "assistant_hod"
// all yield FacultyAssistantHOD.
func NormalizeFacultySubRole(raw string) (FacultySubRole, error) {
	if sub, ok := facultySubRoleSpellings[foldSubRole(raw)]; ok {
		return sub, nil
	}
	return "", NewValidationError("facultySubRole", "faculty sub-role must be one of hod, assistant_hod, professor")
}

func foldSubRole(raw string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingSep = false
		b.WriteRune(r)
	}
	return b.String()
}

// SubRoleFields carries every key a client may use to transmit a sub-role.
type SubRoleFields struct {
	SubRole             string `json:"subRole"`
	AdminSubRole        string `json:"adminSubRole"`
	FacultySubRole      string `json:"facultySubRole"`
	FacultySubRoleSnake string `json:"faculty_sub_role"`
	AdminSubRoleSnake   string `json:"admin_sub_role"`
}

// ResolveClaimedSubRole returns the raw sub-role that applies to role, regardless of the key
// it was sent under. The empty string means none was supplied.
func (f SubRoleFields) ResolveClaimedSubRole(role Role) string {
	var candidates []string
	switch role {
	case RoleAdmin:
		candidates = []string{f.AdminSubRole, f.AdminSubRoleSnake, f.SubRole}
	case RoleFaculty:
		candidates = []string{f.FacultySubRole, f.FacultySubRoleSnake, f.SubRole}
	default:
		return ""
	}
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

// RequiresSubRole reports whether accounts of this role carry a sub-role.
func (r Role) RequiresSubRole() bool {
	return r == RoleAdmin || r == RoleFaculty
}

// ResolveSubRoles validates the raw sub-role claimed for role and returns it in the field that
// role uses. Roles without sub-roles ignore raw.
func ResolveSubRoles(role Role, raw string) (*AdminSubRole, *FacultySubRole, error) {
	switch role {
	case RoleAdmin:
		if strings.TrimSpace(raw) == "" {
			return nil, nil, NewValidationError("adminSubRole", "admin sub-role is required")
		}
		sub, err := ParseAdminSubRole(raw)
		if err != nil {
			return nil, nil, err
		}
		return &sub, nil, nil
	case RoleFaculty:
		if strings.TrimSpace(raw) == "" {
			return nil, nil, NewValidationError("facultySubRole", "faculty sub-role is required")
		}
		sub, err := NormalizeFacultySubRole(raw)
		if err != nil {
			return nil, nil, err
		}
		return nil, &sub, nil
	default:
		return nil, nil, nil
	}
}
