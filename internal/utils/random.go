package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
	"strings"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/google/uuid"
)

var firstNames = []string{
	"Aarav", "Vivaan", "Aditya", "Arjun", "Rohan", "Ishaan", "Kabir", "Rahul", "Vikram", "Nikhil",
	"Ananya", "Diya", "Priya", "Sneha", "Kavya", "Meera", "Riya", "Pooja", "Neha", "Asha",
	"James", "Emma", "Noah", "Olivia", "Liam", "Sophia",
}
var lastNames = []string{
	"Sharma", "Verma", "Patel", "Reddy", "Iyer", "Nair", "Gupta", "Singh", "Rao", "Menon",
	"Kumar", "Das", "Joshi", "Mehta", "Shah", "Smith", "Brown", "Wilson",
}

func GenerateRandomName() string {
	return firstNames[mrand.Intn(len(firstNames))] + " " + lastNames[mrand.Intn(len(lastNames))]
}

func GenerateRandomRole() domain.Role {
	return domain.Roles[mrand.Intn(len(domain.Roles))]
}

func GenerateRandomAdminSubRole() domain.AdminSubRole {
	return domain.AdminSubRoles[mrand.Intn(len(domain.AdminSubRoles))]
}

func GenerateRandomFacultySubRole() domain.FacultySubRole {
	return domain.FacultySubRoles[mrand.Intn(len(domain.FacultySubRoles))]
}

var digits = "0123456789"

// GenerateEmailFromName builds "first.last123@domain"; the digit suffix keeps seeded emails mostly unique.
func GenerateEmailFromName(name string, emailDomain string) string {
	local := strings.Join(strings.Fields(strings.ToLower(name)), ".")

	digitsLength := mrand.Intn(3) + 2
	for i := 0; i < digitsLength; i++ {
		local += string(digits[mrand.Intn(len(digits))])
	}
	return local + "@" + emailDomain
}

// GenerateRandomAccount returns an unsaved account of the given role with a random name and
// a sub-role when the role needs one.
func GenerateRandomAccount(role domain.Role, passwordHash string, emailDomain string) *domain.Account {
	name := GenerateRandomName()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        domain.NormalizeEmail(GenerateEmailFromName(name, emailDomain)),
		PasswordHash: passwordHash,
		Role:         role,
	}

	switch role {
	case domain.RoleAdmin:
		sub := GenerateRandomAdminSubRole()
		account.AdminSubRole = &sub
	case domain.RoleFaculty:
		sub := GenerateRandomFacultySubRole()
		account.FacultySubRole = &sub
	}
	return account
}

func randomIndex(n int) int {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails if the OS entropy source is broken
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return int(i.Int64())
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", randomIndex(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	password := make([]rune, length)
	for i := range password {
		password[i] = letters[randomIndex(len(letters))]
	}
	return string(password)
}
