package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/collexus/erp/backend/internal/auth"
	"github.com/collexus/erp/backend/internal/config"
	"github.com/collexus/erp/backend/internal/domain"
	"github.com/collexus/erp/backend/internal/notify"
	"github.com/collexus/erp/backend/internal/repository"
	"github.com/collexus/erp/backend/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// InitialAdmin makes sure the configured administrator exists. An existing account with the
// same email is left untouched.
func InitialAdmin(ctx context.Context, store repository.AccountStore, cfg *config.Config) error {
	subRole, err := domain.ParseAdminSubRole(cfg.InitialAdmin.SubRole)
	if err != nil {
		return fmt.Errorf("initial admin: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.InitialAdmin.Password), cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash initial admin password: %w", err)
	}

	admin := &domain.Account{
		ID:           uuid.NewString(),
		Name:         cfg.InitialAdmin.Name,
		Email:        domain.NormalizeEmail(cfg.InitialAdmin.Email),
		PasswordHash: string(passwordHash),
		Role:         domain.RoleAdmin,
		AdminSubRole: &subRole,
	}
	if err := store.CreateAccount(ctx, admin); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create initial admin: %w", err)
	}

	slog.Info("initial admin created", "email", admin.Email)
	return nil
}

// DemoAccounts inserts the fixed demo accounts. Accounts that already exist are skipped.
func DemoAccounts(ctx context.Context, store repository.AccountStore, cost int) (int, error) {
	created := 0
	for _, d := range auth.DemoAccountList {
		account, err := d.Account(cost)
		if err != nil {
			return created, err
		}
		account.ID = uuid.NewString()

		if err := store.CreateAccount(ctx, account); err != nil {
			if errors.Is(err, domain.ErrEmailAlreadyExists) {
				slog.Info("demo account already exists", "email", account.Email)
				continue
			}
			return created, fmt.Errorf("create demo account %s: %w", account.Email, err)
		}
		created++
	}
	return created, nil
}

// RandomAccounts inserts n accounts sharing one password hash. A nil role picks a random role
// per account. Collisions on the generated email are skipped rather than retried.
func RandomAccounts(ctx context.Context, store repository.AccountStore, role *domain.Role, n int, passwordHash, emailDomain string) (int, error) {
	created := 0
	for i := 0; i < n; i++ {
		r := utils.GenerateRandomRole()
		if role != nil {
			r = *role
		}

		account := utils.GenerateRandomAccount(r, passwordHash, emailDomain)
		if err := store.CreateAccount(ctx, account); err != nil {
			if errors.Is(err, domain.ErrEmailAlreadyExists) {
				slog.Warn("skipping duplicate random account", "email", account.Email)
				continue
			}
			return created, fmt.Errorf("create random account: %w", err)
		}
		created++
	}
	return created, nil
}

var csvHeader = []string{"name", "email", "role", "sub_role"}

// ImportCSV reads "name,email,role,sub_role" rows (header required) and inserts one account per
// row. Invalid rows are logged and skipped; the row number is 1-based and counts the header.
func ImportCSV(ctx context.Context, store repository.AccountStore, r io.Reader, passwordHash string) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	if len(header) < len(csvHeader) {
		return 0, fmt.Errorf("header must be %s", strings.Join(csvHeader, ","))
	}
	for i, want := range csvHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != want {
			return 0, fmt.Errorf("header must be %s", strings.Join(csvHeader, ","))
		}
	}

	created := 0
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return created, fmt.Errorf("read row %d: %w", row, err)
		}

		account, err := accountFromRecord(record, passwordHash)
		if err != nil {
			slog.Warn("skipping invalid row", "row", row, "error", err)
			continue
		}

		if err := store.CreateAccount(ctx, account); err != nil {
			if errors.Is(err, domain.ErrEmailAlreadyExists) {
				slog.Warn("skipping existing account", "row", row, "email", account.Email)
				continue
			}
			return created, fmt.Errorf("create account from row %d: %w", row, err)
		}
		created++
	}
	return created, nil
}

func accountFromRecord(record []string, passwordHash string) (*domain.Account, error) {
	if len(record) < len(csvHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(record))
	}

	role, err := domain.ParseRole(strings.ToLower(strings.TrimSpace(record[2])))
	if err != nil {
		return nil, err
	}
	adminSubRole, facultySubRole, err := domain.ResolveSubRoles(role, record[3])
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(record[0]),
		Email:          domain.NormalizeEmail(record[1]),
		PasswordHash:   passwordHash,
		Role:           role,
		AdminSubRole:   adminSubRole,
		FacultySubRole: facultySubRole,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

// AnnounceStudentCount publishes the student count to observers when seeding changed it from
// before. With a nil notifier the count is only returned.
func AnnounceStudentCount(ctx context.Context, store repository.AccountStore, notifier *notify.Notifier, before int64) (int64, error) {
	after, err := store.CountAccountsByRole(ctx, domain.RoleStudent)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	if after != before && notifier != nil {
		notifier.StudentCountChanged(ctx)
	}
	return after, nil
}
