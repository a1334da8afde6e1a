package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/collexus/erp/backend/internal/config"
	"github.com/collexus/erp/backend/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountColumnNames = []string{"id", "name", "email", "password_hash", "role", "admin_sub_role", "faculty_sub_role", "avatar", "created_at", "updated_at", "version"}

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 3
	return NewRepository(cfg, db), mock
}

func TestRepositoryGetAccountByEmail(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE email = $1`)).
		WithArgs("admin@x.test").
		WillReturnRows(sqlmock.NewRows(accountColumnNames).
			AddRow("a-1", "Admin", "admin@x.test", "hash", "admin", "financial", nil, nil, now, now, int64(1)))

	account, err := repo.GetAccountByEmail(context.Background(), "admin@x.test")
	require.NoError(t, err)
	assert.Equal(t, "a-1", account.ID)
	assert.Equal(t, domain.RoleAdmin, account.Role)
	require.NotNil(t, account.AdminSubRole)
	assert.Equal(t, domain.AdminFinancial, *account.AdminSubRole)
	assert.Nil(t, account.FacultySubRole)
	assert.Nil(t, account.Avatar)
	assert.Equal(t, int32(1), account.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetAccountByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE email = $1`)).
		WithArgs("nobody@x.test").
		WillReturnRows(sqlmock.NewRows(accountColumnNames))

	_, err := repo.GetAccountByEmail(context.Background(), "nobody@x.test")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRepositoryCreateAccountDuplicateEmail(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	err := repo.CreateAccount(context.Background(), &domain.Account{
		ID: "a-2", Name: "Student", Email: "s@x.test", PasswordHash: "hash", Role: domain.RoleStudent,
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestRepositoryCreateAccount(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now().UTC()
	hod := domain.FacultyHOD

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WithArgs("a-3", "Dr. Smith", "hod@x.test", "hash", "faculty", nil, "hod", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at", "version"}).AddRow(now, now, int64(1)))

	account := &domain.Account{ID: "a-3", Name: "Dr. Smith", Email: "hod@x.test", PasswordHash: "hash", Role: domain.RoleFaculty, FacultySubRole: &hod}
	require.NoError(t, repo.CreateAccount(context.Background(), account))
	assert.Equal(t, now, account.CreatedAt)
	assert.Equal(t, int32(1), account.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdateAccountConflict(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE accounts`)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))

	err := repo.UpdateAccount(context.Background(), &domain.Account{ID: "a-1", Version: 3, Role: domain.RoleStudent})
	assert.ErrorIs(t, err, ErrEditConflict)
}

func TestRepositoryCountAccountsByRole(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM accounts WHERE role = $1`)).
		WithArgs("student").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := repo.CountAccountsByRole(context.Background(), domain.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestRepositoryDeleteAccountMissing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM accounts WHERE id = $1`)).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeleteAccount(context.Background(), "gone"), domain.ErrAccountNotFound)
}

func TestRepositoryGetAllAccountsByRole(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE role = $1 ORDER BY created_at`)).
		WithArgs("parent").
		WillReturnRows(sqlmock.NewRows(accountColumnNames).
			AddRow("p-1", "Mary", "p1@x.test", "hash", "parent", nil, nil, "/parent.png", now, now, int64(1)).
			AddRow("p-2", "Joe", "p2@x.test", "hash", "parent", nil, nil, nil, now, now, int64(2)))

	role := domain.RoleParent
	accounts, err := repo.GetAllAccounts(context.Background(), &role)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.NotNil(t, accounts[0].Avatar)
	assert.Equal(t, "/parent.png", *accounts[0].Avatar)
	assert.Nil(t, accounts[1].Avatar)
}

func TestRepositoryMigrate(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS accounts`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// PostgreSQL names an unnamed column check <table>_<column>_check; a table constraint with the
// same name makes CREATE TABLE fail.
func TestSchemaConstraintNamesDoNotCollide(t *testing.T) {
	columnCheck := regexp.MustCompile(`(?m)^\s+(\w+)\s+[A-Z][^,\n]*\bCHECK\s*\(`)
	named := regexp.MustCompile(`CONSTRAINT\s+(\w+)`)

	declared := map[string]bool{}
	for _, m := range named.FindAllStringSubmatch(postgresSchema, -1) {
		assert.False(t, declared[m[1]], "constraint %s declared twice", m[1])
		declared[m[1]] = true
	}

	columns := columnCheck.FindAllStringSubmatch(postgresSchema, -1)
	require.NotEmpty(t, columns)
	for _, m := range columns {
		if m[1] == "CONSTRAINT" {
			continue
		}
		implicit := "accounts_" + m[1] + "_check"
		assert.False(t, declared[implicit], "constraint %s collides with the implicit check on %s", implicit, m[1])
	}
}
