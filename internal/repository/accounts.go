package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrEditConflict = errors.New("edit conflict")

const accountColumns = `id, name, email, password_hash, role, admin_sub_role, faculty_sub_role, avatar, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	account := &domain.Account{}
	var adminSubRole, facultySubRole, avatar sql.NullString

	dst := []any{&account.ID, &account.Name, &account.Email, &account.PasswordHash, &account.Role, &adminSubRole, &facultySubRole, &avatar, &account.CreatedAt, &account.UpdatedAt, &account.Version}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if adminSubRole.Valid {
		s := domain.AdminSubRole(adminSubRole.String)
		account.AdminSubRole = &s
	}
	if facultySubRole.Valid {
		s := domain.FacultySubRole(facultySubRole.String)
		account.FacultySubRole = &s
	}
	if avatar.Valid {
		account.Avatar = &avatar.String
	}

	return account, nil
}

func nullString[T ~string](v *T) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "accounts_email_key" {
		return domain.ErrEmailAlreadyExists
	}
	return err
}

func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	account, err := scanAccount(r.dbpool.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}

	return account, nil
}

func (r *Repository) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	account, err := scanAccount(r.dbpool.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}

	return account, nil
}

func (r *Repository) GetAllAccounts(ctx context.Context, role *domain.Role) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	args := []any{}
	if role != nil {
		query += ` WHERE role = $1`
		args = append(args, string(*role))
	}
	query += ` ORDER BY created_at`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return accounts, nil
}

func (r *Repository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, password_hash, role, admin_sub_role, faculty_sub_role, avatar)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{account.ID, account.Name, account.Email, account.PasswordHash, string(account.Role), nullString(account.AdminSubRole), nullString(account.FacultySubRole), nullString(account.Avatar)}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&account.CreatedAt, &account.UpdatedAt, &account.Version); err != nil {
		return fmt.Errorf("create account: %w", mapPgError(err))
	}

	return nil
}

func (r *Repository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET
			name = $1,
			email = $2,
			password_hash = $3,
			role = $4,
			admin_sub_role = $5,
			faculty_sub_role = $6,
			avatar = $7,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{account.Name, account.Email, account.PasswordHash, string(account.Role), nullString(account.AdminSubRole), nullString(account.FacultySubRole), nullString(account.Avatar), account.ID, account.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&account.UpdatedAt, &account.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEditConflict
		}
		return fmt.Errorf("update account: %w", mapPgError(err))
	}

	return nil
}

func (r *Repository) DeleteAccount(ctx context.Context, id string) error {
	query := `DELETE FROM accounts WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func (r *Repository) CountAccountsByRole(ctx context.Context, role domain.Role) (int64, error) {
	query := `SELECT COUNT(*) FROM accounts WHERE role = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var count int64
	if err := r.dbpool.QueryRowContext(ctx, query, string(role)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}

	return count, nil
}

func (r *Repository) CheckEmailIfExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	isExists := false
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(&isExists); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}

	return isExists, nil
}
