package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/collexus/erp/backend/internal/config"
	"github.com/collexus/erp/backend/internal/domain"
)

// AccountStore is implemented by every account backend (PostgreSQL, MongoDB, memory).
// Misses are reported as domain.ErrAccountNotFound and unique email violations as
// domain.ErrEmailAlreadyExists; any other error means the store itself is in trouble.
type AccountStore interface {
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetAccountByID(ctx context.Context, id string) (*domain.Account, error)
	GetAllAccounts(ctx context.Context, role *domain.Role) ([]*domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) error
	UpdateAccount(ctx context.Context, account *domain.Account) error
	DeleteAccount(ctx context.Context, id string) error
	CountAccountsByRole(ctx context.Context, role domain.Role) (int64, error)
	CheckEmailIfExists(ctx context.Context, email string) (bool, error)
}

var (
	_ AccountStore = (*Repository)(nil)
	_ AccountStore = (*MongoStore)(nil)
	_ AccountStore = (*MemoryStore)(nil)
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}
