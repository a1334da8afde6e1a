package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/collexus/erp/backend/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema.sql
var postgresSchema string

// DurableStore is an AccountStore backed by a database server.
type DurableStore interface {
	AccountStore
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	_ DurableStore = (*Repository)(nil)
	_ DurableStore = (*MongoStore)(nil)
)

// Open creates the store selected by DATABASE_DRIVER. It does not wait for the server; call Ping.
func Open(ctx context.Context, cfg *config.Config) (DurableStore, error) {
	switch cfg.Database.Driver {
	case "postgres":
		dbpool, err := sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres pool: %w", err)
		}
		dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)
		return NewRepository(cfg, dbpool), nil
	case "mongo":
		opts := options.Client().
			ApplyURI(cfg.Database.DSN).
			SetConnectTimeout(time.Duration(cfg.Database.ConnectTimeout) * time.Second).
			SetMaxPoolSize(uint64(cfg.Database.MaxOpenConns))
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		return NewMongoStore(cfg, client.Database(cfg.Database.MongoDatabase)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.dbpool.PingContext(ctx)
}

func (r *Repository) Migrate(ctx context.Context) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (r *Repository) Close(context.Context) error {
	return r.dbpool.Close()
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Migrate(ctx context.Context) error {
	return s.EnsureIndexes(ctx)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.coll.Database().Client().Disconnect(ctx)
}
