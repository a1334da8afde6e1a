package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/collexus/erp/backend/internal/config"
	"github.com/collexus/erp/backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const accountsCollection = "users"

// MongoStore keeps accounts in the "users" collection, keyed by the string id field
// rather than the driver-generated _id.
type MongoStore struct {
	cfg  *config.Config
	coll *mongo.Collection
}

func NewMongoStore(cfg *config.Config, db *mongo.Database) *MongoStore {
	return &MongoStore{
		cfg:  cfg,
		coll: db.Collection(accountsCollection),
	}
}

func (s *MongoStore) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(s.cfg.Database.QueryTimeout)*time.Second)
}

// EnsureIndexes creates the unique email index and the lookup indexes used by the queries below.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	account := &domain.Account{}
	if err := s.coll.FindOne(ctx, filter).Decode(account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *MongoStore) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.findOne(ctx, bson.M{"email": email})
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return account, err
}

func (s *MongoStore) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.findOne(ctx, bson.M{"id": id})
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return account, err
}

func (s *MongoStore) GetAllAccounts(ctx context.Context, role *domain.Role) ([]*domain.Account, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	filter := bson.M{}
	if role != nil {
		filter["role"] = string(*role)
	}

	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := make([]*domain.Account, 0)
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *MongoStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	// mongo stores milliseconds; truncate so the returned value matches what is read back
	now := time.Now().UTC().Truncate(time.Millisecond)
	account.CreatedAt = now
	account.UpdatedAt = now
	account.Version = 1

	if _, err := s.coll.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create account: %w", domain.ErrEmailAlreadyExists)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateAccount(ctx context.Context, account *domain.Account) error {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	updated := *account
	updated.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	updated.Version = account.Version + 1

	result, err := s.coll.ReplaceOne(ctx, bson.M{"id": account.ID, "version": account.Version}, &updated)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("update account: %w", domain.ErrEmailAlreadyExists)
		}
		return fmt.Errorf("update account: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrEditConflict
	}

	*account = updated
	return nil
}

func (s *MongoStore) DeleteAccount(ctx context.Context, id string) error {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	result, err := s.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (s *MongoStore) CountAccountsByRole(ctx context.Context, role domain.Role) (int64, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	count, err := s.coll.CountDocuments(ctx, bson.M{"role": string(role)})
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

func (s *MongoStore) CheckEmailIfExists(ctx context.Context, email string) (bool, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	count, err := s.coll.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}
