package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/collexus/erp/backend/internal/config"
	"github.com/collexus/erp/backend/internal/domain"
	"github.com/collexus/erp/backend/internal/notify"
	"github.com/collexus/erp/backend/internal/repository"
	"github.com/collexus/erp/backend/internal/seed"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	var op int
	var n int
	var file string

	flag.IntVar(&op, "op", 0, "operation (1: random students, 2: demo accounts, 3: random accounts of random roles, 4: import CSV)")
	flag.IntVar(&n, "n", 5, "number of accounts to insert for ops 1 and 3")
	flag.StringVar(&file, "file", "", "CSV file for op 4 (name,email,role,sub_role)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to create account store", "error", err)
		return
	}
	defer store.Close(context.Background())

	if err := store.Ping(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		return
	}
	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", "error", err)
		return
	}

	studentsBefore, err := store.CountAccountsByRole(ctx, domain.RoleStudent)
	if err != nil {
		logger.Error("failed to count students", "error", err)
		return
	}

	// seeded accounts all share SEED_PASSWORD
	passwordHash := func() string {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.Password), cfg.Auth.BcryptCost)
		if err != nil {
			logger.Error("failed to hash seed password", "error", err)
			os.Exit(1)
		}
		return string(hash)
	}

	run := context.Background()
	var created int

	switch op {
	case 0:
		logger.Error("no operation given, see -h")
		return
	case 1:
		if n <= 0 {
			logger.Error("n must be positive")
			return
		}
		student := domain.RoleStudent
		created, err = seed.RandomAccounts(run, store, &student, n, passwordHash(), cfg.Email.UserDomain)
	case 2:
		created, err = seed.DemoAccounts(run, store, cfg.Auth.BcryptCost)
	case 3:
		if n <= 0 {
			logger.Error("n must be positive")
			return
		}
		created, err = seed.RandomAccounts(run, store, nil, n, passwordHash(), cfg.Email.UserDomain)
	case 4:
		f, openErr := os.Open(file)
		if openErr != nil {
			logger.Error("failed to open CSV file", "file", file, "error", openErr)
			return
		}
		defer f.Close()
		created, err = seed.ImportCSV(run, store, f, passwordHash())
	default:
		logger.Error("unknown operation", "op", op)
		return
	}

	if err != nil {
		logger.Error("seeding stopped early", "op", op, "created", created, "error", err)
	} else {
		logger.Info("seeding finished", "op", op, "created", created)
	}

	// running API instances only hear about the new count through the redis relay
	var notifier *notify.Notifier
	if cfg.Notify.Backend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:        fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password:    cfg.Redis.Password,
			DialTimeout: time.Duration(cfg.Redis.ConnectTimeout) * time.Second,
		})
		defer rdb.Close()

		relay := notify.NewRedisRelay(rdb, cfg.Notify.Channel, notify.NewGroup(notify.AdminObservers, logger), logger)
		notifier = notify.NewNotifier(store, relay, logger)
	} else {
		logger.Info("local notify backend, dashboards pick up the new count through GET /students/count")
	}

	students, err := seed.AnnounceStudentCount(run, store, notifier, studentsBefore)
	if err != nil {
		logger.Error("failed to count students", "error", err)
		return
	}
	logger.Info("student accounts", "count", students)
}
