package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/collexus/erp/backend/internal/auth"
	"github.com/collexus/erp/backend/internal/config"
	"github.com/collexus/erp/backend/internal/handler"
	"github.com/collexus/erp/backend/internal/mailqueue"
	"github.com/collexus/erp/backend/internal/notify"
	"github.com/collexus/erp/backend/internal/repository"
	"github.com/collexus/erp/backend/internal/seed"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

func main() {
	/**********************************************
	 * logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * configuration
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return
	}

	/**********************************************
	 * account store
	 **********************************************/
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to create account store", "driver", cfg.Database.Driver, "error", err)
		return
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("failed to close account store", "error", err)
		}
	}()

	// with the demo fallback enabled an unreachable database only degrades login
	if err := store.Ping(ctx); err != nil {
		if !cfg.Auth.DemoFallback {
			logger.Error("failed to reach database", "driver", cfg.Database.Driver, "error", err)
			return
		}
		logger.Warn("database unreachable, starting in degraded mode with demo accounts", "driver", cfg.Database.Driver, "error", err)
	} else {
		if err := store.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			return
		}
		if err := seed.InitialAdmin(ctx, store, cfg); err != nil {
			logger.Error("failed to create initial admin", "error", err)
			return
		}
	}

	/**********************************************
	 * credential resolver
	 **********************************************/
	var fallback auth.AccountLookup
	if cfg.Auth.DemoFallback {
		demo, err := auth.DemoAccounts(cfg.Auth.BcryptCost)
		if err != nil {
			logger.Error("failed to build demo accounts", "error", err)
			return
		}
		fallback = demo
	}
	resolver := auth.NewResolver(store, fallback, logger)

	/**********************************************
	 * rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open rabbitmq channel", "error", err)
		return
	}
	defer ch.Close()

	if _, err := mailqueue.DeclareQueue(ch, cfg.RabbitMQ.Queue); err != nil {
		logger.Error("failed to declare mail queue", "queue", cfg.RabbitMQ.Queue, "error", err)
		return
	}
	mailer := mailqueue.NewPublisher(ch, cfg.RabbitMQ.Queue, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)

	/**********************************************
	 * redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:    cfg.Redis.Password,
		DB:          0,
		DialTimeout: time.Duration(cfg.Redis.ConnectTimeout) * time.Second,
	})
	defer rdb.Close()

	/**********************************************
	 * student-count notifications
	 **********************************************/
	observers := notify.NewGroup(notify.AdminObservers, logger)

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	var wg sync.WaitGroup

	var broadcaster notify.Broadcaster = observers
	if cfg.Notify.Backend == "redis" {
		relay := notify.NewRedisRelay(rdb, cfg.Notify.Channel, observers, logger)
		broadcaster = relay

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := relay.Run(runCtx); err != nil {
				logger.Error("student-count relay stopped", "error", err)
			}
		}()
	}
	notifier := notify.NewNotifier(store, broadcaster, logger)

	/**********************************************
	 * handler
	 **********************************************/
	h, err := handler.NewHandler(cfg, store, resolver, mailer, rdb, observers, notifier)
	if err != nil {
		logger.Error("failed to create handler", "error", err)
		return
	}
	h.RegisterRoutes()

	/**********************************************
	 * http server
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      h.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port, "environment", cfg.Environment, "notify_backend", cfg.Notify.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down server", "error", err)
	}
	stopRun()
	wg.Wait()
	logger.Info("server stopped")
}
