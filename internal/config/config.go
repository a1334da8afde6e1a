package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		Driver         string `env:"DRIVER" envDefault:"postgres"` // postgres or mongo
		DSN            string `env:"DSN,required"`
		MongoDatabase  string `env:"MONGO_DATABASE" envDefault:"collexus"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"5"`
		QueryTimeout   int    `env:"QUERY_TIMEOUT" envDefault:"3"`
		MaxOpenConns   int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns   int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime    int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Name     string `env:"NAME" envDefault:"Administrator"`
		Password string `env:"PASSWORD,required"`
		Email    string `env:"EMAIL,required"`
		SubRole  string `env:"SUB_ROLE" envDefault:"academic"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"86400"` // 1 day, seconds
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Auth struct {
		BcryptCost        int  `env:"BCRYPT_COST" envDefault:"12"`
		MinPasswordLength int  `env:"MIN_PASSWORD_LENGTH" envDefault:"6"`
		DemoFallback      bool `env:"DEMO_FALLBACK" envDefault:"false"`
	} `envPrefix:"AUTH_"`
	Seed struct {
		Password string `env:"PASSWORD" envDefault:"password"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN" envDefault:"college.edu"`
		SMTP       struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		Queue          string `env:"QUEUE" envDefault:"email_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host             string `env:"HOST" envDefault:"localhost"`
		Port             int    `env:"PORT" envDefault:"6379"`
		Password         string `env:"PASSWORD"`
		ConnectTimeout   int    `env:"CONNECT_TIMEOUT" envDefault:"5"`
		OperationTimeout int    `env:"OPERATION_TIMEOUT" envDefault:"3"`
	} `envPrefix:"REDIS_"`
	OTP struct {
		Expiration int `env:"EXPIRATION" envDefault:"900"` // 15 minutes, seconds
	} `envPrefix:"OTP_"`
	Notify struct {
		Backend    string `env:"BACKEND" envDefault:"local"` // local or redis
		Channel    string `env:"CHANNEL" envDefault:"erp:student-count"`
		SendBuffer int    `env:"SEND_BUFFER" envDefault:"16"`
	} `envPrefix:"NOTIFY_"`
	NewUser struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// only the first error keeps the log readable
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if !slices.Contains([]string{"postgres", "mongo"}, c.Database.Driver) {
		return fmt.Errorf("DATABASE_DRIVER must be postgres or mongo, got %q", c.Database.Driver)
	}
	if !slices.Contains([]string{"local", "redis"}, c.Notify.Backend) {
		return fmt.Errorf("NOTIFY_BACKEND must be local or redis, got %q", c.Notify.Backend)
	}
	if c.Auth.MinPasswordLength < 1 {
		return errors.New("AUTH_MIN_PASSWORD_LENGTH must be positive")
	}
	if c.Notify.SendBuffer < 1 {
		return errors.New("NOTIFY_SEND_BUFFER must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
