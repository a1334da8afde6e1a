package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/collexus/erp/backend/internal/auth"
	"github.com/collexus/erp/backend/internal/config"
	"github.com/collexus/erp/backend/internal/domain"
	"github.com/collexus/erp/backend/internal/notify"
	"github.com/collexus/erp/backend/internal/repository"
	"github.com/collexus/erp/backend/internal/utils"
	"github.com/go-chi/chi/v5"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// MailPublisher queues mail for the mail worker.
type MailPublisher interface {
	PublishMail(ctx context.Context, message domain.MailMessage) error
}

type Handler struct {
	validate    *validator.Validate
	translator  ut.Translator
	config      *config.Config
	accounts    repository.AccountStore
	resolver    *auth.Resolver
	sessions    *auth.SessionIssuer
	mailer      MailPublisher
	redisClient *redis.Client
	observers   *notify.Group
	notifier    *notify.Notifier
	upgrader    websocket.Upgrader

	Mux *chi.Mux
}

func NewHandler(
	cfg *config.Config,
	accounts repository.AccountStore,
	resolver *auth.Resolver,
	mailer MailPublisher,
	rdb *redis.Client,
	observers *notify.Group,
	notifier *notify.Notifier,
) (*Handler, error) {
	validate, trans, err := utils.NewValidator()
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		translator:  trans,
		config:      cfg,
		accounts:    accounts,
		resolver:    resolver,
		sessions:    auth.NewSessionIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.Expiration)*time.Second),
		mailer:      mailer,
		redisClient: rdb,
		observers:   observers,
		notifier:    notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// the session cookie is SameSite=Strict in production
				return true
			},
		},

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	h.Mux.Get("/students/count", h.GetStudentCount)

	// everything below needs a session
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/", h.UpdateMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
			r.Route("/update-email", func(r chi.Router) {
				r.Post("/require", h.RequireUpdateEmail)
				r.Post("/confirm", h.ConfirmUpdateEmail)
			})
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Use(h.RequiredRole(domain.RoleAdmin))
			r.Get("/", h.GetAllAccounts)
			r.With(h.RequiredAdminSubRole(domain.AdminAcademic)).Post("/", h.CreateAccount)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.accountInfo)
				r.Get("/", h.GetAccount)
				r.Group(func(r chi.Router) {
					r.Use(h.RequiredAdminSubRole(domain.AdminAcademic))
					r.Use(h.preventOperateInitialAdmin)
					r.Patch("/", h.UpdateAccount)
					r.Delete("/", h.DeleteAccount)
					r.Patch("/password", h.UpdateAccountPassword)
				})
			})
		})

		r.With(h.RequiredRole(domain.RoleAdmin)).Get("/ws", h.ServeObserver)
	})
}
