package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/collexus/erp/backend/internal/auth"
	"github.com/collexus/erp/backend/internal/domain"
	"github.com/collexus/erp/backend/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.config.Auth.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// queueMailBestEffort is for mails the request does not depend on.
func (h *Handler) queueMailBestEffort(ctx context.Context, message domain.MailMessage) {
	if err := h.mailer.PublishMail(ctx, message); err != nil {
		slog.Warn("failed to queue mail", "type", message.Type, "to", message.To, "error", err)
	}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string  `json:"name" validate:"required"`
		Email    string  `json:"email" validate:"required,email"`
		Password string  `json:"password" validate:"required"`
		Role     string  `json:"role" validate:"required,oneof=student faculty admin parent"`
		Avatar   *string `json:"avatar"`
		domain.SubRoleFields
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	req.Email = domain.NormalizeEmail(req.Email)
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidatePassword(req.Password, h.config.Auth.MinPasswordLength); err != nil {
		h.badRequest(w, r, err)
		return
	}

	role := domain.Role(req.Role)
	adminSubRole, facultySubRole, err := domain.ResolveSubRoles(role, req.ResolveClaimedSubRole(role))
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	email := req.Email
	exists, err := h.accounts.CheckEmailIfExists(r.Context(), email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if exists {
		h.serviceError(w, r, domain.ErrEmailAlreadyExists)
		return
	}

	passwordHash, err := h.hashPassword(req.Password)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	account := &domain.Account{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Email:          email,
		PasswordHash:   passwordHash,
		Role:           role,
		AdminSubRole:   adminSubRole,
		FacultySubRole: facultySubRole,
		Avatar:         req.Avatar,
	}
	if err := account.Validate(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// a concurrent signup with the same email still ends here as a conflict
	if err := h.accounts.CreateAccount(r.Context(), account); err != nil {
		h.serviceError(w, r, err)
		return
	}

	if account.Role == domain.RoleStudent {
		h.notifier.StudentCountChanged(r.Context())
	}

	h.queueMailBestEffort(r.Context(), domain.MailMessage{
		Type: domain.MailTypeWelcome,
		To:   account.Email,
		Data: domain.WelcomeMailData{Name: account.Name, Role: account.Role},
	})

	h.createdResponse(w, r, "account created", account.Identity())
}

type loginResponse struct {
	User      *domain.Identity `json:"user"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role" validate:"required"`
		domain.SubRoleFields
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	req.Email = domain.NormalizeEmail(req.Email)
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	identity, err := h.resolver.Authenticate(r.Context(), auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		SubRole:  req.ResolveClaimedSubRole(domain.Role(req.Role)),
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	token, expiration, err := h.sessions.Issue(identity)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	cookie := &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}
	if h.config.IsProduction() {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, cookie)

	h.successResponse(w, r, "signed in", loginResponse{User: identity, Token: token, ExpiresAt: expiration})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
	})

	h.successResponse(w, r, "signed out", nil)
}

const resetPasswordRequestedMessage = "if the account exists, a reset code has been sent to its email"

func (h *Handler) RequireResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	req.Email = domain.NormalizeEmail(req.Email)
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	account, err := h.accounts.GetAccountByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// same answer as for an existing account
			h.successResponse(w, r, resetPasswordRequestedMessage, nil)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	// failures past this point only reach the log so the answer matches the unknown-email case
	otp := utils.GenerateRandomOTP()
	if err := h.saveOTP(r.Context(), resetPasswordOTPKey(account.Email), otp); err != nil {
		slog.Error("failed to store reset code", "email", account.Email, "error", err)
		h.successResponse(w, r, resetPasswordRequestedMessage, nil)
		return
	}

	h.queueMailBestEffort(r.Context(), domain.MailMessage{
		Type: domain.MailTypeResetPassword,
		To:   account.Email,
		Data: domain.ResetPasswordMailData{
			Name:       account.Name,
			OTP:        otp,
			Expiration: h.otpExpirationMinutes(),
		},
	})

	h.successResponse(w, r, resetPasswordRequestedMessage, nil)
}

const invalidOTPMessage = "invalid or expired code"

func (h *Handler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		OTP      string `json:"otp" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	req.Email = domain.NormalizeEmail(req.Email)
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidatePassword(req.Password, h.config.Auth.MinPasswordLength); err != nil {
		h.badRequest(w, r, err)
		return
	}

	email := req.Email
	key := resetPasswordOTPKey(email)

	ok, err := h.checkOTP(r.Context(), key, req.OTP)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, http.StatusBadRequest, invalidOTPMessage)
		return
	}

	account, err := h.accounts.GetAccountByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			h.errorResponse(w, r, http.StatusBadRequest, invalidOTPMessage)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	passwordHash, err := h.hashPassword(req.Password)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	account.PasswordHash = passwordHash

	if err := h.accounts.UpdateAccount(r.Context(), account); err != nil {
		h.serviceError(w, r, err)
		return
	}

	if err := h.deleteOTP(r.Context(), key); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "password has been reset", nil)
}
