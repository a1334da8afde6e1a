package handler

import (
	"net/http"
	"strings"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/collexus/erp/backend/internal/utils"
	"github.com/google/uuid"
)

func (h *Handler) GetAllAccounts(w http.ResponseWriter, r *http.Request) {
	var role *domain.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := domain.ParseRole(raw)
		if err != nil {
			h.badRequest(w, r, err)
			return
		}
		role = &parsed
	}

	accounts, err := h.accounts.GetAllAccounts(r.Context(), role)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	identities := make([]*domain.Identity, 0, len(accounts))
	for _, a := range accounts {
		identities = append(identities, a.Identity())
	}
	h.successResponse(w, r, "ok", identities)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account := r.Context().Value(AccountInfoCtx).(*domain.Account)
	h.successResponse(w, r, "ok", account.Identity())
}

// CreateAccount creates an account with a random password and mails the password to its owner.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string  `json:"name" validate:"required"`
		Email  string  `json:"email" validate:"required,email"`
		Role   string  `json:"role" validate:"required,oneof=student faculty admin parent"`
		Avatar *string `json:"avatar"`
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

	role := domain.Role(req.Role)
	adminSubRole, facultySubRole, err := domain.ResolveSubRoles(role, req.ResolveClaimedSubRole(role))
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	password := utils.GenerateRandomPassword(h.config.NewUser.PasswordLength)
	passwordHash, err := h.hashPassword(password)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	account := &domain.Account{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		Email:          req.Email,
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

	if err := h.accounts.CreateAccount(r.Context(), account); err != nil {
		h.serviceError(w, r, err)
		return
	}

	if account.Role == domain.RoleStudent {
		h.notifier.StudentCountChanged(r.Context())
	}

	// the password only exists in this mail; the account stays usable through a reset if it is lost
	h.queueMailBestEffort(r.Context(), domain.MailMessage{
		Type: domain.MailTypeAccountCreated,
		To:   account.Email,
		Data: domain.AccountCreatedMailData{
			Name:     account.Name,
			Email:    account.Email,
			Role:     account.Role,
			Password: password,
		},
	})

	h.createdResponse(w, r, "account created", account.Identity())
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	account := r.Context().Value(AccountInfoCtx).(*domain.Account)

	var req struct {
		Name   *string `json:"name" validate:"omitempty,min=1"`
		Email  *string `json:"email" validate:"omitempty,email"`
		Role   *string `json:"role" validate:"omitempty,oneof=student faculty admin parent"`
		Avatar *string `json:"avatar"`
		domain.SubRoleFields
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.Email != nil {
		*req.Email = domain.NormalizeEmail(*req.Email)
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	previousRole := account.Role

	if req.Name != nil {
		account.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		account.Email = *req.Email
	}
	if req.Avatar != nil {
		if *req.Avatar == "" {
			account.Avatar = nil
		} else {
			account.Avatar = req.Avatar
		}
	}
	if req.Role != nil {
		account.Role = domain.Role(*req.Role)
	}

	// sub-roles are re-resolved when the role changes or a new sub-role is sent
	claimed := req.ResolveClaimedSubRole(account.Role)
	if req.Role != nil || claimed != "" {
		adminSubRole, facultySubRole, err := domain.ResolveSubRoles(account.Role, claimed)
		if err != nil {
			h.badRequest(w, r, err)
			return
		}
		account.AdminSubRole = adminSubRole
		account.FacultySubRole = facultySubRole
	}

	if err := account.Validate(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.accounts.UpdateAccount(r.Context(), account); err != nil {
		h.serviceError(w, r, err)
		return
	}

	if (previousRole == domain.RoleStudent) != (account.Role == domain.RoleStudent) {
		h.notifier.StudentCountChanged(r.Context())
	}

	h.successResponse(w, r, "account updated", account.Identity())
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	account := r.Context().Value(AccountInfoCtx).(*domain.Account)

	if err := h.accounts.DeleteAccount(r.Context(), account.ID); err != nil {
		h.serviceError(w, r, err)
		return
	}

	if account.Role == domain.RoleStudent {
		h.notifier.StudentCountChanged(r.Context())
	}

	h.successResponse(w, r, "account deleted", nil)
}

func (h *Handler) UpdateAccountPassword(w http.ResponseWriter, r *http.Request) {
	account := r.Context().Value(AccountInfoCtx).(*domain.Account)

	var req struct {
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidatePassword(req.Password, h.config.Auth.MinPasswordLength); err != nil {
		h.badRequest(w, r, err)
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

	h.successResponse(w, r, "password updated", nil)
}
