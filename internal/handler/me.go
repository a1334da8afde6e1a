package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/collexus/erp/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Account)
	h.successResponse(w, r, "ok", myInfo.Identity())
}

func (h *Handler) UpdateMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Account)

	var req struct {
		Name   *string `json:"name" validate:"omitempty,min=1"`
		Avatar *string `json:"avatar"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Name != nil {
		myInfo.Name = strings.TrimSpace(*req.Name)
	}
	if req.Avatar != nil {
		if *req.Avatar == "" {
			myInfo.Avatar = nil
		} else {
			myInfo.Avatar = req.Avatar
		}
	}
	if err := myInfo.Validate(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.accounts.UpdateAccount(r.Context(), myInfo); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "profile updated", myInfo.Identity())
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Account)

	var req struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidatePassword(req.NewPassword, h.config.Auth.MinPasswordLength); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(myInfo.PasswordHash), []byte(req.OldPassword)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.errorResponse(w, r, http.StatusBadRequest, "old password is incorrect")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	passwordHash, err := h.hashPassword(req.NewPassword)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	myInfo.PasswordHash = passwordHash

	if err := h.accounts.UpdateAccount(r.Context(), myInfo); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "password updated", nil)
}

func (h *Handler) RequireUpdateEmail(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Account)

	var req struct {
		NewEmail string `json:"newEmail" validate:"required,email"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	req.NewEmail = domain.NormalizeEmail(req.NewEmail)
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	newEmail := req.NewEmail
	exists, err := h.accounts.CheckEmailIfExists(r.Context(), newEmail)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if exists {
		h.serviceError(w, r, domain.ErrEmailAlreadyExists)
		return
	}

	otp := utils.GenerateRandomOTP()
	if err := h.saveOTP(r.Context(), changeEmailOTPKey(myInfo.ID, newEmail), otp); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.mailer.PublishMail(r.Context(), domain.MailMessage{
		Type: domain.MailTypeChangeEmail,
		To:   newEmail,
		Data: domain.ChangeEmailMailData{
			Name:       myInfo.Name,
			NewEmail:   newEmail,
			OTP:        otp,
			Expiration: h.otpExpirationMinutes(),
		},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "a confirmation code has been sent to the new email", nil)
}

func (h *Handler) ConfirmUpdateEmail(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Account)

	var req struct {
		OTP      string `json:"otp" validate:"required"`
		NewEmail string `json:"newEmail" validate:"required,email"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	req.NewEmail = domain.NormalizeEmail(req.NewEmail)
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	newEmail := req.NewEmail
	key := changeEmailOTPKey(myInfo.ID, newEmail)

	ok, err := h.checkOTP(r.Context(), key, req.OTP)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, http.StatusBadRequest, invalidOTPMessage)
		return
	}

	myInfo.Email = newEmail
	if err := h.accounts.UpdateAccount(r.Context(), myInfo); err != nil {
		h.serviceError(w, r, err)
		return
	}

	if err := h.deleteOTP(r.Context(), key); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "email updated", myInfo.Identity())
}
