package handler

import (
	"net/http"

	"github.com/marketplace-auth/internal/application/auth"
	"github.com/marketplace-auth/internal/domain"
)

// PasswordRecoveryHandler handles password recovery flow endpoints.
type PasswordRecoveryHandler struct {
	svc auth.Service
}

func NewPasswordRecoveryHandler(svc auth.Service) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{svc: svc}
}

func (h *PasswordRecoveryHandler) ForgotUser(w http.ResponseWriter, r *http.Request) {
	h.forgot(w, r, domain.RoleUser)
}

func (h *PasswordRecoveryHandler) ForgotSeller(w http.ResponseWriter, r *http.Request) {
	h.forgot(w, r, domain.RoleSeller)
}

func (h *PasswordRecoveryHandler) ResetUser(w http.ResponseWriter, r *http.Request) {
	h.reset(w, r, domain.RoleUser)
}

func (h *PasswordRecoveryHandler) ResetSeller(w http.ResponseWriter, r *http.Request) {
	h.reset(w, r, domain.RoleSeller)
}

func (h *PasswordRecoveryHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyResetOTPRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.VerifyForgotPasswordOTP(r.Context(), req.Email, req.OTP); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "OTP verified. You can now reset your password."})
}

func (h *PasswordRecoveryHandler) forgot(w http.ResponseWriter, r *http.Request, role string) {
	var req domain.ForgotPasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), role, req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "OTP sent to email. Please verify your account."})
}

func (h *PasswordRecoveryHandler) reset(w http.ResponseWriter, r *http.Request, role string) {
	var req domain.ResetPasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), role, req.Email, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "Password reset successfully!"})
}
