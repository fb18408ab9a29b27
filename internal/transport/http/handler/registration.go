package handler

import (
	"net/http"

	"github.com/marketplace-auth/internal/application/auth"
	"github.com/marketplace-auth/internal/domain"
)

const msgOTPSent = "OTP sent to email. Please verify your account."

// RegistrationHandler handles the two-step OTP registration for both roles.
type RegistrationHandler struct {
	svc auth.Service
}

func NewRegistrationHandler(svc auth.Service) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

func (h *RegistrationHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.RegisterUser(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: msgOTPSent})
}

func (h *RegistrationHandler) VerifyUser(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.svc.VerifyUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, UserEnvelope{Success: true, Message: "User registered successfully!", User: a})
}

func (h *RegistrationHandler) RegisterSeller(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterSellerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.RegisterSeller(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: msgOTPSent})
}

func (h *RegistrationHandler) VerifySeller(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifySellerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.svc.VerifySeller(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SellerEnvelope{Success: true, Message: "Seller registered successfully!", Seller: a})
}
