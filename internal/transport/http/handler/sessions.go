package handler

import (
	"net/http"

	"github.com/marketplace-auth/internal/application/session"
	"github.com/marketplace-auth/internal/config"
	"github.com/marketplace-auth/internal/domain"
	"github.com/marketplace-auth/internal/transport/http/middleware"
)

// SessionHandler handles login, refresh and current-account endpoints.
type SessionHandler struct {
	svc     session.Service
	cookies config.CookieConfig
}

func NewSessionHandler(svc session.Service, cookies config.CookieConfig) *SessionHandler {
	return &SessionHandler{svc: svc, cookies: cookies}
}

func (h *SessionHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, domain.RoleUser, middleware.UserAccessCookie, middleware.UserRefreshCookie)
}

func (h *SessionHandler) LoginSeller(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, domain.RoleSeller, middleware.SellerAccessCookie, middleware.SellerRefreshCookie)
}

func (h *SessionHandler) RefreshUser(w http.ResponseWriter, r *http.Request) {
	h.refresh(w, r, domain.RoleUser, middleware.UserAccessCookie, middleware.UserRefreshCookie)
}

func (h *SessionHandler) RefreshSeller(w http.ResponseWriter, r *http.Request) {
	h.refresh(w, r, domain.RoleSeller, middleware.SellerAccessCookie, middleware.SellerRefreshCookie)
}

// Current returns the account resolved by the auth middleware.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	a, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		writeError(w, r, domain.Auth("Unauthorized, token is missing"))
		return
	}
	writeJSON(w, http.StatusOK, accountEnvelope(a, ""))
}

func (h *SessionHandler) login(w http.ResponseWriter, r *http.Request, role, accessCookie, refreshCookie string) {
	var req domain.LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Login(r.Context(), role, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	setCookie(w, h.cookies, accessCookie, res.AccessToken)
	setCookie(w, h.cookies, refreshCookie, res.RefreshToken)
	writeJSON(w, http.StatusOK, accountEnvelope(res.Account, "Login successful!"))
}

func (h *SessionHandler) refresh(w http.ResponseWriter, r *http.Request, role, accessCookie, refreshCookie string) {
	c, err := r.Cookie(refreshCookie)
	if err != nil || c.Value == "" {
		writeError(w, r, domain.Auth("Unauthorized! No refresh token."))
		return
	}
	access, err := h.svc.Refresh(r.Context(), role, c.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	setCookie(w, h.cookies, accessCookie, access)
	writeJSON(w, http.StatusCreated, MessageEnvelope{Success: true})
}
