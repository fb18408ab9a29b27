package handler

import (
	"net/http"

	"github.com/marketplace-auth/internal/domain"
	"github.com/marketplace-auth/internal/transport/http/middleware"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// UserEnvelope wraps responses that carry the buyer account.
type UserEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	User    *domain.Account `json:"user"`
}

// SellerEnvelope wraps responses that carry the seller account.
type SellerEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Seller  *domain.Account `json:"seller"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	middleware.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.WriteError(w, r, err)
}

func accountEnvelope(a *domain.Account, msg string) interface{} {
	if a.Role == domain.RoleSeller {
		return SellerEnvelope{Success: true, Message: msg, Seller: a}
	}
	return UserEnvelope{Success: true, Message: msg, User: a}
}
