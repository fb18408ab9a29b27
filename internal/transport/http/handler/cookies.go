package handler

import (
	"net/http"

	"github.com/marketplace-auth/internal/config"
)

// setCookie writes a session cookie. Every session cookie shares one expiry
// regardless of the lifetime of the token inside it.
func setCookie(w http.ResponseWriter, cfg config.CookieConfig, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}
