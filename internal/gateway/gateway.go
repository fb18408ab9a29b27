// Package gateway is the edge proxy in front of the auth service. It applies CORS and
// a per-client rate limit that is ten times more generous for signed-in clients.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/marketplace-auth/internal/domain"
	jwtinfra "github.com/marketplace-auth/internal/infrastructure/jwt"
	appmiddleware "github.com/marketplace-auth/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

const window = 15 * time.Minute

// Requests allowed per window and client.
const (
	AnonymousLimit     = 100
	AuthenticatedLimit = 1000
)

// TokenVerifier checks access tokens so signed-in clients get the larger allowance.
type TokenVerifier interface {
	VerifyAccess(token string) (*jwtinfra.Claims, error)
}

// Gateway proxies every request to one upstream.
type Gateway struct {
	proxy    *httputil.ReverseProxy
	verifier TokenVerifier
	anon     *appmiddleware.RateLimiter
	authed   *appmiddleware.RateLimiter
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLimits replaces the per-window allowances.
func WithLimits(anonymous, authenticated int) Option {
	return func(g *Gateway) {
		g.anon = newWindowLimiter(anonymous)
		g.authed = newWindowLimiter(authenticated)
	}
}

// New builds a gateway for upstream. verifier may be nil, in which case every client is anonymous.
func New(upstream *url.URL, verifier TokenVerifier, opts ...Option) *Gateway {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("upstream request failed", "path", r.URL.Path, "upstream", upstream.String(), "err", err)
		appmiddleware.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": "Service unavailable",
		})
	}

	g := &Gateway{
		proxy:    proxy,
		verifier: verifier,
		anon:     newWindowLimiter(AnonymousLimit),
		authed:   newWindowLimiter(AuthenticatedLimit),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func newWindowLimiter(n int) *appmiddleware.RateLimiter {
	return appmiddleware.NewRateLimiter(rate.Every(window/time.Duration(n)), n)
}

// Run reclaims idle limiter entries until ctx is done.
func (g *Gateway) Run(ctx context.Context) {
	go g.anon.Run(ctx)
	g.authed.Run(ctx)
}

// Handler returns the gateway router.
func (g *Gateway) Handler(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: true,
	}))
	r.Use(g.limit)

	r.Get("/gateway-health", func(w http.ResponseWriter, _ *http.Request) {
		appmiddleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Welcome to api-gateway!"})
	})
	r.Handle("/*", g.proxy)
	return r
}

func (g *Gateway) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl := g.anon
		if g.authenticated(r) {
			rl = g.authed
		}
		// The gateway is the edge, so forwarding headers are the client's own.
		ok, remaining := rl.Allow(appmiddleware.RemoteIP(r))

		limit := strconv.Itoa(rl.Burst())
		left := strconv.Itoa(remaining)
		w.Header().Set("RateLimit-Limit", limit)
		w.Header().Set("RateLimit-Remaining", left)
		w.Header().Set("X-RateLimit-Limit", limit)
		w.Header().Set("X-RateLimit-Remaining", left)

		if !ok {
			appmiddleware.WriteError(w, r, domain.RateLimit("Too many requests, please try again later."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) authenticated(r *http.Request) bool {
	if g.verifier == nil {
		return false
	}
	token := appmiddleware.TokenFromRequest(r)
	if token == "" {
		return false
	}
	_, err := g.verifier.VerifyAccess(token)
	return err == nil
}
