package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/marketplace-auth/internal/config"
	"github.com/marketplace-auth/internal/infrastructure/memkv"
	jwtinfra "github.com/marketplace-auth/internal/infrastructure/jwt"
	"github.com/marketplace-auth/internal/infrastructure/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	mu   sync.Mutex
	last map[string]string
}

func (m *captureMailer) SendTemplate(_ context.Context, to, _, _ string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		m.last = make(map[string]string)
	}
	m.last[to], _ = data["otp"].(string)
	return nil
}

func (m *captureMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last[to]
}

type testServer struct {
	t      *testing.T
	h      http.Handler
	mailer *captureMailer
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		AllowedOrigins:   []string{"http://localhost:3000"},
		JWTAccessSecret:  "access",
		JWTRefreshSecret: "refresh",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		Cookie:           config.CookieConfig{MaxAge: 7 * 24 * time.Hour},
	}
	db, err := sqlstore.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	jwtp, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)

	ts := &testServer{t: t, mailer: &captureMailer{}, now: time.Now()}
	state := memkv.New(memkv.WithClock(func() time.Time { return ts.now }))
	ts.h, _ = NewRouter(cfg, &Deps{
		Users:       sqlstore.NewUserRepo(db),
		Sellers:     sqlstore.NewSellerRepo(db),
		State:       state,
		Mailer:      ts.mailer,
		JWTProvider: jwtp,
	})
	return ts
}

func (ts *testServer) do(method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	ts.h.ServeHTTP(rr, req)
	return rr
}

func cookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func message(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Message
}

func TestUserLifecycle(t *testing.T) {
	ts := newTestServer(t)
	user := map[string]string{"name": "Ada", "email": "a@b.com", "password": "first-pass"}

	rr := ts.do(http.MethodPost, "/api/user-registration", user)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	code := ts.mailer.code("a@b.com")
	require.Len(t, code, 6)

	rr = ts.do(http.MethodPost, "/api/verify-user", map[string]string{
		"name": "Ada", "email": "a@b.com", "password": "first-pass", "otp": code,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = ts.do(http.MethodPost, "/api/user-registration", user)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "User already exists with this email", message(t, rr))

	rr = ts.do(http.MethodPost, "/api/user-login", map[string]string{"email": "a@b.com", "password": "first-pass"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	access, refresh := cookie(rr, "access_token"), cookie(rr, "refresh_token")
	require.NotNil(t, access)
	require.NotNil(t, refresh)

	rr = ts.do(http.MethodGet, "/api/logged-in-user", nil, access)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"a@b.com"`)

	rr = ts.do(http.MethodGet, "/api/logged-in-seller", nil, access)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(http.MethodGet, "/api/logged-in-user", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthorized, token is missing", message(t, rr))

	rr = ts.do(http.MethodPost, "/api/refresh-token", nil, refresh)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, cookie(rr, "access_token"))

	// A buyer refresh token does not open a seller session.
	rr = ts.do(http.MethodPost, "/api/seller-refresh-token", nil, &http.Cookie{Name: "seller_refresh_token", Value: refresh.Value})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestPasswordReset(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodPost, "/api/user-registration", map[string]string{"name": "Ada", "email": "a@b.com", "password": "old-pass"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do(http.MethodPost, "/api/verify-user", map[string]string{
		"name": "Ada", "email": "a@b.com", "password": "old-pass", "otp": ts.mailer.code("a@b.com"),
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.do(http.MethodPost, "/api/forgot-user-password", map[string]string{"email": "a@b.com"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Please wait 1 minute before requesting a new OTP.", message(t, rr))

	ts.now = ts.now.Add(61 * time.Second)
	rr = ts.do(http.MethodPost, "/api/forgot-user-password", map[string]string{"email": "a@b.com"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.do(http.MethodPost, "/api/reset-user-password", map[string]string{"email": "a@b.com", "newPassword": "new-pass"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "OTP verification required before resetting the password", message(t, rr))

	rr = ts.do(http.MethodPost, "/api/forgot-password-otp-verification", map[string]string{"email": "a@b.com", "otp": ts.mailer.code("a@b.com")})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.do(http.MethodPost, "/api/reset-user-password", map[string]string{"email": "a@b.com", "newPassword": "old-pass"})
	assert.Equal(t, "New password must be different from the old password", message(t, rr))

	rr = ts.do(http.MethodPost, "/api/reset-user-password", map[string]string{"email": "a@b.com", "newPassword": "new-pass"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.do(http.MethodPost, "/api/user-login", map[string]string{"email": "a@b.com", "password": "new-pass"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestForgotSellerPassword_UnknownSeller(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodPost, "/api/forgot-seller-password", map[string]string{"email": "s@b.com"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Seller not found", message(t, rr))
}

func TestSellerLogin_SetsSellerCookies(t *testing.T) {
	ts := newTestServer(t)
	seller := map[string]string{"name": "Shop", "email": "s@b.com", "password": "pw", "phone_number": "+15550100", "country": "US"}
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/seller-registration", seller).Code)
	seller["otp"] = ts.mailer.code("s@b.com")
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/verify-seller", seller).Code)

	rr := ts.do(http.MethodPost, "/api/login-seller", map[string]string{"email": "s@b.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rr.Code)
	access := cookie(rr, "seller_access_token")
	require.NotNil(t, access)
	require.NotNil(t, cookie(rr, "seller_refresh_token"))

	rr = ts.do(http.MethodGet, "/api/logged-in-seller", nil, access)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"country":"US"`)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
