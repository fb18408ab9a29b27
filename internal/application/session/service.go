package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/marketplace-auth/internal/domain"
	jwtinfra "github.com/marketplace-auth/internal/infrastructure/jwt"
	"golang.org/x/crypto/bcrypt"
)

// Tokens is a freshly issued access/refresh pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type LoginResult struct {
	Tokens
	Account *domain.Account
}

type Service interface {
	Login(ctx context.Context, role string, req domain.LoginRequest) (*LoginResult, error)
	Issue(id, role string) (*Tokens, error)
	Refresh(ctx context.Context, role, refreshToken string) (accessToken string, err error)
	Authenticate(ctx context.Context, accessToken string) (*domain.Account, error)
}

type accountStore interface {
	FindByEmail(ctx context.Context, role, email string) (*domain.Account, error)
	FindByID(ctx context.Context, role, id string) (*domain.Account, error)
}

type tokenProvider interface {
	SignAccess(id, role string) (string, error)
	SignRefresh(id, role string) (string, error)
	VerifyAccess(token string) (*jwtinfra.Claims, error)
	VerifyRefresh(token string) (*jwtinfra.Claims, error)
}

type service struct {
	accounts accountStore
	tokens   tokenProvider
}

type ServiceDeps struct {
	Accounts    accountStore
	JWTProvider tokenProvider
}

func NewService(deps ServiceDeps) Service {
	return &service{accounts: deps.Accounts, tokens: deps.JWTProvider}
}

func (s *service) Login(ctx context.Context, role string, req domain.LoginRequest) (*LoginResult, error) {
	a, err := s.accounts.FindByEmail(ctx, role, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Auth("Invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.Auth("Invalid email or password")
	}
	tokens, err := s.Issue(a.ID, a.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: *tokens, Account: a}, nil
}

// Issue signs an access and a refresh token carrying {id, role}.
func (s *service) Issue(id, role string) (*Tokens, error) {
	access, err := s.tokens.SignAccess(id, role)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.SignRefresh(id, role)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token of the given role for a new access token.
func (s *service) Refresh(ctx context.Context, role, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if errors.Is(err, jwtinfra.ErrExpired) {
		return "", domain.Auth("Refresh token has expired")
	}
	if err != nil || !domain.ValidRole(claims.Role) {
		return "", domain.Auth("Forbidden! Invalid refresh token.")
	}
	if claims.Role != role {
		return "", domain.Forbidden("Access denied for this role")
	}
	a, err := s.accounts.FindByID(ctx, claims.Role, claims.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.NotFound("Account not found")
	}
	if err != nil {
		return "", err
	}
	access, err := s.tokens.SignAccess(a.ID, a.Role)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return access, nil
}

// Authenticate resolves the account behind a valid access token.
func (s *service) Authenticate(ctx context.Context, accessToken string) (*domain.Account, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if errors.Is(err, jwtinfra.ErrExpired) {
		return nil, domain.Auth("Token has expired")
	}
	if err != nil || !domain.ValidRole(claims.Role) {
		return nil, domain.Auth("Invalid token format or signature")
	}
	a, err := s.accounts.FindByID(ctx, claims.Role, claims.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Auth("Account not found")
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
