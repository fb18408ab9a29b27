package handler

import (
	"context"

	"github.com/marketplace-auth/internal/application/session"
	"github.com/marketplace-auth/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) RegisterUser(ctx context.Context, req domain.RegisterUserRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockAuthSvc) VerifyUser(ctx context.Context, req domain.VerifyUserRequest) (*domain.Account, error) {
	args := m.Called(ctx, req)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthSvc) RegisterSeller(ctx context.Context, req domain.RegisterSellerRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockAuthSvc) VerifySeller(ctx context.Context, req domain.VerifySellerRequest) (*domain.Account, error) {
	args := m.Called(ctx, req)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthSvc) ForgotPassword(ctx context.Context, role, email string) error {
	return m.Called(ctx, role, email).Error(0)
}
func (m *mockAuthSvc) VerifyForgotPasswordOTP(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}
func (m *mockAuthSvc) ResetPassword(ctx context.Context, role, email, newPassword string) error {
	return m.Called(ctx, role, email, newPassword).Error(0)
}

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) Login(ctx context.Context, role string, req domain.LoginRequest) (*session.LoginResult, error) {
	args := m.Called(ctx, role, req)
	if r, _ := args.Get(0).(*session.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionSvc) Issue(id, role string) (*session.Tokens, error) {
	args := m.Called(id, role)
	if t, _ := args.Get(0).(*session.Tokens); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionSvc) Refresh(ctx context.Context, role, refreshToken string) (string, error) {
	args := m.Called(ctx, role, refreshToken)
	return args.String(0), args.Error(1)
}
func (m *mockSessionSvc) Authenticate(ctx context.Context, accessToken string) (*domain.Account, error) {
	args := m.Called(ctx, accessToken)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
