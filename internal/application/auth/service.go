package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketplace-auth/internal/application/otp"
	"github.com/marketplace-auth/internal/domain"
	"github.com/marketplace-auth/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt refuses to hash input longer than this.
const maxPasswordBytes = 72

const msgPasswordTooLong = "Password must be at most 72 bytes"

type Service interface {
	RegisterUser(ctx context.Context, req domain.RegisterUserRequest) error
	VerifyUser(ctx context.Context, req domain.VerifyUserRequest) (*domain.Account, error)
	RegisterSeller(ctx context.Context, req domain.RegisterSellerRequest) error
	VerifySeller(ctx context.Context, req domain.VerifySellerRequest) (*domain.Account, error)
	ForgotPassword(ctx context.Context, role, email string) error
	VerifyForgotPasswordOTP(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, role, email, newPassword string) error
}

type accountStore interface {
	FindByEmail(ctx context.Context, role, email string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	UpdatePassword(ctx context.Context, role, id, hash string) error
}

type service struct {
	accounts accountStore
	otp      otp.Service
}

type ServiceDeps struct {
	Accounts accountStore
	OTP      otp.Service
}

func NewService(deps ServiceDeps) Service {
	return &service{accounts: deps.Accounts, otp: deps.OTP}
}

func (s *service) RegisterUser(ctx context.Context, req domain.RegisterUserRequest) error {
	if err := checkPassword(req.Password); err != nil {
		return err
	}
	if err := s.ensureAbsent(ctx, domain.RoleUser, req.Email); err != nil {
		return err
	}
	return s.otp.Request(ctx, req.Name, req.Email, otp.TemplateUserActivation)
}

func (s *service) VerifyUser(ctx context.Context, req domain.VerifyUserRequest) (*domain.Account, error) {
	return s.completeRegistration(ctx, req.OTP, &domain.Account{
		Role:  domain.RoleUser,
		Name:  req.Name,
		Email: req.Email,
	}, req.Password)
}

func (s *service) RegisterSeller(ctx context.Context, req domain.RegisterSellerRequest) error {
	if err := checkPassword(req.Password); err != nil {
		return err
	}
	if err := s.ensureAbsent(ctx, domain.RoleSeller, req.Email); err != nil {
		return err
	}
	return s.otp.Request(ctx, req.Name, req.Email, otp.TemplateSellerActivation)
}

func (s *service) VerifySeller(ctx context.Context, req domain.VerifySellerRequest) (*domain.Account, error) {
	return s.completeRegistration(ctx, req.OTP, &domain.Account{
		Role:        domain.RoleSeller,
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Country:     req.Country,
	}, req.Password)
}

// completeRegistration consumes the activation code and persists the account.
func (s *service) completeRegistration(ctx context.Context, code string, a *domain.Account, password string) (*domain.Account, error) {
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	if err := s.ensureAbsent(ctx, a.Role, a.Email); err != nil {
		return nil, err
	}
	if err := s.otp.Verify(ctx, a.Email, code); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	a.ID = id.New()
	a.PasswordHash = string(hash)
	a.CreatedAt = time.Now().UTC()
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.Validation(existsMessage(a.Role))
		}
		return nil, fmt.Errorf("create %s: %w", a.Role, err)
	}
	slog.Info("account created", "role", a.Role, "id", a.ID)
	return a, nil
}

func (s *service) ForgotPassword(ctx context.Context, role, email string) error {
	a, err := s.accounts.FindByEmail(ctx, role, email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Auth(missingMessage(role))
	}
	if err != nil {
		return err
	}
	tpl := otp.TemplateUserForgotPassword
	if role == domain.RoleSeller {
		tpl = otp.TemplateSellerForgotPassword
	}
	return s.otp.Request(ctx, a.Name, email, tpl)
}

func (s *service) VerifyForgotPasswordOTP(ctx context.Context, email, code string) error {
	if err := s.otp.Verify(ctx, email, code); err != nil {
		return err
	}
	return s.otp.GrantReset(ctx, email)
}

func (s *service) ResetPassword(ctx context.Context, role, email, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	a, err := s.accounts.FindByEmail(ctx, role, email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound(missingMessage(role))
	}
	if err != nil {
		return err
	}
	// The old password is only compared once the caller has proven the email.
	if err := s.otp.CheckReset(ctx, email); err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(newPassword)) == nil {
		return domain.Validation("New password must be different from the old password")
	}
	if err := s.otp.ConsumeReset(ctx, email); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, role, a.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	slog.Info("password reset", "role", role, "id", a.ID)
	return nil
}

func checkPassword(p string) error {
	if len(p) > maxPasswordBytes {
		return domain.Validation(msgPasswordTooLong)
	}
	return nil
}

func (s *service) ensureAbsent(ctx context.Context, role, email string) error {
	_, err := s.accounts.FindByEmail(ctx, role, email)
	switch {
	case err == nil:
		return domain.Validation(existsMessage(role))
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

func existsMessage(role string) string {
	if role == domain.RoleSeller {
		return "Seller already exists with this email"
	}
	return "User already exists with this email"
}

func missingMessage(role string) string {
	if role == domain.RoleSeller {
		return "Seller not found"
	}
	return "User not found"
}
