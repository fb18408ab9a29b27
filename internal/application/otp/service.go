package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/marketplace-auth/internal/domain"
)

// Mail templates used for one-time codes.
const (
	TemplateUserActivation       = "user-activation"
	TemplateSellerActivation     = "seller-activation"
	TemplateUserForgotPassword   = "user-forgot-password"
	TemplateSellerForgotPassword = "seller-forgot-password"
)

const (
	codeTTL     = 5 * time.Minute
	cooldownTTL = time.Minute
	requestTTL  = time.Hour
	spamLockTTL = time.Hour
	attemptsTTL = 5 * time.Minute
	hardLockTTL = 30 * time.Minute
	resetTTL    = 10 * time.Minute

	// Issuance requests allowed per window before the spam lock trips.
	maxRequests int64 = 2
	// Failed verifications tolerated before the next failure trips the hard lock.
	maxFailures int64 = 2
)

const (
	msgLocked   = "Account locked due to multiple failed OTP attempts. Try again after 30 minutes."
	msgSpam     = "Too many OTP requests. Please wait 1 hour before requesting a new OTP."
	msgCooldown = "Please wait 1 minute before requesting a new OTP."
	msgExpired  = "OTP has expired or is invalid"
	msgNoReset  = "OTP verification required before resetting the password"
)

var subjects = map[string]string{
	TemplateUserActivation:       "Verify your email",
	TemplateSellerActivation:     "Verify your seller account",
	TemplateUserForgotPassword:   "Reset your password",
	TemplateSellerForgotPassword: "Reset your seller password",
}

// Store is the expiring key-value store holding all OTP state.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IncrBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, error)
}

// Mailer delivers a rendered template.
type Mailer interface {
	SendTemplate(ctx context.Context, to, subject, template string, data map[string]any) error
}

type Service interface {
	CheckRestrictions(ctx context.Context, email string) error
	TrackRequest(ctx context.Context, email string) error
	Issue(ctx context.Context, name, email, template string) error
	Request(ctx context.Context, name, email, template string) error
	Verify(ctx context.Context, email, code string) error
	GrantReset(ctx context.Context, email string) error
	CheckReset(ctx context.Context, email string) error
	ConsumeReset(ctx context.Context, email string) error
}

// ServiceDeps groups the service dependencies. NewCode defaults to a crypto/rand
// six-digit generator.
type ServiceDeps struct {
	Store   Store
	Mailer  Mailer
	NewCode func() (string, error)
}

type service struct {
	store   Store
	mailer  Mailer
	newCode func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	gen := deps.NewCode
	if gen == nil {
		gen = GenerateCode
	}
	return &service{store: deps.Store, mailer: deps.Mailer, newCode: gen}
}

// GenerateCode returns a uniformly random code in 100000-999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", 100000+n.Int64()), nil
}

// CheckRestrictions fails when a hard lock, spam lock or cooldown is active, in that order.
func (s *service) CheckRestrictions(ctx context.Context, email string) error {
	checks := []struct {
		key string
		msg string
	}{
		{domain.OTPLockKey(email), msgLocked},
		{domain.OTPSpamLockKey(email), msgSpam},
		{domain.OTPCooldownKey(email), msgCooldown},
	}
	for _, c := range checks {
		set, err := s.present(ctx, c.key)
		if err != nil {
			return err
		}
		if set {
			return domain.Validation(c.msg)
		}
	}
	return nil
}

// TrackRequest counts issuance requests in a window that restarts on every accepted request.
func (s *service) TrackRequest(ctx context.Context, email string) error {
	_, err := s.store.IncrBelow(ctx, domain.OTPRequestCountKey(email), maxRequests, requestTTL)
	if errors.Is(err, domain.ErrLimitReached) {
		if err := s.store.Set(ctx, domain.OTPSpamLockKey(email), "locked", spamLockTTL); err != nil {
			return fmt.Errorf("set spam lock: %w", err)
		}
		return domain.Validation(msgSpam)
	}
	if err != nil {
		return fmt.Errorf("track otp request: %w", err)
	}
	return nil
}

// Issue mails a fresh code and stores it together with the resend cooldown.
func (s *service) Issue(ctx context.Context, name, email, template string) error {
	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	subject, ok := subjects[template]
	if !ok {
		subject = "Your verification code"
	}
	if err := s.mailer.SendTemplate(ctx, email, subject, template, map[string]any{
		"name": name,
		"otp":  code,
	}); err != nil {
		return err
	}
	if err := s.store.Set(ctx, domain.OTPKey(email), code, codeTTL); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.store.Set(ctx, domain.OTPCooldownKey(email), "true", cooldownTTL); err != nil {
		return fmt.Errorf("store otp cooldown: %w", err)
	}
	slog.Info("otp sent", "email", email, "template", template)
	return nil
}

func (s *service) Request(ctx context.Context, name, email, template string) error {
	if err := s.CheckRestrictions(ctx, email); err != nil {
		return err
	}
	if err := s.TrackRequest(ctx, email); err != nil {
		return err
	}
	return s.Issue(ctx, name, email, template)
}

// Verify is the single authority on whether code is the live OTP for email.
// An active hard lock wins over everything, including a correct code.
func (s *service) Verify(ctx context.Context, email, code string) error {
	locked, err := s.present(ctx, domain.OTPLockKey(email))
	if err != nil {
		return err
	}
	if locked {
		return domain.Validation(msgLocked)
	}

	stored, err := s.store.Get(ctx, domain.OTPKey(email))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Validation(msgExpired)
	}
	if err != nil {
		return fmt.Errorf("read otp: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1 {
		if err := s.store.Del(ctx, domain.OTPKey(email), domain.OTPAttemptsKey(email)); err != nil {
			return fmt.Errorf("clear otp: %w", err)
		}
		return nil
	}

	failed, err := s.store.IncrBelow(ctx, domain.OTPAttemptsKey(email), maxFailures, attemptsTTL)
	if errors.Is(err, domain.ErrLimitReached) {
		if err := s.store.Set(ctx, domain.OTPLockKey(email), "locked", hardLockTTL); err != nil {
			return fmt.Errorf("set otp lock: %w", err)
		}
		if err := s.store.Del(ctx, domain.OTPKey(email), domain.OTPAttemptsKey(email)); err != nil {
			return fmt.Errorf("clear otp: %w", err)
		}
		slog.Warn("otp hard lock set", "email", email)
		return domain.Validation(msgLocked)
	}
	if err != nil {
		return fmt.Errorf("count otp attempt: %w", err)
	}
	return domain.Validation(fmt.Sprintf("Invalid OTP. You have %d attempts left.", maxFailures+1-failed))
}

// GrantReset records that email passed OTP verification for a password reset.
func (s *service) GrantReset(ctx context.Context, email string) error {
	if err := s.store.Set(ctx, domain.PasswordResetKey(email), "granted", resetTTL); err != nil {
		return fmt.Errorf("store reset grant: %w", err)
	}
	return nil
}

// CheckReset fails unless a reset grant is live for email. The grant is left in place.
func (s *service) CheckReset(ctx context.Context, email string) error {
	granted, err := s.present(ctx, domain.PasswordResetKey(email))
	if err != nil {
		return err
	}
	if !granted {
		return domain.Validation(msgNoReset)
	}
	return nil
}

// ConsumeReset removes the reset grant, failing when none is live.
func (s *service) ConsumeReset(ctx context.Context, email string) error {
	if err := s.CheckReset(ctx, email); err != nil {
		return err
	}
	return s.store.Del(ctx, domain.PasswordResetKey(email))
}

func (s *service) present(ctx context.Context, key string) (bool, error) {
	_, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return true, nil
}
