package domain

import "time"

// Roles carried in session tokens.
const (
	RoleUser   = "user"
	RoleSeller = "seller"
)

// User is a buyer account.
type User struct {
	ID           string    `json:"id" gorm:"column:id;primaryKey"`
	Name         string    `json:"name" gorm:"column:name"`
	Email        string    `json:"email" gorm:"column:email;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"column:password"`
	CreatedAt    time.Time `json:"created" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated" gorm:"column:updated_at"`
}

// Seller is a merchant account.
type Seller struct {
	ID           string    `json:"id" gorm:"column:id;primaryKey"`
	Name         string    `json:"name" gorm:"column:name"`
	Email        string    `json:"email" gorm:"column:email;uniqueIndex"`
	PhoneNumber  string    `json:"phone_number" gorm:"column:phone_number"`
	Country      string    `json:"country" gorm:"column:country"`
	PasswordHash string    `json:"-" gorm:"column:password"`
	CreatedAt    time.Time `json:"created" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated" gorm:"column:updated_at"`
}

// Account is the role-independent view of a User or Seller.
// PhoneNumber and Country are only set for sellers.
type Account struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	Country      string    `json:"country,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created"`
}

func (u *User) Account() *Account {
	return &Account{
		ID:           u.ID,
		Role:         RoleUser,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func (s *Seller) Account() *Account {
	return &Account{
		ID:           s.ID,
		Role:         RoleSeller,
		Name:         s.Name,
		Email:        s.Email,
		PhoneNumber:  s.PhoneNumber,
		Country:      s.Country,
		PasswordHash: s.PasswordHash,
		CreatedAt:    s.CreatedAt,
	}
}

// ValidRole reports whether role is one of the session roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleSeller
}

// RegisterUserRequest starts buyer registration.
type RegisterUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// VerifyUserRequest completes buyer registration.
type VerifyUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
	OTP      string `json:"otp" validate:"required"`
}

// RegisterSellerRequest starts seller registration.
type RegisterSellerRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,max=72"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Country     string `json:"country" validate:"required"`
}

// VerifySellerRequest completes seller registration.
type VerifySellerRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,max=72"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Country     string `json:"country" validate:"required"`
	OTP         string `json:"otp" validate:"required"`
}

// LoginRequest carries credentials for either role.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest starts password recovery.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyResetOTPRequest proves ownership of the email before a reset.
type VerifyResetOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

// ResetPasswordRequest sets a new password after a verified OTP.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"newPassword" validate:"required,max=72"`
}
