// Package account dispatches account lookups and writes to the user or seller store by role.
package account

import (
	"context"
	"fmt"

	"github.com/marketplace-auth/internal/domain"
)

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

type sellerStore interface {
	Create(ctx context.Context, s *domain.Seller) error
	Get(ctx context.Context, id string) (*domain.Seller, error)
	GetByEmail(ctx context.Context, email string) (*domain.Seller, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

// Directory is the role-independent view over both account tables.
type Directory struct {
	users   userStore
	sellers sellerStore
}

func NewDirectory(users userStore, sellers sellerStore) *Directory {
	return &Directory{users: users, sellers: sellers}
}

func (d *Directory) FindByEmail(ctx context.Context, role, email string) (*domain.Account, error) {
	switch role {
	case domain.RoleUser:
		u, err := d.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return u.Account(), nil
	case domain.RoleSeller:
		s, err := d.sellers.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return s.Account(), nil
	}
	return nil, unknownRole(role)
}

func (d *Directory) FindByID(ctx context.Context, role, id string) (*domain.Account, error) {
	switch role {
	case domain.RoleUser:
		u, err := d.users.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return u.Account(), nil
	case domain.RoleSeller:
		s, err := d.sellers.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.Account(), nil
	}
	return nil, unknownRole(role)
}

// Create persists a as a User or Seller according to a.Role.
func (d *Directory) Create(ctx context.Context, a *domain.Account) error {
	switch a.Role {
	case domain.RoleUser:
		return d.users.Create(ctx, &domain.User{
			ID:           a.ID,
			Name:         a.Name,
			Email:        a.Email,
			PasswordHash: a.PasswordHash,
			CreatedAt:    a.CreatedAt,
			UpdatedAt:    a.CreatedAt,
		})
	case domain.RoleSeller:
		return d.sellers.Create(ctx, &domain.Seller{
			ID:           a.ID,
			Name:         a.Name,
			Email:        a.Email,
			PhoneNumber:  a.PhoneNumber,
			Country:      a.Country,
			PasswordHash: a.PasswordHash,
			CreatedAt:    a.CreatedAt,
			UpdatedAt:    a.CreatedAt,
		})
	}
	return unknownRole(a.Role)
}

func (d *Directory) UpdatePassword(ctx context.Context, role, id, hash string) error {
	switch role {
	case domain.RoleUser:
		return d.users.UpdatePassword(ctx, id, hash)
	case domain.RoleSeller:
		return d.sellers.UpdatePassword(ctx, id, hash)
	}
	return unknownRole(role)
}

func unknownRole(role string) error {
	return fmt.Errorf("unknown role %q: %w", role, domain.ErrBadRequest)
}
