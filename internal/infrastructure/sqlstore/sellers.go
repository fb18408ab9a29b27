package sqlstore

import (
	"context"
	"time"

	"github.com/marketplace-auth/internal/domain"
	"gorm.io/gorm"
)

// SellerRepo persists merchant accounts.
type SellerRepo struct {
	db *gorm.DB
}

func NewSellerRepo(db *gorm.DB) *SellerRepo {
	return &SellerRepo{db: db}
}

func (r *SellerRepo) Create(ctx context.Context, s *domain.Seller) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *SellerRepo) Get(ctx context.Context, id string) (*domain.Seller, error) {
	var s domain.Seller
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *SellerRepo) GetByEmail(ctx context.Context, email string) (*domain.Seller, error) {
	var s domain.Seller
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *SellerRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	res := r.db.WithContext(ctx).Model(&domain.Seller{}).Where("id = ?", id).
		Updates(map[string]interface{}{"password": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
